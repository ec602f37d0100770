package logsvc

import (
	"log"
	"strings"

	"github.com/rollbar/rollbar-go"
	"github.com/rollbar/rollbar-go/errors"

	"github.com/trezcool/academia/core"
)

type RollbarLogger struct {
	std *log.Logger
}

var _ core.Logger = (*RollbarLogger)(nil)

func NewRollbarLogger(std *log.Logger, conf *core.Config) *RollbarLogger {
	rollbar.SetToken(conf.RollbarToken)
	rollbar.SetEnvironment(conf.Env)
	rollbar.SetServerHost(conf.Server.Host)
	rollbar.SetCodeVersion(conf.Build)
	rollbar.SetStackTracer(errors.StackTracer)
	return &RollbarLogger{std: std}
}

func (l RollbarLogger) Enable(enabled bool) {
	rollbar.SetEnabled(enabled)
}

// expected fmt: msg | error, map[string]interface{}, core.Actor
func (l RollbarLogger) prepare(args []interface{}) (rbArgs, stdArgs []interface{}) {
	var actorSet bool
	rbArgs = make([]interface{}, 0, len(args))
	stdArgs = make([]interface{}, 0, len(args))
	for _, arg := range args {
		// set the acting admin or teacher
		if actor, ok := arg.(core.Actor); ok {
			if !actorSet { // only set one Actor
				rollbar.SetPerson(actor.ID, actor.Name, "")
				actorSet = true
			}
			stdArgs = append(stdArgs, "actor="+actor.ID+" roles="+strings.Join(actor.Roles, ","))
		} else {
			rbArgs = append(rbArgs, arg)
			stdArgs = append(stdArgs, arg)
		}
	}
	if !actorSet {
		rollbar.ClearPerson()
	}
	return rbArgs, stdArgs
}

func (l RollbarLogger) print(level, msg string, args []interface{}) {
	l.std.Println(level + ": " + msg)
	for _, arg := range args {
		l.std.Printf("%+v\n", arg)
	}
}

func (l RollbarLogger) Debug(msg string, args ...interface{}) {
	rbArgs, stdArgs := l.prepare(args)
	rollbar.Debug(append([]interface{}{msg}, rbArgs...)...)
	l.print("DEBUG", msg, stdArgs)
}

func (l RollbarLogger) Info(msg string, args ...interface{}) {
	rbArgs, stdArgs := l.prepare(args)
	rollbar.Info(append([]interface{}{msg}, rbArgs...)...)
	l.print("INFO", msg, stdArgs)
}

func (l RollbarLogger) Warn(msg string, args ...interface{}) {
	rbArgs, stdArgs := l.prepare(args)
	rollbar.Warning(append([]interface{}{msg}, rbArgs...)...)
	l.print("WARN", msg, stdArgs)
}

func (l RollbarLogger) Error(msg string, args ...interface{}) {
	rbArgs, stdArgs := l.prepare(args)
	rollbar.Error(append([]interface{}{msg}, rbArgs...)...)
	l.print("ERROR", msg, stdArgs)
}

func (l RollbarLogger) Fatal(msg string, args ...interface{}) {
	rbArgs, stdArgs := l.prepare(args)
	rollbar.Critical(append([]interface{}{msg}, rbArgs...)...)
	l.print("FATAL", msg, stdArgs)
	rollbar.Close()
	l.std.Fatal(msg)
}
