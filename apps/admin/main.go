package main

import (
	"context"
	"log"
	"os"

	"github.com/trezcool/academia/apps/shared"
	"github.com/trezcool/academia/core"
	"github.com/trezcool/academia/services/logger"
)

func main() {
	conf := core.NewConfig()

	logger := logsvc.NewRollbarLogger(
		log.New(os.Stdout, "ADMIN : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile),
		conf,
	)
	logger.Enable(!conf.Debug)

	app, err := shared.NewApp(context.Background(), conf, logger)
	if err != nil {
		logger.Fatal("setting up app", err)
	}

	cli := commandLine{app: app, in: os.Stdin, out: os.Stdout}
	err = cli.run(os.Args)
	if cErr := app.Close(); cErr != nil {
		logger.Error("failed to close app", cErr)
	}
	if err != nil {
		if err != errHelp {
			logger.Error("command failed", err)
		}
		os.Exit(1)
	}
}
