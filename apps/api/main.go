package main

import (
	"context"
	"expvar"
	"fmt"
	"log"
	"net/http"
	_ "net/http/pprof"
	"os"

	"github.com/trezcool/academia/apps/api/echo"
	"github.com/trezcool/academia/apps/shared"
	"github.com/trezcool/academia/core"
	"github.com/trezcool/academia/services/logger"
	"github.com/trezcool/academia/storage/database"
)

func main() {
	// =========================================================================
	// Set up Dependencies

	conf := core.NewConfig()

	logger := logsvc.NewRollbarLogger(
		log.New(os.Stdout, "API : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile),
		conf,
	)
	logger.Enable(!conf.Debug)

	if conf.Store == core.StorePostgres {
		if err := database.CreateIfNotExist(conf); err != nil {
			logger.Fatal(fmt.Sprintf("creating database: %v", err), err)
		}
	}

	app, err := shared.NewApp(context.Background(), conf, logger)
	if err != nil {
		logger.Fatal(fmt.Sprintf("setting up app: %v", err), err)
	}
	defer func() {
		if err = app.Close(); err != nil {
			logger.Error("failed to close app", err)
		}
	}()

	if app.DB != nil {
		if err = app.Migrate("up"); err != nil {
			logger.Fatal(fmt.Sprintf("migrating database: %v", err), err)
		}
	}

	// =========================================================================
	// Initialize App

	logger.Info(fmt.Sprintf("Application initializing : %s", conf))
	defer logger.Info("Application stopped")

	// =========================================================================
	// Start Debug Service
	//
	// /debug/pprof - Added to the default mux by importing the net/http/pprof package.
	// /debug/vars - Added to the default mux by importing the expvar package.

	expvar.NewString("build").Set(conf.Build)
	expvar.NewString("env").Set(conf.Env)
	expvar.NewString("store").Set(conf.Store)

	go func() {
		if err := http.ListenAndServe(conf.Server.DebugHost, http.DefaultServeMux); err != nil {
			logger.Error(fmt.Sprintf("debug server closed: %v", err), err)
		}
	}()

	// =========================================================================
	// Start API Service

	server := echoapi.NewServer(echoapi.ServerDeps{
		Conf:          conf,
		Logger:        logger,
		SchoolSvc:     app.SchoolSvc,
		SessionSvc:    app.SessionSvc,
		ClassSvc:      app.ClassSvc,
		StudentSvc:    app.StudentSvc,
		EnrollmentSvc: app.EnrollmentSvc,
		PromotionSvc:  app.PromotionSvc,
		Executor:      app.Executor,
	})

	go server.Start()

	// =========================================================================
	// Shutdown

	select {
	case err = <-server.Errors():
		logger.Fatal(fmt.Sprintf("server error: %v", err), err)

	case sig := <-server.ShutdownSignal():
		logger.Info(fmt.Sprintf("%v: Start shutdown...", sig))

		// give outstanding requests (and running promotion chunks) a deadline for completion
		ctx, cancel := context.WithTimeout(context.Background(), conf.Server.ShutdownTimeout)
		defer cancel()

		if err = server.Shutdown(ctx); err != nil {
			logger.Error(fmt.Sprintf("could not stop server gracefully: %v", err), err)

			if err = server.Close(); err != nil {
				logger.Fatal(fmt.Sprintf("could not force stop server: %v", err), err)
			}
		}
	}
}
