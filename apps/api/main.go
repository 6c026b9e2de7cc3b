package main

import (
	"context"
	"expvar"
	"fmt"
	"log"
	"net/http"
	_ "net/http/pprof"
	"os"
	"time"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	echoapi "github.com/trezcool/masomo-absences/apps/api/echo"
	"github.com/trezcool/masomo-absences/core"
	"github.com/trezcool/masomo-absences/core/absence"
	"github.com/trezcool/masomo-absences/core/notification"
	"github.com/trezcool/masomo-absences/core/substitute"
	"github.com/trezcool/masomo-absences/core/workflow"
	emailsvc "github.com/trezcool/masomo-absences/services/email"
	logsvc "github.com/trezcool/masomo-absences/services/logger"
	metricsvc "github.com/trezcool/masomo-absences/services/metrics"
	pushsvc "github.com/trezcool/masomo-absences/services/push"
	"github.com/trezcool/masomo-absences/storage/database"
)

func main() {
	// =========================================================================
	// Set up Dependencies

	conf := core.NewConfig()

	// set up loggers
	logger := logsvc.NewRollbarLogger(
		log.New(os.Stdout, "API : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile),
		conf,
	)
	logger.Enable(!conf.Debug)

	dbLogger := logsvc.NewRollbarLogger(
		log.New(os.Stdout, "DB : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile),
		conf,
	)

	// set up DB
	repos, err := database.SetUp(conf)
	if err != nil {
		logger.Fatal(fmt.Sprintf("setting up database: %v", err), err)
	}
	defer func() {
		if err = repos.Close(); err != nil {
			dbLogger.Fatal("Failed to close", err)
		}
	}()

	// set up services
	var mailSvc core.EmailService
	if conf.Debug {
		mailSvc = emailsvc.NewConsoleService(conf)
	} else {
		mailSvc = emailsvc.NewSendgridService(conf, logger)
	}

	pushGw, err := newPushGateway(conf)
	if err != nil {
		logger.Fatal(fmt.Sprintf("setting up push gateway: %v", err), err)
	}

	metrics := metricsvc.New(prometheus.DefaultRegisterer)

	// =========================================================================
	// Initialize App

	logger.Info(fmt.Sprintf("Application initializing : version %q", conf.Build))
	defer logger.Info("Application stopped")

	validate := validator.New()
	translator := newTranslator()
	core.InitValidators(validate, translator)

	ledger := absence.NewLedger(repos.Absences, repos.Schedule, repos.Roster, validate, translator)
	resolver := substitute.NewService(repos.Resolutions, repos.Schedule, repos.Roster, ledger, logger)
	resolver.SetObserver(metrics)
	fanout := notification.NewFanout(repos.Notifications, repos.Roster, repos.Schedule, pushGw, mailSvc, logger, notification.Options{
		Concurrency:  conf.Notify.Concurrency,
		PushTimeout:  conf.Notify.PushTimeout,
		EmailEnabled: conf.Notify.EmailEnabled,
	})
	fanout.SetObserver(metrics)
	wf := workflow.NewService(ledger, resolver, fanout, logger)

	// =========================================================================
	// Start Debug Service
	//
	// /debug/pprof - Added to the default mux by importing the net/http/pprof package.
	// /debug/vars - Added to the default mux by importing the expvar package.
	// /metrics - prometheus

	// Expose important info under /debug/vars.
	expvar.NewString("build").Set(conf.Build)
	expvar.NewString("env").Set(conf.Env)
	http.Handle("/metrics", promhttp.Handler())

	go func() {
		if err := http.ListenAndServe(conf.Server.DebugAddress, http.DefaultServeMux); err != nil {
			logger.Error(fmt.Sprintf("debug server closed: %v", err), err)
		}
	}()

	// =========================================================================
	// Start Sweep Job

	if conf.Sweep.Enabled {
		job, err := startSweep(conf.Sweep, wf, logger)
		if err != nil {
			logger.Fatal(fmt.Sprintf("scheduling sweep: %v", err), err)
		}
		defer job.Stop()
	}

	// =========================================================================
	// Start API Service

	server := echoapi.NewServer(
		echoapi.ServerDeps{
			Conf:       conf,
			Logger:     logger,
			Workflow:   wf,
			Ledger:     ledger,
			Inbox:      notification.NewService(repos.Notifications),
			Roster:     repos.Roster,
			Validate:   validate,
			Translator: translator,
		},
	)

	go func() {
		server.Start()
	}()

	// =========================================================================
	// Shutdown

	select {
	case err = <-server.Errors():
		logger.Fatal(fmt.Sprintf("server error: %v", err), err)

	case sig := <-server.ShutdownSignal():
		logger.Info(fmt.Sprintf("%v: Start shutdown...", sig))

		// give outstanding requests a deadline for completion
		ctx, cancel := context.WithTimeout(context.Background(), conf.Server.ShutdownTimeout)
		defer cancel()

		// asking listener to shutdown and shed load
		if err = server.Shutdown(ctx); err != nil {
			logger.Error(fmt.Sprintf("could not stop server gracefully: %v", err), err)

			if err = server.Close(); err != nil {
				logger.Fatal(fmt.Sprintf("could not force stop server: %v", err), err)
			}
		}
	}
}

func newPushGateway(conf *core.Config) (core.PushGateway, error) {
	switch conf.Push.Provider {
	case "fcm":
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return pushsvc.NewFCMGateway(ctx, conf.Push)
	default:
		return pushsvc.NewConsoleGateway(), nil
	}
}

func newTranslator() ut.Translator {
	_en := en.New()
	uni := ut.New(_en, _en)
	translator, _ := uni.GetTranslator("en")
	return translator
}
