package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/trezcool/masomo-absences/core"
	"github.com/trezcool/masomo-absences/core/absence"
	"github.com/trezcool/masomo-absences/core/notification"
	"github.com/trezcool/masomo-absences/core/substitute"
	"github.com/trezcool/masomo-absences/core/workflow"
	logsvc "github.com/trezcool/masomo-absences/services/logger"
	pushsvc "github.com/trezcool/masomo-absences/services/push"
	"github.com/trezcool/masomo-absences/storage/database"
)

func main() {
	conf := core.NewConfig()
	logger := logsvc.NewRollbarLogger(log.New(os.Stdout, "ADMIN : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile), conf)
	logger.Enable(!conf.Debug)

	// set up DB
	repos, err := database.SetUp(conf)
	if err != nil {
		logger.Fatal(fmt.Sprintf("setting up database: %v", err), err)
	}
	if err = database.SetUpGoose(); err != nil {
		logger.Fatal(fmt.Sprintf("setting up goose: %v", err), err)
	}

	// set up services
	_en := en.New()
	translator, _ := ut.New(_en, _en).GetTranslator("en")
	validate := validator.New()
	core.InitValidators(validate, translator)

	var pushGw core.PushGateway = pushsvc.NewConsoleGateway()
	if conf.Push.Provider == "fcm" {
		if pushGw, err = pushsvc.NewFCMGateway(context.Background(), conf.Push); err != nil {
			logger.Fatal(fmt.Sprintf("setting up push gateway: %v", err), err)
		}
	}

	ledger := absence.NewLedger(repos.Absences, repos.Schedule, repos.Roster, validate, translator)
	resolver := substitute.NewService(repos.Resolutions, repos.Schedule, repos.Roster, ledger, logger)
	fanout := notification.NewFanout(repos.Notifications, repos.Roster, repos.Schedule, pushGw, nil, logger, notification.Options{
		Concurrency: conf.Notify.Concurrency,
		PushTimeout: conf.Notify.PushTimeout,
	})

	// start CLI
	cli := commandLine{
		conf:     conf,
		workflow: workflow.NewService(ledger, resolver, fanout, logger),
		ledger:   ledger,
		people:   repos.Roster,
		out:      os.Stdout,
	}
	if repos.DB != nil {
		cli.db = repos.DB.DB
	}

	err = cli.run(os.Args)
	if cErr := repos.Close(); cErr != nil {
		logger.Error(fmt.Sprintf("closing database: %v", cErr), cErr)
	}
	if err != nil {
		if err != errHelp {
			logger.Error(fmt.Sprintf("error: %v", err), err)
		}
		os.Exit(1)
	}
}
