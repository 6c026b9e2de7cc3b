package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"io"

	"github.com/trezcool/masomo-absences/core"
	"github.com/trezcool/masomo-absences/core/absence"
	"github.com/trezcool/masomo-absences/core/roster"
	"github.com/trezcool/masomo-absences/core/workflow"
)

var (
	errHelp  = errors.New("help provided")
	errNoSQL = errors.New("migrations need a postgres database")
)

type commandLine struct {
	conf     *core.Config
	db       *sql.DB // nil for the memory engine
	workflow *workflow.Service
	ledger   *absence.Ledger
	people   roster.Store
	out      io.Writer
}

func (cli *commandLine) printUsage() {
	fmt.Println("Usage:")
	fmt.Println("  migrate COMMAND [ARGS] - run a goose migration command (up, down, status, ...)")
	fmt.Println("  resolve -absence ID - retry substitute resolution of a teacher absence")
	fmt.Println("  setstatus -absence ID -status pending|approved|rejected - set an absence status")
	fmt.Println("  sweep -days N - retry resolution of the teacher absences of the next N days")
	fmt.Println("  token -person ID - issue an API token for a roster entry")
}

func (cli *commandLine) run(args []string) error {
	if len(args) < 2 {
		cli.printUsage()
		return errHelp
	}
	ctx := context.Background()

	resolveCmd := flag.NewFlagSet("resolve", flag.ContinueOnError)
	resolveAbsence := resolveCmd.String("absence", "", "The absence ID.")

	setStatusCmd := flag.NewFlagSet("setstatus", flag.ContinueOnError)
	setStatusAbsence := setStatusCmd.String("absence", "", "The absence ID.")
	setStatusStatus := setStatusCmd.String("status", "", "The new status.")

	sweepCmd := flag.NewFlagSet("sweep", flag.ContinueOnError)
	sweepDays := sweepCmd.Int("days", cli.conf.Sweep.Days, "Look-ahead window in days, today included.")

	tokenCmd := flag.NewFlagSet("token", flag.ContinueOnError)
	tokenPerson := tokenCmd.String("person", "", "The roster entry ID.")

	switch args[1] {
	case "migrate":
		if len(args) < 3 {
			cli.printUsage()
			return errHelp
		}
		return cli.migrate(args[2:])
	case "resolve":
		if err := resolveCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *resolveAbsence == "" {
			resolveCmd.Usage()
			return errHelp
		}
		return cli.resolve(ctx, *resolveAbsence)
	case "setstatus":
		if err := setStatusCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *setStatusAbsence == "" || *setStatusStatus == "" {
			setStatusCmd.Usage()
			return errHelp
		}
		return cli.setStatus(ctx, *setStatusAbsence, *setStatusStatus)
	case "sweep":
		if err := sweepCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *sweepDays < 1 {
			sweepCmd.Usage()
			return errHelp
		}
		return cli.sweep(ctx, *sweepDays)
	case "token":
		if err := tokenCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *tokenPerson == "" {
			tokenCmd.Usage()
			return errHelp
		}
		return cli.token(ctx, *tokenPerson)
	default:
		cli.printUsage()
		return errHelp
	}
}
