package main

import (
	"context"
	"fmt"
	"time"

	"github.com/pkg/errors"

	echoapi "github.com/trezcool/masomo-absences/apps/api/echo"
	"github.com/trezcool/masomo-absences/core"
	"github.com/trezcool/masomo-absences/core/absence"
)

func (cli *commandLine) resolve(ctx context.Context, absenceID string) error {
	res, err := cli.workflow.Reresolve(ctx, absenceID)
	if err != nil {
		return errors.Wrap(err, "resolving substitute")
	}
	switch {
	case res.Resolution.Replayed:
		_, _ = fmt.Fprintf(cli.out, "absence %s already covered by %s\n", absenceID, res.Resolution.SubstituteID)
	case res.Resolution.Assigned():
		_, _ = fmt.Fprintf(cli.out, "absence %s covered by %s (%d slots)\n", absenceID, res.Resolution.SubstituteID, len(res.Resolution.EntryIDs))
	default:
		_, _ = fmt.Fprintf(cli.out, "absence %s not covered: %s\n", absenceID, res.Resolution.Outcome)
	}
	return nil
}

func (cli *commandLine) setStatus(ctx context.Context, absenceID, status string) error {
	rec, err := cli.ledger.SetStatus(ctx, absenceID, absence.UpdateStatus{Status: status})
	if err != nil {
		return errors.Wrap(err, "setting absence status")
	}
	_, _ = fmt.Fprintf(cli.out, "absence %s is %s\n", rec.ID, rec.Status)
	return nil
}

func (cli *commandLine) sweep(ctx context.Context, days int) error {
	from := core.DateOf(core.NowFunc())
	to := from.AddDate(0, 0, days-1)

	ctx, cancel := context.WithTimeout(ctx, 5*time.Minute)
	defer cancel()

	n, err := cli.workflow.Sweep(ctx, from, to)
	if err != nil {
		return errors.Wrap(err, "sweeping absences")
	}
	_, _ = fmt.Fprintf(cli.out, "%s..%s: %d substitutes assigned\n", from.Format(core.DateLayout), to.Format(core.DateLayout), n)
	return nil
}

func (cli *commandLine) token(ctx context.Context, personID string) error {
	person, err := cli.people.FindByID(ctx, personID)
	if err != nil {
		return errors.Wrap(err, "finding person")
	}
	if person.Disabled {
		return errors.Errorf("person %s is disabled", personID)
	}
	token, err := echoapi.GenerateToken(echoapi.GetPersonClaims(person, cli.conf), cli.conf.SecretKey)
	if err != nil {
		return errors.Wrap(err, "generating token")
	}
	_, _ = fmt.Fprintln(cli.out, token)
	return nil
}
