package logsvc

import (
	"io"
	"log"

	"github.com/rollbar/rollbar-go"
	"github.com/rollbar/rollbar-go/errors"

	"github.com/trezcool/masomo-absences/core"
	"github.com/trezcool/masomo-absences/core/roster"
)

type RollbarLogger struct {
	std   *log.Logger
	quiet bool // skip rollbar
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

// NewDiscardLogger returns a logger that reports nowhere; for tests.
func NewDiscardLogger() *RollbarLogger {
	return &RollbarLogger{std: log.New(io.Discard, "", 0), quiet: true}
}

func (l RollbarLogger) Enable(enabled bool) {
	rollbar.SetEnabled(enabled)
}

// expected fmt: msg | error, map[string]interface{}, roster.Entry
func (l RollbarLogger) prepare(msg string, args []interface{}) []interface{} {
	var personSet bool
	newArgs := make([]interface{}, 0, len(args)+1)
	newArgs = append(newArgs, msg)
	for _, arg := range args {
		// set acting person
		if person, ok := arg.(roster.Entry); ok {
			if !personSet { // only set one person
				rollbar.SetPerson(person.ID, person.Name, person.Email)
				personSet = true
			}
		} else {
			newArgs = append(newArgs, arg)
		}
	}
	if !personSet {
		rollbar.ClearPerson()
	}
	return newArgs
}

func (l RollbarLogger) print(msg string, args []interface{}) {
	l.std.Println(msg)
	for _, arg := range args {
		l.std.Printf("%+v\n", arg)
	}
}

func (l RollbarLogger) Debug(msg string, args ...interface{}) {
	if !l.quiet {
		rollbar.Debug(l.prepare(msg, args)...)
	}
	l.print(msg, args)
}

func (l RollbarLogger) Info(msg string, args ...interface{}) {
	if !l.quiet {
		rollbar.Info(l.prepare(msg, args)...)
	}
	l.print(msg, args)
}

func (l RollbarLogger) Warn(msg string, args ...interface{}) {
	if !l.quiet {
		rollbar.Warning(l.prepare(msg, args)...)
	}
	l.print(msg, args)
}

func (l RollbarLogger) Error(msg string, args ...interface{}) {
	if !l.quiet {
		rollbar.Error(l.prepare(msg, args)...)
	}
	l.print(msg, args)
}

func (l RollbarLogger) Fatal(msg string, args ...interface{}) {
	if !l.quiet {
		rollbar.Critical(l.prepare(msg, args)...)
	}
	l.print(msg, args)
	l.std.Fatal(msg)
}
