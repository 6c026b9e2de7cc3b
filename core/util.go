package core

import (
	"log"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"time"

	"github.com/kat-co/vala"
)

const DateLayout = "2006-01-02"

// NowFunc returns the current time; mockable.
var NowFunc = func() time.Time { return time.Now().UTC() }

// IsNotNil is vala.IsNotNil that also accepts values of non-nillable kinds (struct implementations
// of a dependency interface), which vala panics on.
func IsNotNil(obtained interface{}, paramName string) vala.Checker {
	if obtained != nil {
		switch reflect.ValueOf(obtained).Kind() {
		case reflect.Chan, reflect.Func, reflect.Interface, reflect.Map, reflect.Ptr, reflect.Slice, reflect.String:
		default:
			return func() (bool, string) { return true, "" }
		}
	}
	return vala.IsNotNil(obtained, paramName)
}

// CleanString trims all leading and trailing whitespace in `s` and optionally lowers it.
func CleanString(s string, lower ...bool) string {
	s = strings.TrimSpace(s)
	if len(lower) > 0 && lower[0] {
		return strings.ToLower(s)
	}
	return s
}

// ParseDate parses a calendar date given as "2006-01-02" or RFC3339 and returns it at UTC midnight.
func ParseDate(s string) (time.Time, error) {
	s = CleanString(s)
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		var rfcErr error
		if t, rfcErr = time.Parse(time.RFC3339, s); rfcErr != nil {
			return time.Time{}, err
		}
	}
	return DateOf(t), nil
}

// DateOf truncates `t` to its calendar date (UTC midnight).
func DateOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// Getwd tries to find the project root (the directory holding go.mod).
// go-test changes the working directory to the test package being run during tests,
// so the config dir cannot be resolved from os.Getwd alone.
// Falls back to the working directory when no go.mod is found (deployed binaries).
func Getwd() string {
	wd, err := os.Getwd()
	if err != nil {
		log.Fatal(err)
	}
	currDir := wd
	for {
		if fi, err := os.Stat(filepath.Join(currDir, "go.mod")); err == nil && !fi.IsDir() {
			return currDir
		}
		newDir := filepath.Dir(currDir)
		if newDir == string(os.PathSeparator) || newDir == currDir {
			return wd
		}
		currDir = newDir
	}
}
