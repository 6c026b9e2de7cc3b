package testutil

import (
	"context"
	"net/mail"
	"strings"
	"testing"
	"time"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/trezcool/masomo-absences/core"
	"github.com/trezcool/masomo-absences/core/roster"
	"github.com/trezcool/masomo-absences/core/schedule"
)

func NewConfig() *core.Config {
	return &core.Config{
		Env:              "TEST",
		TestMode:         true,
		AppName:          "Masomo",
		SecretKey:        "test-secret",
		DefaultFromEmail: mail.Address{Name: "Masomo", Address: "noreply@masomo.test"},
		Server: core.ServerConfig{
			JWTExpirationDelta: time.Hour,
			DisableReqLogs:     true,
		},
		Database: core.DatabaseConfig{Engine: "memory"},
		Notify:   core.NotifyConfig{Concurrency: 4, PushTimeout: time.Second},
	}
}

func NewValidator() (*validator.Validate, ut.Translator) {
	_en := en.New()
	translator, _ := ut.New(_en, _en).GetTranslator("en")
	validate := validator.New()
	core.InitValidators(validate, translator)
	return validate, translator
}

func Date(t *testing.T, s string) time.Time {
	d, err := core.ParseDate(s)
	if err != nil {
		t.Fatalf("Date() failed: %v", err)
	}
	return d
}

func CreatePerson(
	t *testing.T,
	repo roster.Repository,
	name, role, pushHandle string,
	disabled bool,
) roster.Entry {
	entry, err := repo.CreateEntry(context.Background(), roster.Entry{
		Name:       name,
		Email:      strings.ReplaceAll(strings.ToLower(name), " ", ".") + "@masomo.test",
		Role:       role,
		Disabled:   disabled,
		PushHandle: pushHandle,
	})
	if err != nil {
		t.Fatalf("CreatePerson() failed: %v", err)
	}
	return entry
}

func CreateClass(t *testing.T, repo schedule.Repository, name, hodID string, studentIDs ...string) schedule.Class {
	class, err := repo.CreateClass(context.Background(), schedule.Class{Name: name, HODID: hodID, StudentIDs: studentIDs})
	if err != nil {
		t.Fatalf("CreateClass() failed: %v", err)
	}
	return class
}

func CreateEntry(
	t *testing.T,
	repo schedule.Repository,
	classID, teacherID string,
	day time.Weekday,
	start, end string,
) schedule.Entry {
	entry, err := repo.CreateEntry(context.Background(), schedule.Entry{
		ClassID:   classID,
		Day:       day,
		StartTime: start,
		EndTime:   end,
		TeacherID: teacherID,
	})
	if err != nil {
		t.Fatalf("CreateEntry() failed: %v", err)
	}
	return entry
}
