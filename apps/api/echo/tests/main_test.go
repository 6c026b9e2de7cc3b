package tests

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"

	echoapi "github.com/trezcool/masomo-absences/apps/api/echo"
	"github.com/trezcool/masomo-absences/core"
	"github.com/trezcool/masomo-absences/core/absence"
	"github.com/trezcool/masomo-absences/core/notification"
	"github.com/trezcool/masomo-absences/core/roster"
	"github.com/trezcool/masomo-absences/core/substitute"
	"github.com/trezcool/masomo-absences/core/workflow"
	logsvc "github.com/trezcool/masomo-absences/services/logger"
	pushsvc "github.com/trezcool/masomo-absences/services/push"
	"github.com/trezcool/masomo-absences/storage/database"
	inmemdb "github.com/trezcool/masomo-absences/storage/database/inmem"
	"github.com/trezcool/masomo-absences/tests"
)

var errMissingToken = httpErr{Error: "missing or malformed jwt"}

type testApp struct {
	*echoapi.Server
	conf  *core.Config
	db    *inmemdb.DB
	repos *database.Repositories
	push  *pushsvc.MockGateway
}

func setup(t *testing.T) testApp {
	conf := testutil.NewConfig()
	logger := logsvc.NewDiscardLogger()
	validate, translator := testutil.NewValidator()

	// set up DB & repos
	db := inmemdb.Open()
	repos := database.NewInMemRepositories(db)

	// set up services
	push := pushsvc.NewMockGateway()
	ledger := absence.NewLedger(repos.Absences, repos.Schedule, repos.Roster, validate, translator)
	resolver := substitute.NewService(repos.Resolutions, repos.Schedule, repos.Roster, ledger, logger)
	fanout := notification.NewFanout(repos.Notifications, repos.Roster, repos.Schedule, push, nil, logger, notification.Options{
		Concurrency: conf.Notify.Concurrency,
		PushTimeout: conf.Notify.PushTimeout,
	})

	// set up server
	server := echoapi.NewServer(echoapi.ServerDeps{
		Conf:       conf,
		Logger:     logger,
		Workflow:   workflow.NewService(ledger, resolver, fanout, logger),
		Ledger:     ledger,
		Inbox:      notification.NewService(repos.Notifications),
		Roster:     repos.Roster,
		Validate:   validate,
		Translator: translator,
	})
	t.Cleanup(func() { _ = server.Close() })

	return testApp{Server: server, conf: conf, db: db, repos: repos, push: push}
}

type httpErr struct {
	Error string `json:"error"`
}

type httpTest struct {
	name     string
	method   string
	path     string
	body     []byte
	token    string
	wantCode int
	wantData []byte
	extra    interface{}
}

func newAuthRequest(method, path, token string, data ...[]byte) (*http.Request, *httptest.ResponseRecorder) {
	var body bytes.Buffer
	if len(data) > 0 {
		body.Write(data[0])
	}
	req := httptest.NewRequest(method, path, &body)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	return req, rec
}

func getToken(t *testing.T, app testApp, person roster.Entry) string {
	claims := echoapi.GetPersonClaims(person, app.conf)
	token, err := echoapi.GenerateToken(claims, app.conf.SecretKey)
	if err != nil {
		t.Fatalf("getToken() failed: %v", err)
	}
	return token
}

func marchallObj(t *testing.T, obj interface{}) []byte {
	data, err := json.Marshal(obj)
	if err != nil {
		t.Fatalf("marchallObj() failed: %v", err)
	}
	return data
}

func marchallList(t *testing.T, objs ...interface{}) []byte {
	if objs == nil {
		objs = []interface{}{}
	}
	data, err := json.Marshal(objs)
	if err != nil {
		t.Fatalf("marchallList() failed: %v", err)
	}
	return data
}

func unmarshal(t *testing.T, rec *httptest.ResponseRecorder, v interface{}) {
	if err := json.Unmarshal(rec.Body.Bytes(), v); err != nil {
		t.Fatalf("unmarshal() failed: %v; body %s", err, rec.Body.String())
	}
}

func jsonBytesEqual(b1, b2 []byte) (bool, error) {
	var j1, j2 interface{}
	if err := json.Unmarshal(b1, &j1); err != nil {
		return false, err
	}
	if err := json.Unmarshal(b2, &j2); err != nil {
		return false, err
	}
	return reflect.DeepEqual(j1, j2), nil
}

func checkCodeAndData(t *testing.T, tt httpTest, rec *httptest.ResponseRecorder) {
	if rec.Code != tt.wantCode {
		t.Errorf("failed! code = %v; wantCode %v", rec.Code, tt.wantCode)
	}
	if tt.wantData == nil {
		return
	}
	ok, err := jsonBytesEqual(rec.Body.Bytes(), tt.wantData)
	if err != nil {
		t.Errorf("jsonBytesEqual() failed to compare; err %v", err)
	}
	if !ok {
		t.Errorf("failed! data = %v; wantData %v", rec.Body.String(), string(tt.wantData))
	}
}

func runTests(t *testing.T, app testApp, tests []httpTest) {
	for _, tt := range tests {
		tt := tt
		if tt.method == "" {
			tt.method = http.MethodGet
		}
		if tt.wantCode == 0 {
			tt.wantCode = http.StatusOK
		}
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(tt.method, tt.path, tt.token, tt.body)
			app.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}
}

func Test_home(t *testing.T) {
	app := setup(t)
	req, rec := newAuthRequest(http.MethodGet, "/", "")
	app.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Welcome to Masomo Absences API!", rec.Body.String())
}
