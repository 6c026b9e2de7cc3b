package emailsvc

import (
	"net/http"
	"net/mail"
	"testing"
	"time"

	sgrest "github.com/sendgrid/rest"
	sgmail "github.com/sendgrid/sendgrid-go/helpers/mail"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/masomo-absences/core"
	logsvc "github.com/trezcool/masomo-absences/services/logger"
)

func testConfig() *core.Config {
	return &core.Config{
		AppName:          "Masomo",
		DefaultFromEmail: mail.Address{Name: "Masomo", Address: "noreply@masomo.test"},
	}
}

func Test_sendgridService_prepare(t *testing.T) {
	svc := NewSendgridService(testConfig(), logsvc.NewDiscardLogger()).(*sendgridService)

	msg := core.EmailMessage{
		To:      []mail.Address{{Name: "Jane", Address: "jane@masomo.test"}},
		Subject: "Teacher Absence Application",
		BodyStr: "Teacher Jane submitted an absence application.",
	}
	msg.Render()
	m := svc.prepare(msg)

	require.Len(t, m.Personalizations, 1)
	assert.Equal(t, "[Masomo] Teacher Absence Application", m.Personalizations[0].Subject)
	require.Len(t, m.Personalizations[0].To, 1)
	assert.Equal(t, "jane@masomo.test", m.Personalizations[0].To[0].Address)
	assert.Equal(t, "noreply@masomo.test", m.From.Address)
	require.Len(t, m.Content, 1)
	assert.Equal(t, "text/plain", m.Content[0].Type)
	assert.Equal(t, []string{category}, m.Categories)
}

type fakeSender struct {
	sent chan *sgmail.SGMailV3
	res  *sgrest.Response
	err  error
}

func (s *fakeSender) Send(email *sgmail.SGMailV3) (*sgrest.Response, error) {
	s.sent <- email
	return s.res, s.err
}

func Test_sendgridService_SendMessages(t *testing.T) {
	client := &fakeSender{sent: make(chan *sgmail.SGMailV3, 2), res: &sgrest.Response{StatusCode: http.StatusAccepted}}
	svc := NewSendgridService(testConfig(), logsvc.NewDiscardLogger()).(*sendgridService)
	svc.client = client

	svc.SendMessages(
		&core.EmailMessage{To: []mail.Address{{Address: "a@masomo.test"}}, Subject: "hi", BodyStr: "hello"},
		&core.EmailMessage{Subject: "no recipient", BodyStr: "dropped"},
	)

	select {
	case m := <-client.sent:
		assert.Equal(t, "[Masomo] hi", m.Personalizations[0].Subject)
	case <-time.After(time.Second):
		t.Fatal("message not sent")
	}
	select {
	case m := <-client.sent:
		t.Fatalf("unexpected message %q", m.Personalizations[0].Subject)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestConsoleServiceMock_SendMessages(t *testing.T) {
	svc := NewConsoleServiceMock(testConfig())

	svc.SendMessages(
		&core.EmailMessage{To: []mail.Address{{Address: "a@masomo.test"}}, Subject: "hi", BodyStr: "hello"},
		&core.EmailMessage{Subject: "no recipient", BodyStr: "dropped"},
		&core.EmailMessage{To: []mail.Address{{Address: "b@masomo.test"}}, Subject: "no content"},
	)

	sent := svc.SentMessages()
	require.Len(t, sent, 1)
	assert.Equal(t, "hello", sent[0].TextContent)
	assert.Contains(t, svc.format(sent[0]), "Subject: [Masomo] hi")
}
