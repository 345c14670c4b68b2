package emailsvc

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/mail"
	"strings"
	"testing"

	"github.com/pkg/errors"
	"github.com/sendgrid/rest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/darasa/core"
	appfs "github.com/trezcool/darasa/fs"
	"github.com/trezcool/darasa/testutil"
)

var (
	conf = &core.Config{
		AppName:         "Darasa",
		TestMode:        true,
		FrontendBaseURL: "http://darasa.test",
		SendgridApiKey:  "sg-key",
	}
	alice = mail.Address{Name: "Alice", Address: "alice@test.cd"}
)

func newMessage(t *testing.T) *core.EmailMessage {
	t.Helper()
	msg := &core.EmailMessage{
		To:      []mail.Address{alice},
		Subject: "Quiz report",
		BodyStr: "see attached",
	}
	require.NoError(t, msg.Attach(strings.NewReader("student,average\nBob,50.00\n"), "report.csv", "text/csv"))
	return msg
}

func TestConsoleServiceMock(t *testing.T) {
	logger := testutil.NewLogger()
	svc := NewConsoleServiceMock(conf, logger)

	svc.SendMessages(
		newMessage(t),
		&core.EmailMessage{Subject: "no recipients", BodyStr: "lost"},
		&core.EmailMessage{To: []mail.Address{alice}, Subject: "no content"},
	)

	sent := svc.SentMessages()
	require.Len(t, sent, 1)
	assert.Equal(t, "see attached", sent[0].TextContent)
	assert.Empty(t, logger.Entries())

	out, err := svc.Format(sent[0])
	require.NoError(t, err)
	assert.Contains(t, out, "Subject: [Darasa] Quiz report\r\n")
	assert.Contains(t, out, `To: "Alice" <alice@test.cd>`)
	assert.Contains(t, out, "Content-Type: multipart/mixed; boundary=")
	assert.Contains(t, out, "Content-Disposition: attachment; filename=report.csv")
	assert.NotContains(t, out, "CC:")
}

func TestConsoleServiceMock_Templates(t *testing.T) {
	logger := testutil.NewLogger()
	core.ParseEmailTemplates(appfs.FS, conf, logger)
	require.Empty(t, logger.Entries())

	type completion struct{ Complete, Partial, Missing int }
	type row struct{ Name, Average, Status string }
	svc := NewConsoleServiceMock(conf, logger)
	svc.SendMessages(&core.EmailMessage{
		To:           []mail.Address{alice},
		Subject:      "Quiz report",
		TemplateName: "assessment_report",
		TemplateData: struct {
			Title, CourseName, Recipient, ClassAverage string
			Completion                                 completion
			Students                                   []row
		}{
			Title:        "Quiz",
			CourseName:   "Maths",
			Recipient:    "Alice",
			ClassAverage: "62.50",
			Completion:   completion{Complete: 1, Partial: 1},
			Students:     []row{{Name: "Bob", Average: "50.00", Status: "partial"}},
		},
	})

	sent := svc.SentMessages()
	require.Len(t, sent, 1)
	assert.Contains(t, sent[0].TextContent, "Hello Alice,")
	assert.Contains(t, sent[0].TextContent, "Class average: 62.50")
	assert.Contains(t, sent[0].TextContent, "- Bob: 50.00 (partial)")
	assert.Contains(t, sent[0].TextContent, "http://darasa.test")
	assert.Contains(t, sent[0].HTMLContent, "Bob")

	// missing keys are errors in test mode
	svc.SendMessages(&core.EmailMessage{
		To:           []mail.Address{alice},
		TemplateName: "assessment_report",
		TemplateData: map[string]interface{}{"Title": "Quiz"},
	})
	assert.Len(t, svc.SentMessages(), 1)
	assert.Len(t, logger.Entries(), 1)
}

func TestSendgridService_Send(t *testing.T) {
	logger := testutil.NewLogger()
	svc := NewSendgridService(conf, logger).(*sendgridService)

	var got rest.Request
	svc.api = func(req rest.Request) (*rest.Response, error) {
		got = req
		return &rest.Response{StatusCode: http.StatusAccepted}, nil
	}

	msg := newMessage(t)
	require.NoError(t, msg.Render())
	svc.send(*msg)

	assert.Equal(t, http.MethodPost, string(got.Method))
	assert.Equal(t, "https://api.sendgrid.com/v3/mail/send", got.BaseURL)
	assert.Equal(t, "Bearer sg-key", got.Headers["Authorization"])

	var body struct {
		Personalizations []struct {
			To      []struct{ Email string } `json:"to"`
			Subject string                   `json:"subject"`
		} `json:"personalizations"`
		Content []struct {
			Type  string `json:"type"`
			Value string `json:"value"`
		} `json:"content"`
		Attachments []struct {
			Filename string `json:"filename"`
			Type     string `json:"type"`
		} `json:"attachments"`
	}
	require.NoError(t, json.NewDecoder(bytes.NewReader(got.Body)).Decode(&body))
	require.Len(t, body.Personalizations, 1)
	assert.Equal(t, "[Darasa] Quiz report", body.Personalizations[0].Subject)
	assert.Equal(t, "alice@test.cd", body.Personalizations[0].To[0].Email)
	require.Len(t, body.Content, 1)
	assert.Equal(t, "text/plain", body.Content[0].Type)
	require.Len(t, body.Attachments, 1)
	assert.Equal(t, "report.csv", body.Attachments[0].Filename)
	assert.Empty(t, logger.Entries())

	t.Run("failures are logged", func(t *testing.T) {
		svc.api = func(rest.Request) (*rest.Response, error) {
			return &rest.Response{StatusCode: http.StatusBadRequest, Body: "bad"}, nil
		}
		svc.send(*msg)
		svc.api = func(rest.Request) (*rest.Response, error) { return nil, errors.New("timeout") }
		svc.send(*msg)
		assert.Len(t, logger.Entries(), 2)
	})
}
