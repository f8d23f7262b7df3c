package notify

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/gomail.v2"

	"github.com/recipebook/recipebook-server/internal/config"
	"github.com/recipebook/recipebook-server/internal/domain"
)

type recordingMailer struct {
	mu   sync.Mutex
	sent []Message
	err  error
}

func (m *recordingMailer) Send(_ context.Context, msg Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, msg)
	return m.err
}

func (m *recordingMailer) messages() []Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Message(nil), m.sent...)
}

type fakeSES struct {
	input *ses.SendEmailInput
	err   error
}

func (f *fakeSES) SendEmail(_ context.Context, in *ses.SendEmailInput, _ ...func(*ses.Options)) (*ses.SendEmailOutput, error) {
	f.input = in
	return &ses.SendEmailOutput{MessageId: aws.String("msg-1")}, f.err
}

type fakeDialer struct {
	sent []*gomail.Message
}

func (f *fakeDialer) DialAndSend(m ...*gomail.Message) error {
	f.sent = append(f.sent, m...)
	return nil
}

func drain(t *testing.T, n *Notifier) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, n.Shutdown(ctx))
}

func TestNotifier_DeliversQueuedMessages(t *testing.T) {
	m := &recordingMailer{}
	n := NewNotifier(m, "https://recipes.example.com", 10, nil)

	u := &domain.User{Record: domain.Record{ID: "usr-1"}, Email: "a@example.com", Name: "Ada"}
	n.SendVerification(u, "tok123", 24*time.Hour)
	n.SendPasswordReset(u, "reset456", time.Hour)
	drain(t, n)

	sent := m.messages()
	require.Len(t, sent, 2)
	assert.Equal(t, "a@example.com", sent[0].To)
	assert.Contains(t, sent[0].HTML, "https://recipes.example.com/verify-email/tok123")
	assert.Contains(t, sent[0].HTML, "24 hours")
	assert.Contains(t, sent[1].HTML, "/reset-password/reset456")
	assert.Contains(t, sent[1].HTML, "1 hour")
}

func TestNotifier_FailuresAreSwallowed(t *testing.T) {
	m := &recordingMailer{err: errors.New("smtp down")}
	n := NewNotifier(m, "", 10, nil)

	assert.True(t, n.Enqueue(Message{To: "a@example.com", Subject: "hi"}))
	drain(t, n)

	assert.Len(t, m.messages(), 1)
}

func TestNotifier_DropsAfterShutdownAndWithoutRecipient(t *testing.T) {
	n := NewNotifier(&recordingMailer{}, "", 1, nil)

	assert.False(t, n.Enqueue(Message{Subject: "no recipient"}))
	drain(t, n)
	assert.False(t, n.Enqueue(Message{To: "a@example.com"}))
	drain(t, n) // second shutdown is harmless
}

func TestNotifier_EscapesUserContent(t *testing.T) {
	m := &recordingMailer{}
	n := NewNotifier(m, "http://client", 10, nil)

	owner := &domain.User{Name: "<b>Mallory</b>"}
	r := &domain.Recipe{Record: domain.Record{ID: "rcp-1"}, Title: "Pie"}
	n.SendRecipeShared("b@example.com", owner, r, domain.PermissionCopy, "<script>x</script>")
	drain(t, n)

	sent := m.messages()
	require.Len(t, sent, 1)
	assert.NotContains(t, sent[0].HTML, "<script>")
	assert.Contains(t, sent[0].HTML, "&lt;script&gt;")
	assert.Contains(t, sent[0].HTML, "http://client/recipes/rcp-1")
	assert.Contains(t, sent[0].HTML, "copy access")
}

func TestSESMailer_Send(t *testing.T) {
	api := &fakeSES{}
	m := NewSESMailer(api, "no-reply@example.com")

	err := m.Send(context.Background(), Message{
		To:      "a@example.com",
		Subject: "Hello",
		HTML:    "<p>Hi <a href=\"http://x\">there</a></p>",
	})
	require.NoError(t, err)

	require.NotNil(t, api.input)
	assert.Equal(t, "no-reply@example.com", aws.ToString(api.input.Source))
	assert.Equal(t, []string{"a@example.com"}, api.input.Destination.ToAddresses)
	assert.Equal(t, "Hello", aws.ToString(api.input.Message.Subject.Data))
	assert.Equal(t, "Hi there (http://x)", aws.ToString(api.input.Message.Body.Text.Data))
	assert.NotNil(t, api.input.Message.Body.Html)
}

func TestSESMailer_Error(t *testing.T) {
	m := NewSESMailer(&fakeSES{err: errors.New("throttled")}, "x@example.com")

	err := m.Send(context.Background(), Message{To: "a@example.com"})
	assert.ErrorContains(t, err, "throttled")
}

func TestSMTPMailer_Send(t *testing.T) {
	d := &fakeDialer{}
	m := NewSMTPMailer(config.MailConfig{SMTPHost: "localhost", SMTPPort: 25, From: "from@example.com"})
	m.dialer = d

	require.NoError(t, m.Send(context.Background(), Message{To: "a@example.com", Subject: "S", HTML: "<p>x</p>"}))

	require.Len(t, d.sent, 1)
	assert.Equal(t, []string{"a@example.com"}, d.sent[0].GetHeader("To"))
	assert.Equal(t, []string{"from@example.com"}, d.sent[0].GetHeader("From"))
}

func TestNewMailer_DefaultsToLog(t *testing.T) {
	m, err := NewMailer(context.Background(), config.MailConfig{Provider: config.MailProviderLog}, nil)
	require.NoError(t, err)

	_, ok := m.(*LogMailer)
	assert.True(t, ok)
	assert.NoError(t, m.Send(context.Background(), Message{To: "a@example.com"}))
}

func TestPlainText(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"paragraphs", "<h2>Title</h2><p>Hello   <b>world</b></p>", "Title\n\nHello world"},
		{"links", `<p>Go <a href="https://x.io/a">here</a> now</p>`, "Go here (https://x.io/a) now"},
		{"line breaks", "one<br>two<br/>three", "one\ntwo\nthree"},
		{"scripts dropped", "<style>p{}</style><p>kept</p><script>alert(1)</script>", "kept"},
		{"entities", "<p>Fish &amp; chips</p>", "Fish & chips"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, PlainText(tt.in))
		})
	}
}
