package mailer

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/streadway/amqp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/magabrotheeeer/direct-tree/internal/lib/sl"
	"github.com/magabrotheeeer/direct-tree/internal/models"
)

type MockSender struct {
	mock.Mock
}

func (m *MockSender) Send(ctx context.Context, email models.Email) error {
	args := m.Called(ctx, email)
	return args.Error(0)
}

type recordingSender struct {
	mu   sync.Mutex
	sent []models.Email
	err  error
}

func (r *recordingSender) Send(_ context.Context, email models.Email) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = append(r.sent, email)
	return r.err
}

func TestPool_SendsAllOnClose(t *testing.T) {
	sender := &recordingSender{}
	p := NewPool(sender, 3, 10, sl.Discard())

	for i := 0; i < 5; i++ {
		p.Enqueue(models.Email{To: "a@b.c", Subject: "s"})
	}
	p.Close()

	assert.Len(t, sender.sent, 5)
}

func TestPool_SenderErrorIsSwallowed(t *testing.T) {
	sender := &recordingSender{err: errors.New("mailgun down")}
	p := NewPool(sender, 1, 1, sl.Discard())

	assert.NotPanics(t, func() {
		p.Enqueue(models.Email{To: "a@b.c"})
		p.Close()
	})
	assert.Len(t, sender.sent, 1)
}

func TestPool_EnqueueAfterCloseIsDropped(t *testing.T) {
	sender := &recordingSender{}
	p := NewPool(sender, 1, 1, sl.Discard())
	p.Close()

	p.Enqueue(models.Email{To: "late@b.c"})
	p.Close()
	assert.Empty(t, sender.sent)
}

type blockingSender struct {
	release chan struct{}
}

func (b *blockingSender) Send(context.Context, models.Email) error {
	<-b.release
	return nil
}

func TestPool_FullQueueDoesNotBlock(t *testing.T) {
	sender := &blockingSender{release: make(chan struct{})}
	p := NewPool(sender, 1, 1, sl.Discard())

	done := make(chan struct{})
	go func() {
		for i := 0; i < 10; i++ {
			p.Enqueue(models.Email{To: "a@b.c"})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Enqueue blocked on a full queue")
	}
	close(sender.release)
	p.Close()
}

type fakeChannel struct {
	key  string
	body []byte
	err  error
}

func (f *fakeChannel) Publish(_, key string, _, _ bool, msg amqp.Publishing) error {
	f.key, f.body = key, msg.Body
	return f.err
}

func TestQueue_Enqueue(t *testing.T) {
	ch := &fakeChannel{}
	q := NewQueue(ch, sl.Discard())

	q.Enqueue(models.Email{To: "owner@x.com", Subject: "Verify"})

	assert.Equal(t, "email", ch.key)
	var got models.Email
	require.NoError(t, json.Unmarshal(ch.body, &got))
	assert.Equal(t, "owner@x.com", got.To)
}

func TestQueue_PublishErrorIsSwallowed(t *testing.T) {
	q := NewQueue(&fakeChannel{err: errors.New("closed")}, sl.Discard())
	assert.NotPanics(t, func() { q.Enqueue(models.Email{To: "a@b.c"}) })
}

func TestHandler(t *testing.T) {
	sender := &MockSender{}
	email := models.Email{To: "owner@x.com", Subject: "Verify", Text: "t"}
	sender.On("Send", mock.Anything, email).Return(nil).Once()

	body, _ := json.Marshal(email)
	require.NoError(t, Handler(sender)(body))
	sender.AssertExpectations(t)
}

func TestHandler_Errors(t *testing.T) {
	sender := &MockSender{}
	sender.On("Send", mock.Anything, mock.Anything).Return(errors.New("smtp: 550"))

	assert.Error(t, Handler(sender)([]byte("{bad")))
	assert.Error(t, Handler(sender)([]byte(`{"subject":"no recipient"}`)))
	assert.ErrorContains(t, Handler(sender)([]byte(`{"to":"a@b.c"}`)), "550")
}

func TestVerificationEmail(t *testing.T) {
	e := VerificationEmail("a@b.c", "Ann", "https://direct-tree.com/", "tok-1")
	assert.Equal(t, "a@b.c", e.To)
	assert.Contains(t, e.Text, "https://direct-tree.com/verify-email?token=tok-1")
	assert.Contains(t, e.HTML, "Ann")
}

func TestVerificationEmail_EscapesHTML(t *testing.T) {
	e := VerificationEmail("victim@b.c", `<a href="https://evil.example">Reset password</a><script>alert(1)</script>`,
		"https://direct-tree.com", "tok-1")

	assert.NotContains(t, e.HTML, "<a href=\"https://evil.example\"")
	assert.NotContains(t, e.HTML, "<script>")
	assert.Contains(t, e.HTML, "&lt;a href=&#34;https://evil.example&#34;&gt;")
	assert.Contains(t, e.HTML, "&lt;script&gt;")
	assert.Contains(t, e.HTML, `<a href="https://direct-tree.com/verify-email?token=tok-1">`)
}

func TestBusinessStatusEmail(t *testing.T) {
	tests := []struct {
		status  models.ModerationStatus
		subject string
	}{
		{models.ModerationApproved, "Your business listing has been approved"},
		{models.ModerationRejected, "Your business listing was not approved"},
		{models.ModerationSuspended, "Your business listing has been suspended"},
		{models.ModerationPending, "Your business listing is awaiting review"},
	}

	for _, tt := range tests {
		t.Run(string(tt.status), func(t *testing.T) {
			e := BusinessStatusEmail("owner@x.com", "Conch Shack", tt.status)
			assert.Equal(t, tt.subject, e.Subject)
			assert.Contains(t, e.Text, "Conch Shack")
		})
	}
}
