package smtp

import (
	"bytes"
	"context"
	"errors"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/magabrotheeeer/direct-tree/internal/lib/sl"
	"github.com/magabrotheeeer/direct-tree/internal/models"
)

type TransportMock struct{ mock.Mock }

func (m *TransportMock) Connect() (Client, error) {
	args := m.Called()
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(Client), args.Error(1)
}

func (m *TransportMock) GetSMTPUser() string { return "noreply@direct-tree.com" }

type bufferCloser struct{ bytes.Buffer }

func (b *bufferCloser) Close() error { return nil }

type ClientMock struct {
	mock.Mock
	body bufferCloser
}

func (m *ClientMock) Mail(from string) error { return m.Called(from).Error(0) }
func (m *ClientMock) Rcpt(to string) error   { return m.Called(to).Error(0) }
func (m *ClientMock) Data() (io.WriteCloser, error) {
	return &m.body, m.Called().Error(0)
}
func (m *ClientMock) Quit() error  { return m.Called().Error(0) }
func (m *ClientMock) Close() error { return nil }

func TestSender_Send(t *testing.T) {
	client := &ClientMock{}
	client.On("Mail", "noreply@direct-tree.com").Return(nil)
	client.On("Rcpt", "owner@x.com").Return(nil)
	client.On("Data").Return(nil)
	client.On("Quit").Return(nil)

	transport := &TransportMock{}
	transport.On("Connect").Return(client, nil)

	s := NewSender(transport, sl.Discard())
	err := s.Send(context.Background(), models.Email{To: "owner@x.com", Subject: "Verify", Text: "click"})
	require.NoError(t, err)

	body := client.body.String()
	assert.Contains(t, body, "To: owner@x.com")
	assert.Contains(t, body, "Subject: Verify")
	assert.Contains(t, body, "text/plain")
	client.AssertExpectations(t)
}

func TestSender_SendConnectError(t *testing.T) {
	transport := &TransportMock{}
	transport.On("Connect").Return(nil, errors.New("dial tcp: refused"))

	err := NewSender(transport, sl.Discard()).Send(context.Background(), models.Email{To: "a@b.c"})
	assert.ErrorContains(t, err, "refused")
}

func TestBuildMessage_HTML(t *testing.T) {
	msg := buildMessage("from@x.com", models.Email{To: "a@b.c", Subject: "s", Text: "t", HTML: "<b>h</b>"})
	assert.Contains(t, msg, "text/html")
	assert.Contains(t, msg, "<b>h</b>")
	assert.NotContains(t, msg, "\r\nt")
}
