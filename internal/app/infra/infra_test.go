package infra

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/magabrotheeeer/direct-tree/internal/config"
	"github.com/magabrotheeeer/direct-tree/internal/lib/sl"
	"github.com/magabrotheeeer/direct-tree/internal/lib/smtp"
	"github.com/magabrotheeeer/direct-tree/internal/mailer"
	"github.com/magabrotheeeer/direct-tree/internal/providers/mailgun"
	"github.com/magabrotheeeer/direct-tree/internal/storage/repository"
)

func TestEmailSender(t *testing.T) {
	cfg := &config.Config{}

	cfg.Provider = "mailgun"
	sender, err := EmailSender(cfg, sl.Discard())
	require.NoError(t, err)
	assert.IsType(t, &mailgun.Client{}, sender)

	cfg.Provider = "smtp"
	sender, err = EmailSender(cfg, sl.Discard())
	require.NoError(t, err)
	assert.IsType(t, &smtp.Sender{}, sender)

	cfg.Provider = "pigeon"
	_, err = EmailSender(cfg, sl.Discard())
	assert.ErrorContains(t, err, "pigeon")
}

func TestMailer(t *testing.T) {
	cfg := &config.Config{}
	cfg.Provider = "smtp"
	cfg.Workers = 1
	cfg.Buffer = 1

	cfg.Driver = "local"
	m, closeFn, err := Mailer(cfg, sl.Discard())
	require.NoError(t, err)
	assert.IsType(t, &mailer.Pool{}, m)
	closeFn()

	cfg.Driver = "carrier"
	_, _, err = Mailer(cfg, sl.Discard())
	assert.ErrorContains(t, err, "carrier")
}

func TestWaitForDB(t *testing.T) {
	db := &repository.Storage{}

	t.Run("ready on first attempt", func(t *testing.T) {
		calls := 0
		err := waitForDB(context.Background(), db, func(context.Context, *repository.Storage) error {
			calls++
			return nil
		}, sl.Discard())
		require.NoError(t, err)
		assert.Equal(t, 1, calls)
	})

	t.Run("stops when context is cancelled", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		err := waitForDB(ctx, db, func(context.Context, *repository.Storage) error {
			return errors.New("relation accounts does not exist")
		}, sl.Discard())
		assert.ErrorIs(t, err, context.Canceled)
	})
}
