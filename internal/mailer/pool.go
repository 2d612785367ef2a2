package mailer

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/magabrotheeeer/direct-tree/internal/lib/sl"
	"github.com/magabrotheeeer/direct-tree/internal/models"
)

const sendTimeout = 30 * time.Second

// Pool отправляет письма пулом горутин внутри процесса API.
type Pool struct {
	sender EmailSender
	log    *slog.Logger
	queue  chan models.Email
	wg     sync.WaitGroup

	mu     sync.RWMutex
	closed bool
}

// NewPool запускает workers обработчиков с буфером buffer писем.
func NewPool(sender EmailSender, workers, buffer int, log *slog.Logger) *Pool {
	if workers < 1 {
		workers = 1
	}
	p := &Pool{
		sender: sender,
		log:    log,
		queue:  make(chan models.Email, buffer),
	}
	for i := 0; i < workers; i++ {
		p.wg.Add(1)
		go p.worker()
	}
	return p
}

// Enqueue кладёт письмо в очередь. Если буфер заполнен или пул закрыт,
// письмо отбрасывается с записью в лог.
func (p *Pool) Enqueue(email models.Email) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		p.log.Warn("mailer is closed, email dropped", slog.String("to", email.To))
		return
	}
	select {
	case p.queue <- email:
	default:
		p.log.Error("mailer queue is full, email dropped", slog.String("to", email.To))
	}
}

// Close перестаёт принимать письма и дожидается отправки уже принятых.
func (p *Pool) Close() {
	p.mu.Lock()
	if !p.closed {
		p.closed = true
		close(p.queue)
	}
	p.mu.Unlock()
	p.wg.Wait()
}

func (p *Pool) worker() {
	defer p.wg.Done()
	for email := range p.queue {
		ctx, cancel := context.WithTimeout(context.Background(), sendTimeout)
		if err := p.sender.Send(ctx, email); err != nil {
			p.log.Error("failed to send email",
				slog.String("to", email.To),
				slog.String("subject", email.Subject),
				sl.Err(err),
			)
		}
		cancel()
	}
}
