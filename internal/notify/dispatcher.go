package notify

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

const defaultSendTimeout = 15 * time.Second

// Dispatcher sends mail in the background. Failures are logged and never
// reported to the caller.
type Dispatcher struct {
	mailer  Mailer
	timeout time.Duration
	wg      sync.WaitGroup
}

func NewDispatcher(mailer Mailer) *Dispatcher {
	return &Dispatcher{mailer: mailer, timeout: defaultSendTimeout}
}

func (d *Dispatcher) SendAsync(mails ...Mail) {
	for _, m := range mails {
		d.wg.Add(1)
		go func(m Mail) {
			defer d.wg.Done()
			ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
			defer cancel()
			if err := d.mailer.Send(ctx, m); err != nil {
				log.Error().Err(err).Str("to", m.To).Str("subject", m.Subject).Msg("background mail failed")
			}
		}(m)
	}
}

// Wait blocks until every queued send has finished.
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}
