package session

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Clock drives a session's countdown with one tick per second. It stops on
// its own the moment the session leaves ACTIVE, so at most one forced
// submit can ever fire.
type Clock struct {
	sess     *Session
	interval time.Duration
	stop     chan struct{}
	stopOnce sync.Once
	log      zerolog.Logger
}

// NewClock creates a clock for the session. The tick interval is one
// second; tests may shorten it.
func NewClock(sess *Session, log zerolog.Logger) *Clock {
	return &Clock{
		sess:     sess,
		interval: time.Second,
		stop:     make(chan struct{}),
		log: log.With().
			Str("component", "session_clock").
			Str("session_id", sess.ID.String()).
			Logger(),
	}
}

// Start runs the tick loop until the session leaves ACTIVE, Stop is called,
// or the context is cancelled. Call in a goroutine.
func (c *Clock) Start(ctx context.Context) {
	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-c.stop:
			return
		case <-ticker.C:
			if _, state := c.sess.Tick(ctx); state != StateActive {
				c.log.Debug().Str("state", string(state)).Msg("Clock stopped")
				return
			}
		}
	}
}

// Stop terminates the tick loop. Safe to call more than once.
func (c *Clock) Stop() {
	c.stopOnce.Do(func() { close(c.stop) })
}
