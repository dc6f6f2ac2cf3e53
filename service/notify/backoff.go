package notify

import "time"

// BackoffConf bounds the reconnect schedule. Zero values fall back to the
// defaults via norm.
type BackoffConf struct {
	Base        time.Duration // first-step delay unit
	Max         time.Duration // delay cap
	MaxAttempts int           // retries before the terminal failed state
}

func (c *BackoffConf) norm() {
	if c.Base <= 0 {
		c.Base = 1 * time.Second
	}
	if c.Max <= 0 {
		c.Max = 30 * time.Second
	}
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = 5
	}
}

// ReconnectPolicy decides retry timing after an unexpected disconnect:
// min(base * 2^attempt, max), with the attempt counter incremented before the
// delay is computed. Not goroutine-safe; the connection manager serializes
// access under its own lock.
type ReconnectPolicy struct {
	conf     BackoffConf
	attempts int
}

func NewReconnectPolicy(conf BackoffConf) *ReconnectPolicy {
	conf.norm()
	return &ReconnectPolicy{conf: conf}
}

// Next returns the delay before the next attempt, or false when attempts are
// exhausted and the caller must surface terminal failure.
func (p *ReconnectPolicy) Next() (time.Duration, bool) {
	if p.attempts >= p.conf.MaxAttempts {
		return 0, false
	}
	p.attempts++
	d := p.conf.Base * time.Duration(1<<uint(p.attempts))
	if d > p.conf.Max {
		d = p.conf.Max
	}
	return d, true
}

// Reset zeroes the counter; called on every successful connection and on an
// explicit external connect.
func (p *ReconnectPolicy) Reset() { p.attempts = 0 }

func (p *ReconnectPolicy) Attempts() int { return p.attempts }
