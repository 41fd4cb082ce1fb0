package polling

import "sync"

// Token is a one-shot cancellation latch shared by every poller launched
// for one batch. Resuming issues a fresh Token rather than resetting this one.
type Token struct {
	once sync.Once
	done chan struct{}
}

// NewToken returns an active token.
func NewToken() *Token {
	return &Token{done: make(chan struct{})}
}

// Cancel requests that pollers holding the token stop at their next check.
// It is safe to call more than once.
func (t *Token) Cancel() {
	if t == nil {
		return
	}
	t.once.Do(func() { close(t.done) })
}

// Cancelled reports whether Cancel has been called.
func (t *Token) Cancelled() bool {
	if t == nil {
		return false
	}
	select {
	case <-t.done:
		return true
	default:
		return false
	}
}

// Done returns a channel closed on cancellation. A nil token never fires.
func (t *Token) Done() <-chan struct{} {
	if t == nil {
		return nil
	}
	return t.done
}
