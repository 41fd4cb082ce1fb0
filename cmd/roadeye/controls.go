package main

import (
	"bufio"
	"io"
	"strings"
	"sync"
)

// readControls streams trimmed, lower-cased stdin lines. The channel closes
// at EOF.
func readControls(in io.Reader) <-chan string {
	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(in)
		for scanner.Scan() {
			lines <- strings.ToLower(strings.TrimSpace(scanner.Text()))
		}
	}()
	return lines
}

// tracker counts running tasks and signals on Idle whenever the count drops
// to zero. It keeps the first task error.
type tracker struct {
	mu     sync.Mutex
	active int
	err    error
	idle   chan struct{}
}

func (t *tracker) init() {
	if t.idle == nil {
		t.idle = make(chan struct{}, 1)
	}
}

// Go runs fn in a new goroutine.
func (t *tracker) Go(fn func() error) {
	t.mu.Lock()
	t.init()
	t.active++
	t.mu.Unlock()
	go func() {
		err := fn()
		t.mu.Lock()
		defer t.mu.Unlock()
		if err != nil && t.err == nil {
			t.err = err
		}
		t.active--
		if t.active == 0 {
			select {
			case t.idle <- struct{}{}:
			default:
			}
		}
	}()
}

// Idle returns the channel signalled when no task is running.
func (t *tracker) Idle() <-chan struct{} {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.init()
	return t.idle
}

// Active returns the number of running tasks.
func (t *tracker) Active() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.active
}

// Err returns the first task error.
func (t *tracker) Err() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.err
}
