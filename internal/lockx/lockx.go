// Package lockx provides a mutex whose acquisition gives up after a short,
// bounded wait instead of blocking forever.
package lockx

import (
	"sync"
	"time"

	"filethings/internal/apperr"
)

const (
	DefaultPoll   = 10 * time.Millisecond
	DefaultBudget = 200 * time.Millisecond
)

var sleep = time.Sleep

// Mutex is a named mutex acquired with a poll loop.
type Mutex struct {
	Name   string
	Poll   time.Duration
	Budget time.Duration

	mu sync.Mutex
}

// New returns a Mutex with the default 10ms/200ms policy.
func New(name string) *Mutex {
	return &Mutex{Name: name, Poll: DefaultPoll, Budget: DefaultBudget}
}

// Acquire tries the lock, sleeping Poll between attempts, and fails with a
// lock-timeout error once Budget has elapsed. The returned func releases it.
func (m *Mutex) Acquire() (func(), error) {
	poll, budget := m.Poll, m.Budget
	if poll <= 0 {
		poll = DefaultPoll
	}
	if budget <= 0 {
		budget = DefaultBudget
	}

	start := time.Now()
	for {
		if m.mu.TryLock() {
			return m.mu.Unlock, nil
		}
		if time.Since(start) > budget {
			return nil, apperr.LockTimeout("Failed to acquire lock %s", m.Name)
		}
		sleep(poll)
	}
}

// With runs fn while holding the lock.
func (m *Mutex) With(fn func() error) error {
	unlock, err := m.Acquire()
	if err != nil {
		return err
	}
	defer unlock()
	return fn()
}
