// Package refill provides concrete backlog sources an application can wire
// into engine.WithRefillHook (spec §4.5 "external backlog source").
package refill

import (
	"sync"

	"github.com/viant/xfer/transfer"
)

// Submitter is the subset of engine.Engine a refill hook needs; satisfied by
// *engine.Engine.
type Submitter interface {
	Submit(t transfer.Transfer, frontInsert bool, delaySeconds float64)
}

// Slice is an in-memory FIFO RefillSource, for tests and small crawls: push
// Transfers onto it ahead of time, then wire Hook as the Engine's refill
// hook to drain it as the backlog runs low.
type Slice struct {
	mu    sync.Mutex
	items []transfer.Transfer
}

// NewSlice returns an empty Slice source.
func NewSlice() *Slice { return &Slice{} }

// Push appends Transfers to the tail of the source queue.
func (s *Slice) Push(items ...transfer.Transfer) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items = append(s.items, items...)
}

// Len reports how many Transfers remain unclaimed.
func (s *Slice) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.items)
}

// Hook is an engine.RefillHook: it submits Transfers from the front of the
// source until either the source is empty or the backlog reaches
// maxConcurrency.
func (s *Slice) Hook(eng Submitter) func(backlogSize, maxConcurrency int) {
	return func(backlogSize, maxConcurrency int) {
		s.mu.Lock()
		defer s.mu.Unlock()
		for backlogSize < maxConcurrency && len(s.items) > 0 {
			t := s.items[0]
			s.items = s.items[1:]
			eng.Submit(t, false, 0)
			backlogSize++
		}
	}
}
