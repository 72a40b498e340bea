// Package engine implements the scheduler driving transfer.Transfer values
// to completion over a backend.Multi: a single cooperative run loop, a FIFO
// backlog with front-insertion, and a time-ordered delay queue, matching
// spec §4.5's restart_label pseudocode.
package engine

import (
	"context"
	"time"

	"github.com/viant/xfer/backend"
	"github.com/viant/xfer/transfer"
)

// Engine is the scheduler. Its only public mutation surface while Run is
// active is Submit, callable both by the application and by application
// hooks invoked from within Run (spec §5 "Reentrancy").
type Engine struct {
	maxConcurrency     int
	lowWatermarkFactor float64
	refillHook         RefillHook

	multi     *backend.Multi
	multiOpts []backend.MultiOption

	backlog  []transfer.Transfer
	inFlight map[uint64]transfer.Transfer
	delay    delayQueue

	ctx context.Context
}

// New constructs an Engine with max_concurrency=10 and low_watermark_factor
// 2 unless overridden (spec §3/§6).
func New(opts ...Option) *Engine {
	e := &Engine{
		maxConcurrency:     10,
		lowWatermarkFactor: 2,
		inFlight:           make(map[uint64]transfer.Transfer),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Submit implements transfer.Engine: it is the only way Transfers enter the
// scheduler, whether from application code before Run or from a hook
// invoked during Run (spec §4.5 "submit(transfer, front_insert, delay_seconds)").
func (e *Engine) Submit(t transfer.Transfer, frontInsert bool, delaySeconds float64) {
	if delaySeconds > 0 {
		e.delay.insert(t, frontInsert, time.Now().Add(time.Duration(delaySeconds*float64(time.Second))))
		return
	}
	e.enqueueBacklog(t, frontInsert)
}

func (e *Engine) enqueueBacklog(t transfer.Transfer, frontInsert bool) {
	if frontInsert {
		e.backlog = append([]transfer.Transfer{t}, e.backlog...)
		return
	}
	e.backlog = append(e.backlog, t)
}

// Run drives the scheduler until the backlog and delay queue are both
// exhausted and no Transfer is in flight, or ctx is done. It implements the
// restart_label loop of spec §4.5 verbatim.
func (e *Engine) Run(ctx context.Context) error {
	e.ctx = ctx
	if e.multi == nil {
		e.multi = backend.NewMulti(e.multiOpts...)
	}

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		e.topUpFromBacklog(e.maxConcurrency - len(e.inFlight))
		e.advanceUntilNoProgress()

		for len(e.inFlight) > 0 {
			if err := ctx.Err(); err != nil {
				return err
			}
			timeout := time.Second
			if e.delay.Len() > 0 {
				timeout = 100 * time.Millisecond
			}
			e.multi.Wait(timeout)
			e.drainCompletions()
			e.processDelayQueueInto(e.backlogAppender())
			if len(e.backlog) < int(float64(e.maxConcurrency)*e.lowWatermarkFactor) && e.refillHook != nil {
				e.refillHook(len(e.backlog), e.maxConcurrency)
			}
			if len(e.backlog) > 0 {
				e.topUpFromBacklog(e.maxConcurrency - len(e.inFlight))
			}
		}

		delayToFirst := e.processDelayQueueInto(e.backlogAppender())
		if delayToFirst == nil {
			if len(e.backlog) == 0 {
				return nil
			}
			continue
		}
		if *delayToFirst > 0 {
			select {
			case <-time.After(*delayToFirst):
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}
}

// advanceUntilNoProgress drains whatever completions are already queued
// without blocking (spec §4.5 "advance_multi_nonblocking_until_no_progress").
func (e *Engine) advanceUntilNoProgress() {
	for {
		comps := e.multi.Poll()
		if len(comps) == 0 {
			return
		}
		for _, c := range comps {
			e.handleCompletion(c)
		}
	}
}

func (e *Engine) drainCompletions() {
	for _, c := range e.multi.Poll() {
		e.handleCompletion(c)
	}
}

// backlogAppender returns the enqueue func processDelayQueueInto uses to
// move due delay-queue entries into the backlog, respecting each entry's own
// front_insert flag.
func (e *Engine) backlogAppender() func(delayEntry) {
	return func(entry delayEntry) {
		e.enqueueBacklog(entry.transfer, entry.frontInsert)
	}
}

func (e *Engine) processDelayQueueInto(into func(delayEntry)) *time.Duration {
	ready, next := e.delay.process(time.Now())
	for _, entry := range ready {
		into(entry)
	}
	return next
}

// topUpFromBacklog takes up to n Transfers from the backlog front (spec
// §4.5 "Top-up rule"): if a Transfer has a before predecessor, the
// predecessor is run in its stead; the original rejoins the backlog later,
// via the predecessor's next chain, when the predecessor completes.
func (e *Engine) topUpFromBacklog(n int) {
	for i := 0; i < n && len(e.backlog) > 0; i++ {
		t := e.backlog[0]
		e.backlog = e.backlog[1:]

		run := t
		if before := t.Base().PopBefore(); before != nil {
			run = before
		}
		if err := e.startTransfer(run); err != nil {
			info := transfer.Info{}
			run.HandleError(err.Error(), "TRANSPORT_ERROR", info, e)
			run.HandleComplete(e)
		}
	}
}

func (e *Engine) startTransfer(t transfer.Transfer) error {
	opts, err := t.PrepareOptions()
	if err != nil {
		return err
	}
	opts.WriteCallback = func(h *backend.Handle, data []byte) int {
		if t.HandleBodyChunk(data, e) {
			return len(data)
		}
		return len(data) - 1
	}
	opts.HeaderCallback = func(h *backend.Handle, line []byte) int {
		t.HandleHeaderLine(line, e)
		return len(line)
	}

	handle, err := e.multi.Add(e.ctx, opts, t)
	if err != nil {
		return err
	}
	t.Base().Handle = handle
	e.inFlight[handle.ID] = t
	return nil
}

// handleCompletion classifies one finished Handle into exactly one of the
// four outcomes spec §4.5 names and invokes the matching Transfer hook,
// then closes the transfer.
func (e *Engine) handleCompletion(c backend.Completion) {
	t, ok := e.inFlight[c.Handle.ID]
	if !ok {
		return
	}
	info := toTransferInfo(c.Info)

	switch {
	case c.Outcome == backend.OK, c.Outcome == backend.WriteError && t.Base().StreamAborted:
		t.HandleReady(info, e)
	case c.Outcome == backend.TimeoutConnection:
		t.HandleTimeout(transfer.TimeoutConnection, info.TotalTimeMs, e)
	case c.Outcome == backend.TimeoutTotal:
		t.HandleTimeout(transfer.TimeoutTotal, info.TotalTimeMs, e)
	default:
		msg := ""
		if c.Err != nil {
			msg = c.Err.Error()
		}
		t.HandleError(msg, "ERROR", info, e)
	}

	e.closeTransfer(t)
}

// closeTransfer implements spec §4.5 "Close-transfer": remove from the
// in-flight map, release the handle, invoke on_complete, and enqueue next.
func (e *Engine) closeTransfer(t transfer.Transfer) {
	b := t.Base()
	if b.Handle != nil {
		delete(e.inFlight, b.Handle.ID)
		e.multi.Remove(b.Handle)
		b.Handle = nil
	}
	t.HandleComplete(e)
	if next := b.PopNext(); next != nil {
		e.Submit(next, false, 0)
	}
}

func toTransferInfo(i backend.Info) transfer.Info {
	return transfer.Info{
		StatusCode:        i.StatusCode,
		ConnectTimeMs:     i.ConnectTimeMs,
		PretransferTimeMs: i.PretransferTimeMs,
		TotalTimeMs:       i.TotalTimeMs,
		EffectiveURL:      i.EffectiveURL,
	}
}
