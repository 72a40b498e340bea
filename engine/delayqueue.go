package engine

import (
	"sort"
	"time"

	"github.com/viant/xfer/transfer"
)

// delayEntry is one (transfer, front_insert_flag, due_time) tuple (spec
// §4.5 "Delay queue").
type delayEntry struct {
	transfer    transfer.Transfer
	frontInsert bool
	due         time.Time
}

// delayQueue holds Transfers scheduled for a future resubmission. The sorted
// flag is invalidated on every insert, matching the spec's "sorted flag
// invalidated by every insert; sorted on next consult" rule.
type delayQueue struct {
	entries []delayEntry
	sorted  bool
}

func (q *delayQueue) insert(t transfer.Transfer, frontInsert bool, due time.Time) {
	q.entries = append(q.entries, delayEntry{transfer: t, frontInsert: frontInsert, due: due})
	q.sorted = false
}

// Len reports how many entries remain (ready or future).
func (q *delayQueue) Len() int { return len(q.entries) }

func (q *delayQueue) ensureSorted() {
	if q.sorted {
		return
	}
	sort.Slice(q.entries, func(i, j int) bool { return q.entries[i].due.Before(q.entries[j].due) })
	q.sorted = true
}

// process moves every entry whose due time has passed into the returned
// ready slice, in ascending due-time order (the order of entries with equal
// due times is not defined), and reports the delay until the earliest
// remaining entry, nil if none remain.
func (q *delayQueue) process(now time.Time) ([]delayEntry, *time.Duration) {
	q.ensureSorted()
	i := 0
	for i < len(q.entries) && !q.entries[i].due.After(now) {
		i++
	}
	ready := append([]delayEntry(nil), q.entries[:i]...)
	q.entries = q.entries[i:]
	if len(q.entries) == 0 {
		return ready, nil
	}
	d := q.entries[0].due.Sub(now)
	if d < 0 {
		d = 0
	}
	return ready, &d
}
