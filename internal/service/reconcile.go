package service

import (
	"sort"

	"github.com/iliyamo/ticket-queue/internal/model"
	"github.com/iliyamo/ticket-queue/internal/repository"
)

// reconciliation is the outcome of checking a day's metadata against its
// ticket list and counter.
type reconciliation struct {
	view model.StateView
	// dirty is set when the metadata differed from what was stored and
	// should be written back.
	dirty bool
	// counterFloor is the value the counter must be raised to, 0 when the
	// counter is already consistent.
	counterFloor int
}

// reconcile derives the authoritative view of date from a snapshot.  The
// ticket list wins over the metadata: totalIssued is its length, lastNumber
// its highest number.  A missing primary record is rebuilt from the shadow
// copy when there is one so totalCalled survives.  Duplicate entries left
// behind by a retried append are counted once.
func reconcile(date, now string, snap repository.Snapshot) reconciliation {
	tickets := dedupeTickets(snap.Tickets)
	maxNumber := 0
	if n := len(tickets); n > 0 {
		maxNumber = tickets[n-1].Number
	}

	var (
		st    model.DailyState
		dirty bool
	)
	switch {
	case snap.State != nil:
		st = *snap.State
	case snap.Shadow != nil:
		st = *snap.Shadow
		dirty = true
	default:
		st = model.NewDailyState(date, now)
		dirty = true
	}

	if st.DayStarted != date {
		st.DayStarted = date
		dirty = true
	}
	if n := len(tickets); st.TotalIssued != n {
		st.TotalIssued = n
		dirty = true
	}
	if len(tickets) > 0 && st.LastNumber != maxNumber {
		st.LastNumber = maxNumber
		dirty = true
	}
	if st.CurrentNumber != st.LastNumber+1 {
		st.CurrentNumber = st.LastNumber + 1
		dirty = true
	}
	if st.TotalCalled > st.TotalIssued {
		st.TotalCalled = st.TotalIssued
		dirty = true
	}
	if st.TotalCalled < 0 {
		st.TotalCalled = 0
		dirty = true
	}
	if dirty {
		st.LastSync = now
	}

	r := reconciliation{
		view:  model.StateView{DailyState: st, Tickets: tickets},
		dirty: dirty,
	}
	if maxNumber > 0 && snap.Counter < int64(maxNumber) {
		r.counterFloor = maxNumber
	}
	return r
}

// dedupeTickets returns the tickets ordered by number, keeping the first
// entry of each number.
func dedupeTickets(in []model.Ticket) []model.Ticket {
	out := make([]model.Ticket, 0, len(in))
	seen := make(map[int]struct{}, len(in))
	for _, t := range in {
		if _, ok := seen[t.Number]; ok {
			continue
		}
		seen[t.Number] = struct{}{}
		out = append(out, t)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Number < out[j].Number })
	return out
}
