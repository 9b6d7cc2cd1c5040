package queue

import "github.com/fairsched/fairsched/ticket"

// Entry is a caller-owned node carrying a ticket and an opaque
// back-reference. A Fair Queue borrows entries by intrusive reference
// while they are enqueued; ownership never transfers to the queue. The
// zero value is not usable — construct with NewEntry.
type Entry struct {
	// Ticket is the request's cost. Cancellation zeroes this field so a
	// cancelled entry can never be double-charged against the group.
	Ticket ticket.Ticket

	// Value is whatever back-reference the caller needs (e.g. a pointer
	// to the actual I/O request). The Fair Queue never inspects it.
	Value any

	prev, next *Entry
	class      *priorityClass
	cancelled  bool
}

// NewEntry constructs an entry with the given ticket and caller payload.
func NewEntry(t ticket.Ticket, value any) *Entry {
	return &Entry{Ticket: t, Value: value}
}

// Cancelled reports whether NotifyRequestCancelled has been called for
// this entry.
func (e *Entry) Cancelled() bool { return e.cancelled }

// Unlink removes e from its class's FIFO in O(1). Safe to call only by
// the shard that owns the Fair Queue e is (or was) queued on. Calling
// Unlink before NotifyRequestCancelled, or on an entry already dispatched,
// has no effect beyond detaching stale links.
//
// This is the chosen resolution to the specification's cancelled-entry
// open question: cancel unlinks immediately rather than leaving a
// zero-ticket tombstone for the dispatch sink to filter.
func (e *Entry) Unlink() {
	if e.class == nil {
		return
	}
	e.class.remove(e)
	e.class = nil
}
