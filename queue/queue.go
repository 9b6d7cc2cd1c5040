// Package queue implements the Fair Queue: the per-shard scheduler of §4.2
// of the specification. A Fair Queue is owned by exactly one shard; none
// of its methods are safe to call concurrently from more than one
// goroutine (the shared Fair Group it is bound to is the only
// concurrency-safe collaborator).
package queue

import (
	"container/heap"
	"math"

	"github.com/fairsched/fairsched/group"
	"github.com/fairsched/fairsched/metrics"
	"github.com/fairsched/fairsched/ticket"
)

// pendingReservation captures a request that was denied due to capacity
// deficiency and is holding a reservation in the group's rover (§3).
type pendingReservation struct {
	head   uint64
	ticket ticket.Ticket
	entry  *Entry // the exact entry this reservation was grabbed for
}

// Config holds the Fair Queue's own tunables (§6).
type Config struct {
	// Tau is the fairness window bounding idle-return rebase.
	Tau float64 // expressed in rate-resolution ticks; config.QueueConfig.ToQueueConfig derives this from a time.Duration via rate.Ticks

	// MaxCapacityPerDispatch bounds the fixed-point capacity a single
	// DispatchRequests call may consume before it yields. Zero disables
	// the cap. Per §9's open question, this is received as configuration
	// (already divided by shard count by the caller) rather than
	// computed from a shard count the core would otherwise have to know.
	MaxCapacityPerDispatch uint64

	// Metrics receives per-dispatch observability signals. Nil defaults
	// to metrics.NoopMetrics.
	Metrics metrics.Metrics
}

// FairQueue is a per-shard scheduler bound to one Fair Group.
type FairQueue struct {
	group *group.FairGroup

	classes map[int]*priorityClass
	handles classHeap

	lastAccumulated float64
	pending         *pendingReservation

	resourcesExecuting ticket.Ticket
	resourcesQueued    ticket.Ticket
	requestsExecuting  int
	requestsQueued     int

	tau                    float64
	maxCapacityPerDispatch uint64
	metrics                metrics.Metrics
}

// New constructs a Fair Queue bound to g.
func New(g *group.FairGroup, cfg Config) *FairQueue {
	m := cfg.Metrics
	if m == nil {
		m = metrics.NoopMetrics{}
	}
	return &FairQueue{
		group:                  g,
		classes:                make(map[int]*priorityClass),
		handles:                make(classHeap, 0),
		tau:                    cfg.Tau,
		maxCapacityPerDispatch: cfg.MaxCapacityPerDispatch,
		metrics:                m,
	}
}

// RegisterPriorityClass creates a class with the given id and shares
// (clamped to a minimum of 1). Fails if id is already registered.
func (q *FairQueue) RegisterPriorityClass(id int, shares uint32) error {
	if _, exists := q.classes[id]; exists {
		return ErrClassAlreadyRegistered
	}
	q.classes[id] = newPriorityClass(id, shares)
	return nil
}

// UnregisterPriorityClass removes a class. Requires its queue be empty;
// fails if the class is still resident with pending entries.
func (q *FairQueue) UnregisterPriorityClass(id int) error {
	c, ok := q.classes[id]
	if !ok {
		return ErrClassNotRegistered
	}
	if !c.empty() {
		return ErrClassNotEmpty
	}
	delete(q.classes, id)
	return nil
}

// UpdateSharesForClass replaces a class's share weight (clamped to ≥ 1).
// Takes effect on the next dispatch from that class.
func (q *FairQueue) UpdateSharesForClass(id int, shares uint32) error {
	c, ok := q.classes[id]
	if !ok {
		return ErrClassNotRegistered
	}
	if shares < 1 {
		shares = 1
	}
	c.shares = shares
	return nil
}

// Queue appends entry to class id's FIFO, marking the class heap-resident
// if it was idle (applying the idle-return rebase), and updates queued
// counters.
func (q *FairQueue) Queue(id int, entry *Entry) error {
	c, ok := q.classes[id]
	if !ok {
		return ErrClassNotRegistered
	}
	wasIdle := !c.queued
	c.pushBack(entry)
	q.resourcesQueued = q.resourcesQueued.Add(entry.Ticket)
	q.requestsQueued++
	if wasIdle {
		q.pushFromIdle(c)
	}
	return nil
}

// pushFromIdle transitions a class from idle to resident, applying the
// idle-return rebase: accumulated is raised to at least
// lastAccumulated - maxDeviation, so a long-idle class cannot monopolize
// the queue on return. A class that stays resident keeps its cursor
// untouched — this is only called on the empty-to-non-empty transition.
func (q *FairQueue) pushFromIdle(c *priorityClass) {
	maxDeviation := q.group.CostCapacity().Normalize(q.group.SharesCapacity()) / float64(c.shares) * q.tau
	floor := q.lastAccumulated - maxDeviation
	if c.accumulated < floor {
		c.accumulated = floor
	}
	c.queued = true
	heap.Push(&q.handles, c)
}

// NotifyRequestFinished decrements executing counters and returns
// capacity to the group.
func (q *FairQueue) NotifyRequestFinished(t ticket.Ticket) {
	q.resourcesExecuting = q.resourcesExecuting.Sub(t)
	if q.requestsExecuting > 0 {
		q.requestsExecuting--
	}
	q.group.ReleaseCapacity(q.group.TicketCapacity(t))
}

// NotifyRequestCancelled decrements the queued ticket and zeroes the
// entry's ticket so a subsequent dispatch is a no-op charge. The caller
// must still unlink the entry from its class queue via Entry.Unlink.
func (q *FairQueue) NotifyRequestCancelled(entry *Entry) {
	// If this entry currently holds the group's one outstanding pending
	// reservation, that capacity was already grabbed from the group but
	// will now never be consumed by a dispatch — release it immediately
	// so grabs and releases stay balanced (capacity conservation, §8
	// property 4) instead of leaking a permanently-unaccounted grant.
	if q.pending != nil && q.pending.entry == entry {
		q.group.ReleaseCapacity(q.group.TicketCapacity(q.pending.ticket))
		q.pending = nil
	}

	q.resourcesQueued = q.resourcesQueued.Sub(entry.Ticket)
	if q.requestsQueued > 0 {
		q.requestsQueued--
	}
	classID := -1
	if entry.class != nil {
		classID = entry.class.id
	}
	entry.cancelled = true
	entry.Ticket = ticket.Ticket{}
	q.metrics.Cancelled(classID)
}

// DispatchRequests pops and dispatches eligible entries until either the
// heap is empty, the group denies further capacity, or the per-call cap
// is reached. Returns the number of entries dispatched. sink must not
// re-enter the Fair Queue for the dispatched entry.
func (q *FairQueue) DispatchRequests(sink func(*Entry)) int {
	var dispatchedCapacity uint64
	dispatched := 0

	for {
		if len(q.handles) == 0 {
			return dispatched
		}
		h := q.handles[0]
		if h.empty() {
			heap.Pop(&q.handles)
			h.queued = false
			continue
		}
		req := h.front()
		capNeeded := q.group.TicketCapacity(req.Ticket)

		if !q.admit(req, capNeeded) {
			return dispatched
		}

		q.lastAccumulated = math.Max(h.accumulated, q.lastAccumulated)
		heap.Pop(&q.handles)
		popped := h.popFront()

		q.resourcesExecuting = q.resourcesExecuting.Add(popped.Ticket)
		q.resourcesQueued = q.resourcesQueued.Sub(popped.Ticket)
		q.requestsExecuting++
		if q.requestsQueued > 0 {
			q.requestsQueued--
		}

		reqCost := popped.Ticket.Normalize(q.group.SharesCapacity()) / float64(h.shares)
		q.advanceAccumulated(h, reqCost)
		q.metrics.ClassAccumulated(h.id, h.accumulated)

		if !h.empty() {
			h.queued = true
			heap.Push(&q.handles, h)
		} else {
			h.queued = false
		}

		dispatchedCapacity += capNeeded
		dispatched++
		q.metrics.Dispatched(h.id, capNeeded)
		q.metrics.Capacity(q.group.Head(), q.group.Tail(), q.group.Ceil())

		popped.class = nil
		sink(popped)

		if q.maxCapacityPerDispatch > 0 && dispatchedCapacity >= q.maxCapacityPerDispatch {
			return dispatched
		}
	}
}

// admit implements step 3 of the dispatch loop: grab capacity for req
// (reusing or advancing a pending reservation as needed). It returns true
// iff the top entry is immediately dispatchable this iteration; false
// means the caller must halt DispatchRequests because the group still
// denies capacity (a new or carried-over reservation was recorded).
func (q *FairQueue) admit(req *Entry, capNeeded uint64) bool {
	if q.pending == nil {
		prior := q.group.GrabCapacity(capNeeded)
		wantHead := prior + capNeeded
		if q.group.CapacityDeficiency(wantHead) != 0 {
			q.pending = &pendingReservation{head: wantHead, ticket: req.Ticket, entry: req}
			return false
		}
		return true
	}

	if q.group.CapacityDeficiency(q.pending.head) != 0 {
		return false
	}

	if q.pending.ticket.Eq(req.Ticket) {
		q.pending = nil
		return true
	}

	// A different request floated to the top of the queue by the time
	// the reservation matured: grab fresh capacity for the current
	// entry and advance the pending head.
	prior := q.group.GrabCapacity(capNeeded)
	wantHead := prior + capNeeded
	if q.group.CapacityDeficiency(wantHead) != 0 {
		q.pending = &pendingReservation{head: wantHead, ticket: req.Ticket, entry: req}
		return false
	}
	q.pending = nil
	return true
}

// advanceAccumulated advances h.accumulated by reqCost, applying the
// runaway-reset guard: if the addition would overflow to a non-finite
// value, every class's cursor is rebased by subtracting lastAccumulated
// (a uniform shift that preserves relative order among queued classes
// while bounding absolute magnitude), lastAccumulated is reset to 0, and
// the addition is retried.
func (q *FairQueue) advanceAccumulated(h *priorityClass, reqCost float64) {
	next := h.accumulated + reqCost
	if math.IsInf(next, 0) || math.IsNaN(next) {
		q.runawayReset()
		next = h.accumulated + reqCost
	}
	h.accumulated = next
}

func (q *FairQueue) runawayReset() {
	ref := q.lastAccumulated
	for _, c := range q.classes {
		if c.queued {
			c.accumulated -= ref
		} else {
			c.accumulated = 0
		}
	}
	q.lastAccumulated = 0
}

// ---- observability (read-only) ----

// Waiters returns the number of classes currently resident in the
// dispatch heap (i.e. with at least one pending entry).
func (q *FairQueue) Waiters() int { return len(q.handles) }

// RequestsCurrentlyExecuting returns the count of dispatched-but-not-yet-
// finished requests.
func (q *FairQueue) RequestsCurrentlyExecuting() int { return q.requestsExecuting }

// ResourcesCurrentlyWaiting returns the componentwise sum of tickets
// currently queued across all classes.
func (q *FairQueue) ResourcesCurrentlyWaiting() ticket.Ticket { return q.resourcesQueued }

// ResourcesCurrentlyExecuting returns the componentwise sum of tickets for
// dispatched-but-not-yet-finished requests.
func (q *FairQueue) ResourcesCurrentlyExecuting() ticket.Ticket { return q.resourcesExecuting }

// Stats is a point-in-time snapshot of every queue counter, for exporters
// that want a single consistent read instead of four separate calls.
type Stats struct {
	Waiters            int
	RequestsExecuting  int
	RequestsQueued     int
	ResourcesExecuting ticket.Ticket
	ResourcesQueued    ticket.Ticket
}

// Stats returns a snapshot of the queue's counters.
func (q *FairQueue) Stats() Stats {
	return Stats{
		Waiters:            len(q.handles),
		RequestsExecuting:  q.requestsExecuting,
		RequestsQueued:     q.requestsQueued,
		ResourcesExecuting: q.resourcesExecuting,
		ResourcesQueued:    q.resourcesQueued,
	}
}
