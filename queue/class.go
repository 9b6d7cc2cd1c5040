package queue

// priorityClass holds one priority class's configured shares, its
// virtual-time cursor, and an intrusive doubly linked FIFO of entries.
// All access happens from the single shard that owns the enclosing
// FairQueue; no internal locking is required.
type priorityClass struct {
	id          int
	shares      uint32
	accumulated float64

	head, tail *Entry // FIFO: head is next to dispatch, tail is most recently queued

	queued    bool // true iff currently resident in the handles heap
	heapIndex int  // index into the heap's backing slice; -1 when not heap-resident
}

func newPriorityClass(id int, shares uint32) *priorityClass {
	if shares < 1 {
		shares = 1
	}
	return &priorityClass{id: id, shares: shares, heapIndex: -1}
}

func (c *priorityClass) empty() bool { return c.head == nil }

// pushBack appends e at the tail of the FIFO in O(1).
func (c *priorityClass) pushBack(e *Entry) {
	e.class = c
	e.prev, e.next = nil, nil
	if c.tail == nil {
		c.head = e
		c.tail = e
		return
	}
	e.prev = c.tail
	c.tail.next = e
	c.tail = e
}

// front returns the head of the FIFO (next entry to dispatch) without
// removing it, or nil if the class is empty.
func (c *priorityClass) front() *Entry { return c.head }

// popFront removes and returns the head of the FIFO in O(1).
func (c *priorityClass) popFront() *Entry {
	e := c.head
	if e == nil {
		return nil
	}
	c.head = e.next
	if c.head != nil {
		c.head.prev = nil
	} else {
		c.tail = nil
	}
	e.prev, e.next = nil, nil
	return e
}

// remove detaches an arbitrary entry from the FIFO in O(1), used by
// Entry.Unlink for cancellation.
func (c *priorityClass) remove(e *Entry) {
	if e.prev != nil {
		e.prev.next = e.next
	} else if c.head == e {
		c.head = e.next
	}
	if e.next != nil {
		e.next.prev = e.prev
	} else if c.tail == e {
		c.tail = e.prev
	}
	e.prev, e.next = nil, nil
}
