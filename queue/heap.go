package queue

// classHeap is a container/heap.Interface min-heap of priority classes
// ordered by accumulated ascending, so the class furthest behind its fair
// share always surfaces first. This mirrors the pack's own priority-queue
// idiom (a []*T slice plus a stored index field for O(log n) heap.Remove)
// rather than reaching for a third-party heap library — none appears
// anywhere in the retrieval pack.
type classHeap []*priorityClass

func (h classHeap) Len() int { return len(h) }

func (h classHeap) Less(i, j int) bool {
	return h[i].accumulated < h[j].accumulated
}

func (h classHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].heapIndex = i
	h[j].heapIndex = j
}

func (h *classHeap) Push(x any) {
	c := x.(*priorityClass)
	c.heapIndex = len(*h)
	*h = append(*h, c)
}

func (h *classHeap) Pop() any {
	old := *h
	n := len(old)
	c := old[n-1]
	old[n-1] = nil
	c.heapIndex = -1
	*h = old[:n-1]
	return c
}
