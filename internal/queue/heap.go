package queue

import "container/heap"

// readyItem is one scheduling entry: jobs are ordered by priority weight,
// then by submission sequence (FIFO within a class). Entries may be stale
// after a cancel; the dequeue path validates against the job table.
type readyItem struct {
	jobID  string
	weight int
	seq    uint64
}

type readyHeap []readyItem

var _ heap.Interface = (*readyHeap)(nil)

func (h readyHeap) Len() int { return len(h) }

func (h readyHeap) Less(i, j int) bool {
	if h[i].weight != h[j].weight {
		return h[i].weight < h[j].weight
	}
	return h[i].seq < h[j].seq
}

func (h readyHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *readyHeap) Push(x any) {
	*h = append(*h, x.(readyItem))
}

func (h *readyHeap) Pop() any {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}
