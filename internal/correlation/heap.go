package correlation

import "container/heap"

// deadlineHeap orders pending entries by deadline, earliest first.
// Each entry records its own index so it can be removed in O(log n).
type deadlineHeap []*Pending

var _ heap.Interface = (*deadlineHeap)(nil)

func (h deadlineHeap) Len() int { return len(h) }

func (h deadlineHeap) Less(i, j int) bool {
	if h[i].Deadline.Equal(h[j].Deadline) {
		return h[i].ID < h[j].ID
	}

	return h[i].Deadline.Before(h[j].Deadline)
}

func (h deadlineHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].index = i
	h[j].index = j
}

func (h *deadlineHeap) Push(x any) {
	p := x.(*Pending)
	p.index = len(*h)
	*h = append(*h, p)
}

func (h *deadlineHeap) Pop() any {
	old := *h
	n := len(old)
	p := old[n-1]
	old[n-1] = nil
	p.index = -1
	*h = old[:n-1]

	return p
}

// peek returns the entry with the earliest deadline without removing it.
func (h deadlineHeap) peek() *Pending {
	if len(h) == 0 {
		return nil
	}

	return h[0]
}
