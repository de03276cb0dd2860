package msgloop

import (
	"container/heap"
	"sync"
	"time"
)

// task is a closure posted to a Loop together with the absolute time at
// which it becomes eligible to run, and a sequence number used to break
// ties between tasks scheduled for the same instant in FIFO order.
type task struct {
	run    func()
	target time.Time
	seq    uint64
}

// taskHeap is a min-heap of tasks ordered by target time, then by seq.
type taskHeap []task

func (h taskHeap) Len() int { return len(h) }
func (h taskHeap) Less(i, j int) bool {
	if !h[i].target.Equal(h[j].target) {
		return h[i].target.Before(h[j].target)
	}
	return h[i].seq < h[j].seq
}
func (h taskHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *taskHeap) Push(x any) {
	*h = append(*h, x.(task))
}

func (h *taskHeap) Pop() any {
	old := *h
	n := len(old)
	x := old[n-1]
	*h = old[:n-1]
	return x
}

// incomingTaskQueue is the thread-safe ingress point for PostTask and
// PostDelayedTask: a mutex-guarded min-heap, with a monotonically
// increasing sequence counter providing FIFO tie-breaking among tasks
// targeted for the same instant.
type incomingTaskQueue struct {
	mu      sync.Mutex
	heap    taskHeap
	nextSeq uint64
}

func newIncomingTaskQueue() *incomingTaskQueue {
	return &incomingTaskQueue{}
}

// push adds a task to the queue. It does not itself wake the loop; the
// caller (PostTaskForTime) does that after pushing.
func (q *incomingTaskQueue) push(run func(), target time.Time) {
	q.mu.Lock()
	t := task{run: run, target: target, seq: q.nextSeq}
	q.nextSeq++
	heap.Push(&q.heap, t)
	q.mu.Unlock()
}

// popOneReady removes and returns the single earliest task whose target
// time is not after now, if any. Dispatching one task at a time, rather
// than draining a whole batch up front, lets the caller re-check the
// loop's state (e.g. a quit requested by the task it just ran) before
// deciding whether to pop the next one.
func (q *incomingTaskQueue) popOneReady(now time.Time) (task, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.heap) == 0 || q.heap[0].target.After(now) {
		return task{}, false
	}
	return heap.Pop(&q.heap).(task), true
}

// nextDeadline returns the target time of the earliest pending task and
// true, or the zero Time and false if the queue is empty.
func (q *incomingTaskQueue) nextDeadline() (time.Time, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.heap) == 0 {
		return time.Time{}, false
	}
	return q.heap[0].target, true
}

// drainAll removes and returns every remaining task, in heap-pop order
// (not necessarily FIFO across distinct target times once interleaved with
// later pushes, but deterministic for a quiesced queue). Used during
// Close to account for tasks that never ran.
func (q *incomingTaskQueue) drainAll() []task {
	q.mu.Lock()
	defer q.mu.Unlock()

	all := make([]task, 0, len(q.heap))
	for len(q.heap) > 0 {
		all = append(all, heap.Pop(&q.heap).(task))
	}
	return all
}

func (q *incomingTaskQueue) len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.heap)
}
