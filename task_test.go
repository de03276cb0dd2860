package msgloop

import (
	"testing"
	"time"
)

func TestIncomingTaskQueueFIFOAtEqualTarget(t *testing.T) {
	q := newIncomingTaskQueue()
	target := time.Unix(1000, 0)

	var order []int
	for i := 0; i < 5; i++ {
		i := i
		q.push(func() { order = append(order, i) }, target)
	}

	for {
		tk, ok := q.popOneReady(target)
		if !ok {
			break
		}
		tk.run()
	}

	for i, v := range order {
		if v != i {
			t.Fatalf("order = %v, want FIFO 0..4", order)
		}
	}
}

func TestIncomingTaskQueueOrdersByTargetTime(t *testing.T) {
	q := newIncomingTaskQueue()
	base := time.Unix(1000, 0)

	var order []string
	q.push(func() { order = append(order, "late") }, base.Add(time.Second))
	q.push(func() { order = append(order, "early") }, base)
	q.push(func() { order = append(order, "mid") }, base.Add(500*time.Millisecond))

	now := base.Add(2 * time.Second)
	for {
		tk, ok := q.popOneReady(now)
		if !ok {
			break
		}
		tk.run()
	}

	want := []string{"early", "mid", "late"}
	if len(order) != len(want) {
		t.Fatalf("order = %v, want %v", order, want)
	}
	for i := range want {
		if order[i] != want[i] {
			t.Fatalf("order = %v, want %v", order, want)
		}
	}
}

func TestIncomingTaskQueuePopOneReadyRespectsDeadline(t *testing.T) {
	q := newIncomingTaskQueue()
	base := time.Unix(1000, 0)
	q.push(func() {}, base.Add(time.Minute))

	if _, ok := q.popOneReady(base); ok {
		t.Fatal("expected no ready task before its target time")
	}
	if _, ok := q.popOneReady(base.Add(time.Minute)); !ok {
		t.Fatal("expected the task to be ready once its target time arrives")
	}
}

func TestIncomingTaskQueueNextDeadline(t *testing.T) {
	q := newIncomingTaskQueue()
	if _, ok := q.nextDeadline(); ok {
		t.Fatal("expected no deadline on an empty queue")
	}

	base := time.Unix(1000, 0)
	q.push(func() {}, base.Add(time.Second))
	q.push(func() {}, base)

	d, ok := q.nextDeadline()
	if !ok || !d.Equal(base) {
		t.Fatalf("nextDeadline() = %v, %v, want %v, true", d, ok, base)
	}
}

func TestIncomingTaskQueueDrainAll(t *testing.T) {
	q := newIncomingTaskQueue()
	base := time.Unix(1000, 0)
	ran := 0
	for i := 0; i < 3; i++ {
		q.push(func() { ran++ }, base)
	}

	all := q.drainAll()
	if len(all) != 3 {
		t.Fatalf("drainAll() returned %d tasks, want 3", len(all))
	}
	if q.len() != 0 {
		t.Fatalf("queue len = %d after drainAll, want 0", q.len())
	}
	if ran != 0 {
		t.Fatal("drainAll must not run tasks, only return them")
	}
}
