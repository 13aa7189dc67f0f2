package autosave

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type fakeTimer struct {
	f       func()
	stopped bool
	fired   bool
}

func (t *fakeTimer) Stop() bool {
	active := !t.stopped && !t.fired
	t.stopped = true
	return active
}

// fakeScheduler never fires on its own; tests call fireAll.
type fakeScheduler struct {
	mu     sync.Mutex
	timers []*fakeTimer
	delays []time.Duration
}

func (s *fakeScheduler) AfterFunc(d time.Duration, f func()) Timer {
	s.mu.Lock()
	defer s.mu.Unlock()
	t := &fakeTimer{f: f}
	s.timers = append(s.timers, t)
	s.delays = append(s.delays, d)
	return t
}

func (s *fakeScheduler) fireAll() {
	s.mu.Lock()
	var due []*fakeTimer
	for _, t := range s.timers {
		if !t.stopped && !t.fired {
			t.fired = true
			due = append(due, t)
		}
	}
	s.mu.Unlock()
	for _, t := range due {
		t.f()
	}
}

type recorder struct {
	mu     sync.Mutex
	writes []int
}

func (r *recorder) write(_ context.Context, v int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.writes = append(r.writes, v)
	return nil
}

func (r *recorder) got() []int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]int(nil), r.writes...)
}

func TestBurstCoalescesIntoOneWrite(t *testing.T) {
	sched := &fakeScheduler{}
	rec := &recorder{}
	sink := New(rec.write, WithScheduler(sched))

	for i := 1; i <= 25; i++ {
		sink.Push(i)
	}
	assert.Empty(t, rec.got(), "nothing is written inside the window")

	sched.fireAll()

	assert.Equal(t, []int{25}, rec.got())
	assert.Equal(t, DefaultWindow, sched.delays[0])
	assert.False(t, sink.Pending())
}

func TestSeparateBurstsWriteSeparately(t *testing.T) {
	sched := &fakeScheduler{}
	rec := &recorder{}
	sink := New(rec.write, WithScheduler(sched))

	sink.Push(1)
	sink.Push(2)
	sched.fireAll()
	sink.Push(3)
	sched.fireAll()
	sched.fireAll()

	assert.Equal(t, []int{2, 3}, rec.got())
}

func TestStaleTimerDoesNotWrite(t *testing.T) {
	sched := &fakeScheduler{}
	rec := &recorder{}
	sink := New(rec.write, WithScheduler(sched))

	sink.Push(1)
	stale := sched.timers[0]
	sink.Push(2)

	// a timer that already left the runtime queue still runs its callback
	stale.f()
	assert.Empty(t, rec.got())

	sched.fireAll()
	assert.Equal(t, []int{2}, rec.got())
}

func TestAtMostOneWriteInFlight(t *testing.T) {
	sched := &fakeScheduler{}
	release := make(chan struct{})
	started := make(chan int, 4)

	var mu sync.Mutex
	inFlight, maxInFlight := 0, 0
	var writes []int

	sink := New(func(_ context.Context, v int) error {
		mu.Lock()
		inFlight++
		if inFlight > maxInFlight {
			maxInFlight = inFlight
		}
		mu.Unlock()

		started <- v
		<-release

		mu.Lock()
		inFlight--
		writes = append(writes, v)
		mu.Unlock()
		return nil
	}, WithScheduler(sched))

	sink.Push(1)
	done := make(chan struct{})
	go func() {
		sched.fireAll()
		close(done)
	}()
	require.Equal(t, 1, <-started)

	// new values arrive and their window elapses while 1 is being written
	sink.Push(2)
	sink.Push(3)
	sched.fireAll()

	release <- struct{}{}
	require.Equal(t, 3, <-started, "the latest value follows the in-flight write")
	release <- struct{}{}
	<-done

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []int{1, 3}, writes)
	assert.Equal(t, 1, maxInFlight)
}

func TestFlushWritesImmediately(t *testing.T) {
	sched := &fakeScheduler{}
	rec := &recorder{}
	sink := New(rec.write, WithScheduler(sched))

	sink.Push(7)
	require.NoError(t, sink.Flush(context.Background()))
	assert.Equal(t, []int{7}, rec.got())

	sched.fireAll()
	assert.Equal(t, []int{7}, rec.got(), "the cancelled timer does not write again")

	require.NoError(t, sink.Flush(context.Background()), "flush with nothing pending is a no-op")
}

func TestCloseRejectsLaterPushes(t *testing.T) {
	sched := &fakeScheduler{}
	rec := &recorder{}
	sink := New(rec.write, WithScheduler(sched))

	sink.Push(1)
	require.NoError(t, sink.Close(context.Background()))
	sink.Push(2)
	sched.fireAll()

	assert.Equal(t, []int{1}, rec.got())
}

func TestWriteErrorsAreReportedNotRetried(t *testing.T) {
	sched := &fakeScheduler{}
	boom := errors.New("backend down")
	calls := 0
	var reported []error

	sink := New(func(context.Context, int) error {
		calls++
		return boom
	}, WithScheduler(sched), WithErrorHandler(func(err error) { reported = append(reported, err) }))

	sink.Push(1)
	sched.fireAll()
	sched.fireAll()

	assert.Equal(t, 1, calls)
	require.Len(t, reported, 1)
	assert.ErrorIs(t, reported[0], boom)
}

func TestRealTimerCoalesces(t *testing.T) {
	rec := &recorder{}
	wrote := make(chan struct{}, 4)
	sink := New(rec.write,
		WithWindow(100*time.Millisecond),
		WithWriteHandler(func() { wrote <- struct{}{} }),
	)

	for i := 1; i <= 5; i++ {
		sink.Push(i)
		time.Sleep(2 * time.Millisecond)
	}

	select {
	case <-wrote:
	case <-time.After(2 * time.Second):
		t.Fatal("debounced write never happened")
	}
	require.NoError(t, sink.Close(context.Background()))
	assert.Equal(t, []int{5}, rec.got())
}
