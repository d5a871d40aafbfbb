package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func waitFired(t *testing.T, ch <-chan string) string {
	t.Helper()
	select {
	case v := <-ch:
		return v
	case <-time.After(2 * time.Second):
		t.Fatal("timer did not fire")
		return ""
	}
}

func assertSilent(t *testing.T, ch <-chan string) {
	t.Helper()
	select {
	case v := <-ch:
		t.Fatalf("unexpected fire: %s", v)
	case <-time.After(150 * time.Millisecond):
	}
}

func TestScheduleFires(t *testing.T) {
	s := NewScheduler()
	defer s.Stop()

	fired := make(chan string, 1)
	s.Schedule(StartTimerName(1), time.Now().Add(20*time.Millisecond), func() { fired <- "start" })

	assert.Equal(t, "start", waitFired(t, fired))
	assert.False(t, s.Pending(StartTimerName(1)))
}

func TestSchedulePastInstantFiresImmediately(t *testing.T) {
	s := NewScheduler()
	defer s.Stop()

	fired := make(chan string, 1)
	s.Schedule(FinishTimerName(2), time.Now().Add(-time.Hour), func() { fired <- "finish" })

	assert.Equal(t, "finish", waitFired(t, fired))
}

func TestCancelPreventsFire(t *testing.T) {
	s := NewScheduler()
	defer s.Stop()

	fired := make(chan string, 1)
	s.Schedule(StartTimerName(3), time.Now().Add(50*time.Millisecond), func() { fired <- "start" })
	s.Cancel(StartTimerName(3))

	assertSilent(t, fired)
	assert.False(t, s.Pending(StartTimerName(3)))
}

func TestScheduleReplacesSameName(t *testing.T) {
	s := NewScheduler()
	defer s.Stop()

	fired := make(chan string, 2)
	name := FinishTimerName(4)
	s.Schedule(name, time.Now().Add(time.Hour), func() { fired <- "old" })
	s.Schedule(name, time.Now().Add(20*time.Millisecond), func() { fired <- "new" })

	assert.Equal(t, "new", waitFired(t, fired))
	assertSilent(t, fired)
}

func TestCancelAllDropsBothTimers(t *testing.T) {
	s := NewScheduler()
	defer s.Stop()

	fired := make(chan string, 2)
	s.Schedule(StartTimerName(5), time.Now().Add(50*time.Millisecond), func() { fired <- "start" })
	s.Schedule(FinishTimerName(5), time.Now().Add(50*time.Millisecond), func() { fired <- "finish" })
	s.CancelAll(5)

	assertSilent(t, fired)
}

func TestStoppedSchedulerIgnoresNewTimers(t *testing.T) {
	s := NewScheduler()
	s.Stop()

	fired := make(chan string, 1)
	s.Schedule(StartTimerName(6), time.Now().Add(10*time.Millisecond), func() { fired <- "start" })

	assertSilent(t, fired)
	assert.False(t, s.Pending(StartTimerName(6)))
}
