package state

import (
	"slices"
	"time"
)

// Clock is the time source of the routing protocols.
type Clock interface {
	Now() time.Time
}

type SystemClock struct{}

func (SystemClock) Now() time.Time {
	return time.Now()
}

type Task func(now time.Time) error

type event struct {
	at  time.Time
	seq uint64
	fun Task
}

// Scheduler is a virtual clock with an ordered event queue. Time only moves in Advance, so every
// timer-driven behaviour is reproducible. Events due at the same instant run in the order they
// were scheduled.
type Scheduler struct {
	now    time.Time
	events []event
	seq    uint64
}

func NewScheduler(start time.Time) *Scheduler {
	return &Scheduler{now: start}
}

func (s *Scheduler) Now() time.Time {
	return s.now
}

func (s *Scheduler) push(at time.Time, fun Task) {
	ev := event{at: at, seq: s.seq, fun: fun}
	s.seq++
	idx, _ := slices.BinarySearchFunc(s.events, ev, func(a, b event) int {
		if c := a.at.Compare(b.at); c != 0 {
			return c
		}
		if a.seq < b.seq {
			return -1
		} else if a.seq > b.seq {
			return 1
		}
		return 0
	})
	s.events = slices.Insert(s.events, idx, ev)
}

// ScheduleTask runs fun once, delay after the current virtual time.
func (s *Scheduler) ScheduleTask(fun Task, delay time.Duration) {
	s.push(s.now.Add(delay), fun)
}

// RepeatTask runs fun every delay, starting one delay from now.
func (s *Scheduler) RepeatTask(fun Task, delay time.Duration) {
	if delay <= 0 {
		panic("RepeatTask requires a positive delay")
	}
	var repeat Task
	repeat = func(now time.Time) error {
		s.push(now.Add(delay), repeat)
		return fun(now)
	}
	s.push(s.now.Add(delay), repeat)
}

// Advance moves the clock forward by d, running every event that falls due on the way. The first
// task error stops the clock at that event's time.
func (s *Scheduler) Advance(d time.Duration) error {
	until := s.now.Add(d)
	for len(s.events) > 0 && !s.events[0].at.After(until) {
		ev := s.events[0]
		s.events = s.events[1:]
		s.now = ev.at
		if err := ev.fun(s.now); err != nil {
			return err
		}
	}
	s.now = until
	return nil
}

func (s *Scheduler) Pending() int {
	return len(s.events)
}

// NextEventTime returns the time of the next event, or false if there is none.
func (s *Scheduler) NextEventTime() (time.Time, bool) {
	if len(s.events) == 0 {
		return time.Time{}, false
	}
	return s.events[0].at, true
}
