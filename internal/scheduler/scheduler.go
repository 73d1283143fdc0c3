// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package scheduler implements a single-worker FIFO task queue that runs
// asynchronous work off the caller's thread. The DRM session manager does
// not submit work to it: license fetch, key update and session teardown run
// on the calling goroutine.
package scheduler

import (
	"sync"

	"github.com/ManuGH/drmcore/internal/log"
	"github.com/ManuGH/drmcore/internal/metrics"
)

// TaskID identifies a scheduled task. InvalidTaskID is returned by Schedule
// when the task was rejected.
type TaskID uint64

// InvalidTaskID is never assigned to a real task.
const InvalidTaskID TaskID = 0

// maxTaskID is the wrap ceiling for the id counter; after it, ids restart
// at 1 rather than overflow into InvalidTaskID.
const maxTaskID TaskID = 1<<31 - 1

// State is the scheduler's run state.
type State int

const (
	StateStopped State = iota
	StateRunning
	StateSuspended
)

func (s State) String() string {
	switch s {
	case StateStopped:
		return "stopped"
	case StateRunning:
		return "running"
	case StateSuspended:
		return "suspended"
	default:
		return "unknown"
	}
}

// PlayerState is the subset of player lifecycle state the worker loop and
// Schedule consult to short-circuit work that would run against a dead
// player.
type PlayerState int

const (
	PlayerStateNormal PlayerState = iota
	PlayerStateError
	PlayerStateReleased
)

type task struct {
	id   TaskID
	fn   func(any)
	data any
}

// Scheduler is a single-worker FIFO task queue. The zero value is not
// usable; construct with New.
type Scheduler struct {
	mu      sync.Mutex
	cond    *sync.Cond
	state   State
	queue   []task
	nextID  TaskID
	current TaskID

	playerState PlayerState

	// execLock serializes task execution with Suspend: Suspend acquires it
	// to block until any in-flight task completes, then holds it until
	// Resume releases it.
	execLock sync.Mutex

	wg sync.WaitGroup
}

// New builds a stopped Scheduler.
func New() *Scheduler {
	s := &Scheduler{state: StateStopped}
	s.cond = sync.NewCond(&s.mu)
	return s
}

// Start spawns the worker goroutine and marks the scheduler running.
func (s *Scheduler) Start() {
	s.mu.Lock()
	if s.state == StateRunning {
		s.mu.Unlock()
		return
	}
	s.state = StateRunning
	s.mu.Unlock()

	s.wg.Add(1)
	go s.run()
	log.WithComponent("scheduler").Info().Msg("scheduler.started")
}

// Stop marks the scheduler stopped, clears the queue, wakes the worker and
// waits for it to exit.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	s.state = StateStopped
	s.queue = nil
	s.cond.Broadcast()
	s.mu.Unlock()

	s.wg.Wait()
	log.WithComponent("scheduler").Info().Msg("scheduler.stopped")
}

// Schedule enqueues fn(data) for the worker and returns its id, or
// InvalidTaskID if the scheduler is not accepting work: stopped,
// suspended, or the player state is ERROR/RELEASED.
func (s *Scheduler) Schedule(fn func(any), data any) TaskID {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateRunning {
		metrics.SchedulerTasksTotal.WithLabelValues("rejected").Inc()
		return InvalidTaskID
	}
	if s.playerState == PlayerStateError || s.playerState == PlayerStateReleased {
		metrics.SchedulerTasksTotal.WithLabelValues("rejected").Inc()
		return InvalidTaskID
	}

	id := s.nextID + 1
	if id > maxTaskID {
		id = 1
	}
	s.nextID = id

	s.queue = append(s.queue, task{id: id, fn: fn, data: data})
	metrics.SchedulerQueueDepth.Set(float64(len(s.queue)))
	metrics.SchedulerTasksTotal.WithLabelValues("scheduled").Inc()
	s.cond.Signal()
	return id
}

// Remove deletes a queued task by id. The currently executing task is
// never removed by this call, even if its id matches; it returns false in
// that case.
func (s *Scheduler) Remove(id TaskID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if id == s.current {
		return false
	}
	for i, t := range s.queue {
		if t.id == id {
			s.queue = append(s.queue[:i], s.queue[i+1:]...)
			metrics.SchedulerQueueDepth.Set(float64(len(s.queue)))
			metrics.SchedulerTasksTotal.WithLabelValues("removed").Inc()
			return true
		}
	}
	return false
}

// RemoveAll clears the queue, preserving whatever task the worker is
// currently executing.
func (s *Scheduler) RemoveAll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := len(s.queue)
	s.queue = nil
	metrics.SchedulerQueueDepth.Set(0)
	if n > 0 {
		metrics.SchedulerTasksTotal.WithLabelValues("removed").Add(float64(n))
	}
}

// Suspend blocks until any in-flight task completes, then prevents new
// tasks from being accepted until Resume.
func (s *Scheduler) Suspend() {
	s.execLock.Lock()
	s.mu.Lock()
	s.state = StateSuspended
	s.mu.Unlock()
}

// Resume clears the suspension set by Suspend.
func (s *Scheduler) Resume() {
	s.mu.Lock()
	if s.state == StateSuspended {
		s.state = StateRunning
		s.cond.Broadcast()
	}
	s.mu.Unlock()
	s.execLock.Unlock()
}

// SetPlayerState updates the player lifecycle state consulted by Schedule
// and the worker loop.
func (s *Scheduler) SetPlayerState(state PlayerState) {
	s.mu.Lock()
	s.playerState = state
	s.mu.Unlock()
}

// GetState reports the current run state.
func (s *Scheduler) GetState() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// QueueDepth reports how many tasks are waiting to run, not counting any
// task currently executing.
func (s *Scheduler) QueueDepth() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.queue)
}

func (s *Scheduler) run() {
	defer s.wg.Done()
	logger := log.WithComponent("scheduler")

	for {
		s.mu.Lock()
		for (len(s.queue) == 0 || s.state == StateSuspended) && s.state != StateStopped {
			s.cond.Wait()
		}
		if s.state == StateStopped {
			s.mu.Unlock()
			return
		}

		t := s.queue[0]
		s.queue = s.queue[1:]
		s.current = t.id
		ps := s.playerState
		metrics.SchedulerQueueDepth.Set(float64(len(s.queue)))
		s.mu.Unlock()

		if t.id == InvalidTaskID {
			continue
		}
		if ps == PlayerStateError || ps == PlayerStateReleased {
			metrics.SchedulerTasksTotal.WithLabelValues("skipped").Inc()
			logger.Debug().Uint64("task_id", uint64(t.id)).Msg("scheduler.task_skipped_player_state")
			s.mu.Lock()
			s.current = InvalidTaskID
			s.mu.Unlock()
			continue
		}

		s.execLock.Lock()
		func() {
			defer s.execLock.Unlock()
			t.fn(t.data)
		}()
		metrics.SchedulerTasksTotal.WithLabelValues("run").Inc()

		s.mu.Lock()
		s.current = InvalidTaskID
		s.mu.Unlock()
	}
}
