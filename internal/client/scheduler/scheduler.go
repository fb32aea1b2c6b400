// Package scheduler runs delayed tasks grouped by key, so that all tasks
// belonging to one companion can be canceled together.
package scheduler

import (
	"sync"
	"time"
)

type Scheduler struct {
	mu      sync.Mutex
	next    uint64
	tasks   map[string]map[uint64]*time.Timer
	stopped bool
	running sync.WaitGroup
}

func New() *Scheduler {
	return &Scheduler{tasks: make(map[string]map[uint64]*time.Timer)}
}

// Schedule runs task after delay unless it is canceled first. The returned
// func cancels this task only. Scheduling on a stopped scheduler is a no-op.
func (s *Scheduler) Schedule(key string, delay time.Duration, task func()) (cancel func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stopped {
		return func() {}
	}

	s.next++
	id := s.next
	if s.tasks[key] == nil {
		s.tasks[key] = make(map[uint64]*time.Timer)
	}
	s.tasks[key][id] = time.AfterFunc(delay, func() { s.fire(key, id, task) })

	return func() { s.cancel(key, id) }
}

func (s *Scheduler) fire(key string, id uint64, task func()) {
	s.mu.Lock()
	if _, ok := s.tasks[key][id]; !ok || s.stopped {
		s.mu.Unlock()
		return
	}
	s.removeLocked(key, id)
	s.running.Add(1)
	s.mu.Unlock()

	defer s.running.Done()
	task()
}

func (s *Scheduler) cancel(key string, id uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if t, ok := s.tasks[key][id]; ok {
		t.Stop()
		s.removeLocked(key, id)
	}
}

func (s *Scheduler) removeLocked(key string, id uint64) {
	delete(s.tasks[key], id)
	if len(s.tasks[key]) == 0 {
		delete(s.tasks, key)
	}
}

// CancelKey cancels every pending task under key and returns how many.
func (s *Scheduler) CancelKey(key string) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := len(s.tasks[key])
	for _, t := range s.tasks[key] {
		t.Stop()
	}
	delete(s.tasks, key)
	return n
}

func (s *Scheduler) Pending(key string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.tasks[key])
}

// Stop cancels everything pending and waits for tasks already running.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	s.stopped = true
	for _, byID := range s.tasks {
		for _, t := range byID {
			t.Stop()
		}
	}
	s.tasks = make(map[string]map[uint64]*time.Timer)
	s.mu.Unlock()

	s.running.Wait()
}
