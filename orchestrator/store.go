package orchestrator

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"go-terrawatch/types"
)

// Store is the in-memory task table. It is the only shared mutable state
// in the engine: every transition goes through it under the lock, so legal
// state flow (Pending -> Running -> terminal, terminal immutable) is
// enforced in exactly one place. Lifecycle is process-wide; a restart
// resets it.
type Store struct {
	mu       sync.Mutex
	tasks    map[string]*types.AnalysisTask
	active   map[string]string // AOI id + mode -> non-terminal task id
	maxTasks int
}

func NewStore(maxTasks int) *Store {
	return &Store{
		tasks:    make(map[string]*types.AnalysisTask),
		active:   make(map[string]string),
		maxTasks: maxTasks,
	}
}

func dedupKey(aoiID string, mode types.TaskMode) string {
	return aoiID + "|" + string(mode)
}

// Create registers a new Pending task. Under capacity pressure terminal
// tasks are evicted oldest-first; Pending/Running tasks are never evicted,
// so a full table of live work rejects the submission instead.
func (s *Store) Create(mode types.TaskMode, region types.AreaOfInterest) (types.AnalysisTask, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.maxTasks > 0 && len(s.tasks) >= s.maxTasks {
		s.evictTerminalLocked(len(s.tasks) - s.maxTasks + 1)
		if len(s.tasks) >= s.maxTasks {
			return types.AnalysisTask{}, fmt.Errorf("task table full (%d live tasks): %w", len(s.tasks), types.ErrDependencyUnavailable)
		}
	}

	task := &types.AnalysisTask{
		ID:        uuid.NewString(),
		Mode:      mode,
		AOI:       region,
		State:     types.TaskPending,
		CreatedAt: time.Now().UTC(),
	}
	s.tasks[task.ID] = task
	s.active[dedupKey(region.ID, mode)] = task.ID
	return *task, nil
}

// ActiveFor returns the id of a Pending/Running task for the same AOI and
// mode, used to coalesce equivalent submissions.
func (s *Store) ActiveFor(aoiID string, mode types.TaskMode) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id, ok := s.active[dedupKey(aoiID, mode)]
	return id, ok
}

// Get returns a snapshot of the task. The result payload is written once
// before the task turns terminal and read-only afterwards, so the shallow
// copy is safe to hand out.
func (s *Store) Get(id string) (types.AnalysisTask, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	task, ok := s.tasks[id]
	if !ok {
		return types.AnalysisTask{}, fmt.Errorf("task %q: %w", id, types.ErrTaskNotFound)
	}
	return *task, nil
}

// MarkRunning transitions Pending -> Running. Exactly one worker can win
// this transition, which is what rules out double execution.
func (s *Store) MarkRunning(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	task, ok := s.tasks[id]
	if !ok {
		return fmt.Errorf("task %q: %w", id, types.ErrTaskNotFound)
	}
	if task.State != types.TaskPending {
		return fmt.Errorf("task %q is %s, cannot start", id, task.State)
	}
	task.State = types.TaskRunning
	return nil
}

// Complete transitions Running -> Succeeded with the result attached.
func (s *Store) Complete(id string, result *types.AnalysisResult) error {
	return s.finish(id, func(task *types.AnalysisTask) {
		task.State = types.TaskSucceeded
		task.Result = result
	})
}

// Fail transitions Running -> Failed with the error kind attached.
func (s *Store) Fail(id string, kind types.ErrorKind) error {
	return s.finish(id, func(task *types.AnalysisTask) {
		task.State = types.TaskFailed
		task.Error = kind
	})
}

func (s *Store) finish(id string, apply func(*types.AnalysisTask)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	task, ok := s.tasks[id]
	if !ok {
		return fmt.Errorf("task %q: %w", id, types.ErrTaskNotFound)
	}
	if task.State != types.TaskRunning {
		return fmt.Errorf("task %q is %s, cannot finish", id, task.State)
	}
	apply(task)
	now := time.Now().UTC()
	task.CompletedAt = &now
	delete(s.active, dedupKey(task.AOI.ID, task.Mode))
	return nil
}

// Remove deletes a Pending task, the cancellation path before any worker
// picked it up. Running and terminal tasks are not removable this way.
func (s *Store) Remove(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	task, ok := s.tasks[id]
	if !ok {
		return fmt.Errorf("task %q: %w", id, types.ErrTaskNotFound)
	}
	if task.State != types.TaskPending {
		return fmt.Errorf("task %q is %s, only pending tasks can be removed", id, task.State)
	}
	delete(s.tasks, id)
	delete(s.active, dedupKey(task.AOI.ID, task.Mode))
	return nil
}

// EvictExpired drops terminal tasks whose retention window has passed.
// Returns the number of evicted tasks.
func (s *Store) EvictExpired(now time.Time, retention time.Duration) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	evicted := 0
	for id, task := range s.tasks {
		if task.State.Terminal() && task.CompletedAt != nil && now.Sub(*task.CompletedAt) > retention {
			delete(s.tasks, id)
			evicted++
		}
	}
	return evicted
}

// Len reports the current table size.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.tasks)
}

// evictTerminalLocked removes up to n terminal tasks, oldest completion
// first. Caller holds the lock.
func (s *Store) evictTerminalLocked(n int) {
	type done struct {
		id string
		at time.Time
	}
	var terminal []done
	for id, task := range s.tasks {
		if task.State.Terminal() && task.CompletedAt != nil {
			terminal = append(terminal, done{id, *task.CompletedAt})
		}
	}
	sort.Slice(terminal, func(i, j int) bool { return terminal[i].at.Before(terminal[j].at) })
	for i := 0; i < len(terminal) && i < n; i++ {
		delete(s.tasks, terminal[i].id)
	}
}
