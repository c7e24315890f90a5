package task

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jpkmiller/coach/internal/assistant"
	"github.com/jpkmiller/coach/internal/models"
	"github.com/jpkmiller/coach/internal/storage"
	"go.uber.org/zap"
)

// Runner is the slice of the assistant gateway the task store uses.
type Runner interface {
	Run(ctx context.Context, opts assistant.RunOptions) (string, error)
	RunJSON(ctx context.Context, opts assistant.RunOptions, out any) error
}

// MailSource provides the currently selected mails for task extraction.
type MailSource interface {
	SelectedMails() []models.Mail
}

// CalendarSource renders upcoming events as prompt context.
type CalendarSource interface {
	String() string
}

// AddRequest carries the caller-settable fields of a new task.
type AddRequest struct {
	Title     string
	Completed bool
	Priority  models.Priority
	DueDate   *time.Time
	SubTasks  []*models.Task
}

// Updates is a shallow merge of task fields; nil fields are left untouched.
type Updates struct {
	Title     *string
	Completed *bool
	Priority  *models.Priority
	DueDate   *time.Time
	ParentID  *string
}

// Store owns the task forest and the separate suggestion list. The forest is
// persisted under the "tasks" key after every mutation; suggestions are
// transient proposals awaiting promotion.
type Store struct {
	mu          sync.Mutex
	tasks       []*models.Task
	suggestions []string

	kv       storage.KV
	runner   Runner
	mails    MailSource
	calendar CalendarSource
	logger   *zap.Logger
	newID    func() string
	now      func() time.Time
}

// NewStore creates the task store. mails and calendar may be nil when the
// corresponding generators are unused.
func NewStore(kv storage.KV, runner Runner, mails MailSource, calendar CalendarSource, logger *zap.Logger) *Store {
	return &Store{
		kv:       kv,
		runner:   runner,
		mails:    mails,
		calendar: calendar,
		logger:   logger,
		newID:    uuid.NewString,
		now:      time.Now,
	}
}

// Init loads the persisted forest; a missing key leaves it empty.
func (s *Store) Init(ctx context.Context) error {
	var tasks []*models.Task
	err := storage.LoadJSON(ctx, s.kv, storage.KeyTasks, &tasks)
	if errors.Is(err, storage.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.tasks = tasks
	s.mu.Unlock()
	return nil
}

// Reload re-reads the forest after an external change notification. Local
// unsaved state loses to the stored copy.
func (s *Store) Reload(ctx context.Context) {
	if err := s.Init(ctx); err != nil {
		s.logger.Warn("failed_to_reload_tasks", zap.Error(err))
	}
}

// persist serializes the forest while holding the lock; updates mutate tasks
// in place, so the marshal must not walk the tree unlocked.
func (s *Store) persist(ctx context.Context) {
	s.mu.Lock()
	data, err := json.Marshal(s.tasks)
	s.mu.Unlock()
	if err != nil {
		s.logger.Warn("failed_to_persist_tasks", zap.Error(err))
		return
	}
	if err := s.kv.Set(ctx, storage.KeyTasks, data); err != nil {
		s.logger.Warn("failed_to_persist_tasks", zap.Error(err))
	}
}

// cloneTask deep-copies a subtree so callers can read it without holding the
// store lock.
func cloneTask(t *models.Task) *models.Task {
	cp := *t
	if t.DueDate != nil {
		due := *t.DueDate
		cp.DueDate = &due
	}
	cp.SubTasks = cloneTasks(t.SubTasks)
	return &cp
}

func cloneTasks(list []*models.Task) []*models.Task {
	if list == nil {
		return nil
	}
	out := make([]*models.Task, len(list))
	for i, t := range list {
		out[i] = cloneTask(t)
	}
	return out
}

// Tasks returns a deep copy of the root-level task sequence.
func (s *Store) Tasks() []*models.Task {
	s.mu.Lock()
	defer s.mu.Unlock()
	return cloneTasks(s.tasks)
}

// FlatTasks returns a deep copy of the forest flattened pre-order: each
// parent strictly before its descendants, depth-first.
func (s *Store) FlatTasks() []*models.Task {
	s.mu.Lock()
	defer s.mu.Unlock()
	return flatten(cloneTasks(s.tasks))
}

func flatten(base []*models.Task) []*models.Task {
	var out []*models.Task
	for _, t := range base {
		out = append(out, t)
		out = append(out, flatten(t.SubTasks)...)
	}
	return out
}

// Add creates a new task, either at root level or under parentID. Returns
// the new task's id, or "" when parentID is set but does not resolve (the
// add is then a no-op).
func (s *Store) Add(ctx context.Context, req AddRequest, parentID string) string {
	newTask := &models.Task{
		ID:          s.newID(),
		Title:       req.Title,
		Completed:   req.Completed,
		Priority:    req.Priority,
		DueDate:     req.DueDate,
		CreatedDate: s.now(),
		ParentID:    parentID,
		SubTasks:    req.SubTasks,
		Type:        models.TaskType,
	}
	if newTask.SubTasks == nil {
		newTask.SubTasks = []*models.Task{}
	}

	s.mu.Lock()
	if parentID != "" {
		parent := findTask(s.tasks, parentID)
		if parent == nil {
			s.mu.Unlock()
			s.logger.Warn("parent_task_not_found", zap.String("parent_id", parentID))
			return ""
		}
		parent.SubTasks = append(parent.SubTasks, newTask)
	} else {
		newTask.ParentID = ""
		s.tasks = append(s.tasks, newTask)
	}
	s.mu.Unlock()

	s.persist(ctx)
	return newTask.ID
}

// AddFromTitle creates a root or nested task with defaults: not completed,
// medium priority.
func (s *Store) AddFromTitle(ctx context.Context, title, parentID string) string {
	return s.Add(ctx, AddRequest{
		Title:    title,
		Priority: models.PriorityMedium,
	}, parentID)
}

// Get returns a deep copy of the first task matching id in depth-first
// order, or nil.
func (s *Store) Get(id string) *models.Task {
	if id == "" {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	target := findTask(s.tasks, id)
	if target == nil {
		return nil
	}
	return cloneTask(target)
}

func findTask(list []*models.Task, id string) *models.Task {
	for _, t := range list {
		if t.ID == id {
			return t
		}
		if found := findTask(t.SubTasks, id); found != nil {
			return found
		}
	}
	return nil
}

// Remove deletes the task with the given id. Root-level removal is tried
// first; nested tasks are removed from their parent's child sequence. When
// ParentID has drifted from the actual container, the containing parent is
// located by scanning the forest. Returns whether a removal happened.
func (s *Store) Remove(ctx context.Context, id string) bool {
	s.mu.Lock()

	filtered := s.tasks[:0:0]
	for _, t := range s.tasks {
		if t.ID != id {
			filtered = append(filtered, t)
		}
	}
	if len(filtered) < len(s.tasks) {
		s.tasks = filtered
		s.mu.Unlock()
		s.persist(ctx)
		return true
	}

	target := findTask(s.tasks, id)
	if target == nil {
		s.mu.Unlock()
		s.logger.Warn("task_not_found", zap.String("task_id", id))
		return false
	}

	parent := findTask(s.tasks, target.ParentID)
	if parent == nil || !containsChild(parent, id) {
		parent = findContainer(s.tasks, id)
	}
	if parent == nil {
		s.mu.Unlock()
		s.logger.Warn("parent_task_not_found", zap.String("task_id", id), zap.String("parent_id", target.ParentID))
		return false
	}

	children := parent.SubTasks[:0:0]
	for _, t := range parent.SubTasks {
		if t.ID != id {
			children = append(children, t)
		}
	}
	parent.SubTasks = children
	s.mu.Unlock()

	s.persist(ctx)
	return true
}

func containsChild(parent *models.Task, id string) bool {
	for _, t := range parent.SubTasks {
		if t.ID == id {
			return true
		}
	}
	return false
}

// findContainer returns the task whose SubTasks sequence holds id.
func findContainer(list []*models.Task, id string) *models.Task {
	for _, t := range list {
		if containsChild(t, id) {
			return t
		}
		if found := findContainer(t.SubTasks, id); found != nil {
			return found
		}
	}
	return nil
}

// Update shallow-merges the given fields into the task with the given id.
// Returns whether a match was found.
func (s *Store) Update(ctx context.Context, id string, updates Updates) bool {
	s.mu.Lock()
	target := findTask(s.tasks, id)
	if target == nil {
		s.mu.Unlock()
		return false
	}
	if updates.Title != nil {
		target.Title = *updates.Title
	}
	if updates.Completed != nil {
		target.Completed = *updates.Completed
	}
	if updates.Priority != nil {
		target.Priority = *updates.Priority
	}
	if updates.DueDate != nil {
		target.DueDate = updates.DueDate
	}
	if updates.ParentID != nil {
		target.ParentID = *updates.ParentID
	}
	s.mu.Unlock()

	s.persist(ctx)
	return true
}

// Sort orders the root-level sequence by the given key. Children keep their
// order. Tasks without a due date sort after dated tasks when ascending and
// before them when descending.
func (s *Store) Sort(ctx context.Context, key models.TaskSortKey, ascending bool) {
	s.mu.Lock()
	sort.SliceStable(s.tasks, func(i, j int) bool {
		a, b := s.tasks[i], s.tasks[j]
		switch key {
		case models.TaskSortPriority:
			if ascending {
				return a.Priority < b.Priority
			}
			return a.Priority > b.Priority
		case models.TaskSortDueDate:
			if a.DueDate == nil && b.DueDate == nil {
				return false
			}
			if a.DueDate == nil {
				return !ascending
			}
			if b.DueDate == nil {
				return ascending
			}
			if ascending {
				return a.DueDate.Before(*b.DueDate)
			}
			return b.DueDate.Before(*a.DueDate)
		default: // createdDate
			if ascending {
				return a.CreatedDate.Before(b.CreatedDate)
			}
			return b.CreatedDate.Before(a.CreatedDate)
		}
	})
	s.mu.Unlock()

	s.persist(ctx)
}

// Suggestions returns the pending task proposals.
func (s *Store) Suggestions() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.suggestions))
	copy(out, s.suggestions)
	return out
}

// PromoteSuggestion turns the suggestion at index into a committed root task
// and drops it from the list. Returns the new task id, or "" for an invalid
// index.
func (s *Store) PromoteSuggestion(ctx context.Context, index int) string {
	s.mu.Lock()
	if index < 0 || index >= len(s.suggestions) {
		s.mu.Unlock()
		return ""
	}
	title := s.suggestions[index]
	s.suggestions = append(s.suggestions[:index], s.suggestions[index+1:]...)
	s.mu.Unlock()

	return s.AddFromTitle(ctx, title, "")
}

// ClearSuggestions drops all pending proposals.
func (s *Store) ClearSuggestions() {
	s.mu.Lock()
	s.suggestions = nil
	s.mu.Unlock()
}

// String renders the flattened forest as prompt context: title, due date,
// parent title and completion per task.
func (s *Store) String() string {
	s.mu.Lock()
	defer s.mu.Unlock()

	flat := flatten(s.tasks)
	parts := make([]string, 0, len(flat))
	for _, t := range flat {
		dueDate := "no deadline"
		if t.DueDate != nil {
			dueDate = t.DueDate.Format("Monday, 2. January 2006")
		}
		parentTitle := "none"
		if parent := findTask(s.tasks, t.ParentID); parent != nil {
			parentTitle = parent.Title
		}
		completed := "no"
		if t.Completed {
			completed = "yes"
		}
		parts = append(parts, strings.Join([]string{
			fmt.Sprintf("Task Title: %s", t.Title),
			fmt.Sprintf("Due Date: %s", dueDate),
			fmt.Sprintf("Parent Task: %s", parentTitle),
			fmt.Sprintf("Completed: %s", completed),
		}, "\n"))
	}
	return strings.Join(parts, "\n\n---\n\n")
}
