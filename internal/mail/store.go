package mail

import (
	"context"
	"encoding/json"
	"errors"
	"sort"
	"strings"
	"sync"

	"github.com/jpkmiller/coach/internal/api"
	"github.com/jpkmiller/coach/internal/assistant"
	"github.com/jpkmiller/coach/internal/models"
	"github.com/jpkmiller/coach/internal/storage"
	"go.uber.org/zap"
)

// Runner is the slice of the assistant gateway the mail store uses.
type Runner interface {
	Run(ctx context.Context, opts assistant.RunOptions) (string, error)
	RunWithTools(ctx context.Context, opts assistant.ToolRunOptions) ([]assistant.ToolCall, error)
}

// ReplyProfile supplies the tone description replies must match. Implemented
// by the user store.
type ReplyProfile interface {
	MailPersonality() string
}

// Store owns the mailbox mapping, persisted under the "mails" key. Selection
// state is transient and never persisted.
type Store struct {
	mu       sync.Mutex
	mails    map[string]*models.Mail
	filter   string
	selected map[string]bool

	kv      storage.KV
	client  *api.Client
	runner  Runner
	profile ReplyProfile
	logger  *zap.Logger
}

// NewStore creates the mail store.
func NewStore(kv storage.KV, client *api.Client, runner Runner, profile ReplyProfile, logger *zap.Logger) *Store {
	return &Store{
		mails:    make(map[string]*models.Mail),
		selected: make(map[string]bool),
		kv:       kv,
		client:   client,
		runner:   runner,
		profile:  profile,
		logger:   logger,
	}
}

// Init loads the persisted mailbox; a missing key leaves it empty.
func (s *Store) Init(ctx context.Context) error {
	var mails map[string]*models.Mail
	err := storage.LoadJSON(ctx, s.kv, storage.KeyMails, &mails)
	if errors.Is(err, storage.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	if mails == nil {
		mails = make(map[string]*models.Mail)
	}
	s.mu.Lock()
	s.mails = mails
	s.mu.Unlock()
	return nil
}

// Reload re-reads the mailbox after an external change notification.
func (s *Store) Reload(ctx context.Context) {
	if err := s.Init(ctx); err != nil {
		s.logger.Warn("failed_to_reload_mails", zap.Error(err))
	}
}

// persist serializes the mailbox while holding the lock; concurrent bulk
// operations mutate mails through the shared pointers, so the marshal must
// not walk them unlocked.
func (s *Store) persist(ctx context.Context) {
	s.mu.Lock()
	data, err := json.Marshal(s.mails)
	s.mu.Unlock()
	if err != nil {
		s.logger.Warn("failed_to_persist_mails", zap.Error(err))
		return
	}
	if err := s.kv.Set(ctx, storage.KeyMails, data); err != nil {
		s.logger.Warn("failed_to_persist_mails", zap.Error(err))
	}
}

// Get returns a copy of the mail with the given id.
func (s *Store) Get(id string) (models.Mail, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.mails[id]
	if !ok {
		return models.Mail{}, false
	}
	return *m, true
}

// Mails returns copies of all mails, ordered by id for stable output.
func (s *Store) Mails() []models.Mail {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.Mail, 0, len(s.mails))
	for _, m := range s.mails {
		out = append(out, *m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// SetFilter sets the live mailbox filter text.
func (s *Store) SetFilter(filter string) {
	s.mu.Lock()
	s.filter = filter
	s.mu.Unlock()
}

// FilteredMails returns the mails matching the current filter: a
// case-insensitive substring match across from/to/subject plus an exact
// label match. An empty filter matches everything.
func (s *Store) FilteredMails() []models.Mail {
	s.mu.Lock()
	filter := strings.ToLower(strings.TrimSpace(s.filter))
	s.mu.Unlock()

	all := s.Mails()
	if filter == "" {
		return all
	}

	out := make([]models.Mail, 0, len(all))
	for _, m := range all {
		if strings.Contains(strings.ToLower(m.From), filter) ||
			strings.Contains(strings.ToLower(m.To), filter) ||
			strings.Contains(strings.ToLower(m.Subject), filter) ||
			hasLabel(m.Labels, filter) {
			out = append(out, m)
		}
	}
	return out
}

func hasLabel(labels []string, label string) bool {
	for _, l := range labels {
		if l == label {
			return true
		}
	}
	return false
}

// Select marks a single mail as selected or not.
func (s *Store) Select(id string, selected bool) {
	s.mu.Lock()
	s.selected[id] = selected
	s.mu.Unlock()
}

// SelectAll selects every known mail.
func (s *Store) SelectAll() {
	s.mu.Lock()
	for id := range s.mails {
		s.selected[id] = true
	}
	s.mu.Unlock()
}

// DeselectAll clears the selection flag of every known mail.
func (s *Store) DeselectAll() {
	s.mu.Lock()
	for id := range s.mails {
		s.selected[id] = false
	}
	s.mu.Unlock()
}

// SelectedMails returns copies of the currently selected mails, ordered by
// id.
func (s *Store) SelectedMails() []models.Mail {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.Mail, 0, len(s.selected))
	for id, isSelected := range s.selected {
		if !isSelected {
			continue
		}
		if m, ok := s.mails[id]; ok {
			out = append(out, *m)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (s *Store) selectedIDs() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	ids := make([]string, 0, len(s.selected))
	for id, isSelected := range s.selected {
		if isSelected {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids
}

// Fetch pulls the mailbox from the backend. New mails are inserted; known
// mails are merged field-by-field so locally generated summary, reply and
// labels survive a refetch. The merged mailbox is persisted.
func (s *Store) Fetch(ctx context.Context) {
	var fetched []models.Mail
	if err := s.client.Get(ctx, "mail", &fetched); err != nil {
		s.logger.Error("failed_to_fetch_mails", zap.Error(err))
		return
	}

	s.mu.Lock()
	for i := range fetched {
		incoming := fetched[i]
		existing, ok := s.mails[incoming.ID]
		if !ok {
			m := incoming
			if m.Labels == nil {
				m.Labels = []string{}
			}
			s.mails[incoming.ID] = &m
			continue
		}
		mergeMail(existing, incoming)
	}
	s.mu.Unlock()

	s.persist(ctx)
	s.logger.Info("fetched_mails", zap.Int("count", len(fetched)))
}

// mergeMail overwrites backend-owned fields and keeps locally generated ones
// unless the incoming record carries a value for them.
func mergeMail(existing *models.Mail, incoming models.Mail) {
	existing.Date = incoming.Date
	existing.From = incoming.From
	existing.To = incoming.To
	existing.Subject = incoming.Subject
	existing.Body = incoming.Body
	existing.Read = existing.Read || incoming.Read
	if incoming.Summary != "" {
		existing.Summary = incoming.Summary
	}
	if incoming.Reply != "" {
		existing.Reply = incoming.Reply
	}
	if len(incoming.Labels) > 0 {
		existing.Labels = incoming.Labels
	}
}
