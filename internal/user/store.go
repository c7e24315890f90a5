package user

import (
	"context"
	"errors"
	"sync"

	"github.com/jpkmiller/coach/internal/api"
	"github.com/jpkmiller/coach/internal/models"
	"github.com/jpkmiller/coach/internal/storage"
	"go.uber.org/zap"
)

// Store owns the user profile and the backend session token, persisted under
// the "user" key.
type Store struct {
	mu   sync.Mutex
	user models.User

	kv     storage.KV
	client *api.Client
	logger *zap.Logger
}

// NewStore creates the user store.
func NewStore(kv storage.KV, client *api.Client, logger *zap.Logger) *Store {
	return &Store{kv: kv, client: client, logger: logger}
}

// Init loads the persisted user profile; a missing key leaves the zero
// profile in place.
func (s *Store) Init(ctx context.Context) error {
	var u models.User
	err := storage.LoadJSON(ctx, s.kv, storage.KeyUser, &u)
	if errors.Is(err, storage.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.user = u
	s.mu.Unlock()
	return nil
}

// Reload re-reads the profile after an external change notification.
func (s *Store) Reload(ctx context.Context) {
	if err := s.Init(ctx); err != nil {
		s.logger.Warn("failed_to_reload_user", zap.Error(err))
	}
}

// User returns a copy of the current profile.
func (s *Store) User() models.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.user
}

// Update replaces the profile fields and persists them. The session token is
// kept.
func (s *Store) Update(ctx context.Context, name, personalInformation, mailPersonality string) error {
	s.mu.Lock()
	s.user.Name = name
	s.user.PersonalInformation = personalInformation
	s.user.MailPersonality = mailPersonality
	snapshot := s.user
	s.mu.Unlock()
	return storage.SaveJSON(ctx, s.kv, storage.KeyUser, snapshot)
}

// Login exchanges credentials for a bearer token and persists it. Returns
// false (logged) on any failure.
func (s *Store) Login(ctx context.Context, username, password string) bool {
	token, err := s.client.Login(ctx, username, password)
	if err != nil {
		s.logger.Error("login_failed", zap.Error(err))
		return false
	}

	s.mu.Lock()
	s.user.Token = token
	snapshot := s.user
	s.mu.Unlock()

	if err := storage.SaveJSON(ctx, s.kv, storage.KeyUser, snapshot); err != nil {
		s.logger.Warn("failed_to_persist_user", zap.Error(err))
	}
	return true
}

// Token returns the current bearer token, or "" when not logged in.
func (s *Store) Token() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.user.Token
}

// Name returns the user's display name for prompt layering.
func (s *Store) Name() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.user.Name
}

// PersonalInformation returns the free-text profile details for prompt
// layering.
func (s *Store) PersonalInformation() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.user.PersonalInformation
}

// MailPersonality returns the tone description used for reply drafting.
func (s *Store) MailPersonality() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.user.MailPersonality
}
