package weather

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/jpkmiller/coach/internal/api"
	"github.com/jpkmiller/coach/internal/models"
	"github.com/jpkmiller/coach/internal/storage"
	"go.uber.org/zap"
)

// Store caches the latest weather snapshot, persisted under the "weather"
// key.
type Store struct {
	mu      sync.Mutex
	weather models.Weather

	kv     storage.KV
	client *api.Client
	logger *zap.Logger
}

// NewStore creates the weather store.
func NewStore(kv storage.KV, client *api.Client, logger *zap.Logger) *Store {
	return &Store{kv: kv, client: client, logger: logger}
}

// Init loads the persisted snapshot; a missing key leaves it empty.
func (s *Store) Init(ctx context.Context) error {
	var w models.Weather
	err := storage.LoadJSON(ctx, s.kv, storage.KeyWeather, &w)
	if errors.Is(err, storage.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.weather = w
	s.mu.Unlock()
	return nil
}

// Reload re-reads the snapshot after an external change notification.
func (s *Store) Reload(ctx context.Context) {
	if err := s.Init(ctx); err != nil {
		s.logger.Warn("failed_to_reload_weather", zap.Error(err))
	}
}

// Weather returns a copy of the current snapshot.
func (s *Store) Weather() models.Weather {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.weather
}

// Fetch pulls fresh weather data from the backend and persists it. Failures
// are logged and leave the cached snapshot untouched.
func (s *Store) Fetch(ctx context.Context) {
	var resp models.WeatherAPIResponse
	if err := s.client.Get(ctx, "weather", &resp); err != nil {
		s.logger.Error("failed_to_fetch_weather", zap.Error(err))
		return
	}

	s.mu.Lock()
	s.weather.Location = resp.Location.Name + ", " + resp.Location.Country
	s.weather.Temperature = resp.Current.TempC
	s.weather.Weather = resp.Current.Condition.Text
	s.weather.LastUpdated = time.Unix(resp.Current.LastUpdatedEpoch, 0).Format("2006-01-02 15:04")
	snapshot := s.weather
	s.mu.Unlock()

	if err := storage.SaveJSON(ctx, s.kv, storage.KeyWeather, snapshot); err != nil {
		s.logger.Warn("failed_to_persist_weather", zap.Error(err))
	}
}
