package app

import (
	"context"
	"fmt"

	"github.com/jpkmiller/coach/internal/api"
	"github.com/jpkmiller/coach/internal/assistant"
	"github.com/jpkmiller/coach/internal/calendar"
	"github.com/jpkmiller/coach/internal/config"
	"github.com/jpkmiller/coach/internal/mail"
	"github.com/jpkmiller/coach/internal/persona"
	"github.com/jpkmiller/coach/internal/storage"
	"github.com/jpkmiller/coach/internal/task"
	"github.com/jpkmiller/coach/internal/user"
	"github.com/jpkmiller/coach/internal/weather"
	"go.uber.org/zap"
)

// App wires the stores together: persisted KV at the bottom, backend client
// and assistant gateway in the middle, domain stores on top. Every consumer
// receives its dependencies explicitly; there are no package-level
// singletons.
type App struct {
	Config *config.Config
	Logger *zap.Logger

	KV           storage.KV
	API          *api.Client
	Users        *user.Store
	Assistant    *assistant.Store
	Gateway      *assistant.Gateway
	Weather      *weather.Store
	Calendar     *calendar.Store
	Tasks        *task.Store
	Mails        *mail.Store
	JeanPhilippe *persona.JeanPhilippe

	cancel context.CancelFunc
}

// New builds the application graph, loads persisted state into every store,
// starts the reachability probe and the invalidation listener, and fetches
// the mailbox once.
func New(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*App, error) {
	var kv storage.KV
	var err error
	switch cfg.StorageBackend {
	case "memory":
		kv = storage.NewMemoryKV()
	default:
		kv, err = storage.NewRedisKV(ctx, cfg.RedisURL, logger)
		if err != nil {
			return nil, fmt.Errorf("failed to open storage: %w", err)
		}
	}

	// The token source closes over the user store, which itself needs the
	// client for login. Declared first, assigned below.
	var users *user.Store
	apiClient := api.NewClient(kv, logger, func() string {
		if users == nil {
			return ""
		}
		return users.Token()
	})
	users = user.NewStore(kv, apiClient, logger)

	assistantStore := assistant.NewStore(kv, logger)

	var backend assistant.Backend
	if cfg.AssistantMode == "proxy" {
		backend = assistant.NewProxyBackend(apiClient)
	} else {
		backend = assistant.NewOpenAIBackend(func() string {
			if key := assistantStore.Settings().OpenAIAPIKey; key != "" {
				return key
			}
			return cfg.OpenAIKey
		}, logger)
	}
	gateway := assistant.NewGateway(assistantStore, users, backend, logger)

	weatherStore := weather.NewStore(kv, apiClient, logger)
	calendarStore := calendar.NewStore(kv, logger)
	mailStore := mail.NewStore(kv, apiClient, gateway, users, logger)
	taskStore := task.NewStore(kv, gateway, mailStore, calendarStore, logger)
	jeanPhilippe := persona.New(gateway, assistantStore, taskStore, weatherStore, logger)

	a := &App{
		Config:       cfg,
		Logger:       logger,
		KV:           kv,
		API:          apiClient,
		Users:        users,
		Assistant:    assistantStore,
		Gateway:      gateway,
		Weather:      weatherStore,
		Calendar:     calendarStore,
		Tasks:        taskStore,
		Mails:        mailStore,
		JeanPhilippe: jeanPhilippe,
	}

	if err := a.initStores(ctx); err != nil {
		_ = kv.Close()
		return nil, err
	}

	runCtx, cancel := context.WithCancel(context.Background())
	a.cancel = cancel
	if err := a.watchUpdates(runCtx); err != nil {
		logger.Warn("failed_to_watch_storage_updates", zap.Error(err))
	}
	apiClient.StartProbe(runCtx)

	// Initial mailbox pull. Failures (backend disabled, offline) only log;
	// the persisted mailbox stays usable.
	mailStore.Fetch(ctx)

	return a, nil
}

func (a *App) initStores(ctx context.Context) error {
	inits := []struct {
		name string
		fn   func(context.Context) error
	}{
		{"api", a.API.Init},
		{"user", a.Users.Init},
		{"assistant", a.Assistant.Init},
		{"weather", a.Weather.Init},
		{"calendar", a.Calendar.Init},
		{"tasks", a.Tasks.Init},
		{"mails", a.Mails.Init},
	}
	for _, init := range inits {
		if err := init.fn(ctx); err != nil {
			return fmt.Errorf("failed to load %s state: %w", init.name, err)
		}
	}
	return nil
}

// watchUpdates reloads the store owning a key whenever another process
// writes it.
func (a *App) watchUpdates(ctx context.Context) error {
	events, err := a.KV.Subscribe(ctx)
	if err != nil {
		return err
	}

	reloaders := map[string]func(context.Context){
		storage.KeyAPI:       a.API.Reload,
		storage.KeyUser:      a.Users.Reload,
		storage.KeyAssistant: a.Assistant.Reload,
		storage.KeyWeather:   a.Weather.Reload,
		storage.KeyCalendar:  a.Calendar.Reload,
		storage.KeyTasks:     a.Tasks.Reload,
		storage.KeyMails:     a.Mails.Reload,
	}

	go func() {
		for key := range events {
			if reload, ok := reloaders[key]; ok {
				a.Logger.Debug("reloading_after_external_change", zap.String("key", key))
				reload(ctx)
			}
		}
	}()
	return nil
}

// Close stops the probe and the invalidation listener and releases the
// storage connection.
func (a *App) Close() error {
	if a.cancel != nil {
		a.cancel()
	}
	a.API.StopProbe()
	return a.KV.Close()
}
