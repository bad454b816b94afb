package cli

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/custodia-labs/bidwright/internal/adapters/driven/ai"
	"github.com/custodia-labs/bidwright/internal/adapters/driven/config/file"
	"github.com/custodia-labs/bidwright/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/bidwright/internal/adapters/driven/storage/redis"
	"github.com/custodia-labs/bidwright/internal/adapters/driven/storage/sqlite"
	"github.com/custodia-labs/bidwright/internal/adapters/driving/web"
	"github.com/custodia-labs/bidwright/internal/core/domain"
	"github.com/custodia-labs/bidwright/internal/core/ports/driven"
	"github.com/custodia-labs/bidwright/internal/core/services"
	"github.com/custodia-labs/bidwright/internal/exporters"
	"github.com/custodia-labs/bidwright/internal/extractors"
	"github.com/custodia-labs/bidwright/internal/logger"
)

// stageMetrics is set when bootstrap wires the pipeline; serve exposes it.
var stageMetrics *web.Metrics

// homeDir is the configuration directory that relative defaults hang off.
func homeDir() (string, error) {
	if configDir != "" {
		return configDir, nil
	}
	return file.DefaultDir()
}

// loadSettings returns the current settings with directory defaults
// resolved against the configuration directory.
func loadSettings() (*domain.AppSettings, error) {
	if settingsService == nil {
		return nil, errors.New("settings service not configured")
	}
	settings, err := settingsService.Get()
	if err != nil {
		return nil, fmt.Errorf("failed to get settings: %w", err)
	}
	home, err := homeDir()
	if err != nil {
		return nil, err
	}
	if settings.Prompts.Dir == "" {
		settings.Prompts.Dir = filepath.Join(home, "prompts")
	}
	if settings.Storage.DataDir == "" {
		settings.Storage.DataDir = filepath.Join(home, "data")
	}
	return settings, nil
}

// loadPrompts opens the prompt store unless one is already wired.
func loadPrompts(settings *domain.AppSettings) (*file.PromptStore, error) {
	if store, ok := promptSource.(*file.PromptStore); ok {
		return store, nil
	}
	store, err := file.NewPromptStore(settings.Prompts.Dir)
	if err != nil {
		return nil, fmt.Errorf("opening prompts: %w", err)
	}
	if promptSource == nil {
		promptSource = store
	}
	return store, nil
}

// startPipeline wires the pipeline and export services from settings.
// The returned function releases the language model, the run store and
// the prompt watcher. Services assigned beforehand are left alone.
func startPipeline(ctx context.Context) (func(), error) {
	noop := func() {}
	if pipelineService != nil && exportService != nil {
		return noop, nil
	}

	settings, err := loadSettings()
	if err != nil {
		return noop, err
	}
	if err := settingsService.Validate(); err != nil {
		return noop, err
	}

	var closers []func() error
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			if err := closers[i](); err != nil {
				logger.Warn("shutdown: %v", err)
			}
		}
	}

	llm, err := ai.CreateLLMService(&settings.LLM)
	if err != nil {
		return noop, err
	}
	closers = append(closers, llm.Close)
	logger.Debug("language model: %s %s", settings.LLM.Provider, llm.ModelName())

	store, err := openRunStore(ctx, settings)
	if err != nil {
		cleanup()
		return noop, err
	}
	closers = append(closers, store.Close)

	prompts, err := loadPrompts(settings)
	if err != nil {
		cleanup()
		return noop, err
	}
	if settings.Prompts.Watch {
		if stop, err := watchPrompts(ctx, prompts); err != nil {
			logger.Warn("prompt reload disabled: %v", err)
		} else {
			closers = append(closers, stop)
		}
	}

	registry := extractors.NewDefaultRegistry()
	runner := services.NewStageRunner(llm, prompts, settings.Pipeline)
	pipeline := services.NewPipelineService(runner, store, registry, settings.Pipeline)
	stageMetrics = web.NewMetrics()
	pipeline.SetObserver(driven.StageObservers{stageMetrics, stageLog{}})

	pipelineService = pipeline
	exportService = services.NewExportService(exporters.All()...)
	extensions = registry.Extensions()
	return cleanup, nil
}

// openRunStore opens the configured session backend.
func openRunStore(ctx context.Context, settings *domain.AppSettings) (driven.RunStore, error) {
	ttl := settings.Server.SessionTTL
	switch settings.Storage.Sessions {
	case domain.SessionsSQLite:
		db, err := sqlite.NewStore(settings.Storage.DataDir)
		if err != nil {
			return nil, fmt.Errorf("opening session database: %w", err)
		}
		logger.Debug("sessions: sqlite %s", db.Path())
		runs := db.RunStore(ttl)
		if removed, err := runs.Sweep(ctx); err != nil {
			logger.Warn("%v", err)
		} else if removed > 0 {
			logger.Debug("sessions: dropped %d expired runs", removed)
		}
		return runs, nil
	case domain.SessionsRedis:
		store := redis.NewRunStore(redis.Config{
			Addr:     settings.Storage.RedisAddr,
			Password: settings.Storage.RedisPassword,
			DB:       settings.Storage.RedisDB,
			TTL:      ttl,
		})
		if err := store.Ping(ctx); err != nil {
			_ = store.Close()
			return nil, fmt.Errorf("connecting to redis at %s: %w", settings.Storage.RedisAddr, err)
		}
		logger.Debug("sessions: redis %s db %d", settings.Storage.RedisAddr, settings.Storage.RedisDB)
		return store, nil
	default:
		logger.Debug("sessions: memory")
		return memory.NewRunStore(ttl), nil
	}
}

// watchPrompts reloads prompts on change until ctx ends or stop is called.
func watchPrompts(ctx context.Context, prompts *file.PromptStore) (stop func() error, err error) {
	watcher, err := file.NewPromptWatcher(prompts)
	if err != nil {
		return nil, err
	}
	changes := watcher.Watch(ctx)
	go func() {
		for name := range changes {
			logger.Debug("prompt %s reloaded", name)
		}
	}()
	logger.Info("watching %s for prompt changes", prompts.Dir())
	return watcher.Close, nil
}

// stageLog writes one log line per stage call.
type stageLog struct{}

func (stageLog) StageStarted(sessionID string, stage domain.Stage) {
	logger.Named("pipeline").Debugw("stage started", "session", sessionID, "stage", stage)
}

func (stageLog) StageFinished(sessionID string, stage domain.Stage, elapsed time.Duration, err error) {
	log := logger.Named("pipeline")
	if err != nil {
		log.Warnw("stage failed", "session", sessionID, "stage", stage, "elapsed", elapsed, "error", err)
		return
	}
	log.Infow("stage finished", "session", sessionID, "stage", stage, "elapsed", elapsed)
}
