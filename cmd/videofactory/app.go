package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/bnema/videofactory/config"
	"github.com/bnema/videofactory/internal/adapter/analyzer/llm"
	"github.com/bnema/videofactory/internal/adapter/converter/ffmpeg"
	"github.com/bnema/videofactory/internal/adapter/editor/autoeditor"
	"github.com/bnema/videofactory/internal/adapter/objectstore/s3"
	"github.com/bnema/videofactory/internal/adapter/renderer/remotion"
	"github.com/bnema/videofactory/internal/adapter/storage/cache"
	"github.com/bnema/videofactory/internal/adapter/storage/jsonfile"
	sqlitestore "github.com/bnema/videofactory/internal/adapter/storage/sqlite"
	"github.com/bnema/videofactory/internal/adapter/transcriber/whisper"
	"github.com/bnema/videofactory/internal/analysis"
	"github.com/bnema/videofactory/internal/composition"
	"github.com/bnema/videofactory/internal/gateway"
	"github.com/bnema/videofactory/internal/infrastructure/logger"
	"github.com/bnema/videofactory/internal/port"
	"github.com/bnema/videofactory/internal/service"
	"github.com/bnema/videofactory/internal/validation"
)

const redisPingTimeout = 3 * time.Second

// application holds the wired services. It is built once per command.
type application struct {
	cfg      *config.Config
	jobs     port.JobRepository
	storage  *gateway.Gateway
	intake   *service.Intake
	pipeline *service.Pipeline
	events   *service.EventBus

	closers []func() error
}

func newApplication(cfg *config.Config) (*application, error) {
	for _, dir := range []string{cfg.DataDir, cfg.UploadDir, cfg.TempDir, cfg.OutputDir, cfg.LockDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create directory %s: %w", dir, err)
		}
	}

	a := &application{cfg: cfg, events: service.NewEventBus()}
	jobs, err := a.openJobs()
	if err != nil {
		_ = a.Close()
		return nil, err
	}
	a.jobs = jobs

	objects, err := openObjectStore(cfg.Storage)
	if err != nil {
		_ = a.Close()
		return nil, err
	}
	a.storage = gateway.New(objects,
		gateway.WithRetryPolicy(gateway.RetryPolicy{
			MaxAttempts: cfg.Storage.RetryAttempts,
			BaseDelay:   cfg.Storage.RetryBase(),
			MaxDelay:    cfg.Storage.RetryMax(),
		}),
		gateway.WithUsageTTL(cfg.Storage.UsageCacheTTL()),
	)

	converter := ffmpeg.NewConverter(ffmpeg.WithBinaries(cfg.Tools.FFmpegBin, cfg.Tools.FFprobeBin))

	a.intake = service.NewIntake(a.jobs, a.storage, converter, service.IntakeConfig{
		UploadDir: cfg.UploadDir,
		Rules: validation.Rules{
			MaxSizeBytes:       cfg.MaxUploadBytes(),
			MaxDurationSeconds: float64(cfg.MaxDurationSeconds),
		},
	})

	a.pipeline = service.NewPipeline(service.PipelineDeps{
		Jobs:        a.jobs,
		Storage:     a.storage,
		Editor:      newEditor(cfg.Tools, converter),
		Audio:       converter,
		Prober:      converter,
		Transcriber: whisper.New(cfg.Tools.WhisperBin, cfg.Tools.WhisperModel, whisper.WithLanguage(cfg.Tools.WhisperLanguage)),
		Detector:    analysis.NewDetector(newAnalyzer(cfg.LLM)),
		Planner:     composition.NewPlanner(),
		Renderer:    newRenderer(cfg.Tools, converter),
	}, service.PipelineConfig{
		TempDir:   cfg.TempDir,
		LockDir:   cfg.LockDir,
		OutputDir: cfg.OutputDir,
	})

	return a, nil
}

// openJobs opens the configured store and puts the job cache in front of it.
// Redis is used when reachable, the in-process cache otherwise.
func (a *application) openJobs() (port.JobRepository, error) {
	var store port.JobRepository
	switch a.cfg.Jobs.Store {
	case "json":
		s, err := jsonfile.NewStore(a.cfg.DataDir)
		if err != nil {
			return nil, fmt.Errorf("open json job store: %w", err)
		}
		store = s
	default:
		s, err := sqlitestore.NewStore(a.cfg.DataDir)
		if err != nil {
			return nil, fmt.Errorf("open sqlite job store: %w", err)
		}
		a.closers = append(a.closers, s.Close)
		store = s
	}

	ttl := a.cfg.JobCacheTTL()
	if a.cfg.Jobs.RedisAddr == "" {
		return cache.NewRepository(store, cache.NewMemoryCache(ttl)), nil
	}

	rdb := redis.NewClient(&redis.Options{Addr: a.cfg.Jobs.RedisAddr})
	redisCache := cache.NewRedisCache(rdb, ttl)
	ctx, cancel := context.WithTimeout(context.Background(), redisPingTimeout)
	defer cancel()
	if err := redisCache.Ping(ctx); err != nil {
		logger.Warn.Printf("redis at %s unreachable, using in-process job cache: %v", a.cfg.Jobs.RedisAddr, err)
		_ = rdb.Close()
		return cache.NewRepository(store, cache.NewMemoryCache(ttl)), nil
	}
	a.closers = append(a.closers, rdb.Close)
	return cache.NewRepository(store, redisCache), nil
}

// openObjectStore returns a nil interface when remote storage is not
// configured, which makes the gateway report itself unavailable.
func openObjectStore(cfg config.StorageConfig) (port.ObjectStore, error) {
	if !cfg.Enabled() {
		logger.Info.Printf("object storage not configured, files stay local")
		return nil, nil
	}
	store, err := s3.New(s3.Config{
		Endpoint:        cfg.Endpoint,
		Region:          cfg.Region,
		Bucket:          cfg.Bucket,
		AccessKeyID:     cfg.AccessKeyID,
		SecretAccessKey: cfg.SecretAccessKey,
	})
	if err != nil {
		return nil, fmt.Errorf("object storage: %w", err)
	}
	return store, nil
}

func newEditor(cfg config.ToolsConfig, converter *ffmpeg.Converter) port.Editor {
	if cfg.AutoEditorBin == "" {
		return converter
	}
	return autoeditor.New(cfg.AutoEditorBin, cfg.AutoEditorArgs, nil)
}

// newAnalyzer returns nil without an API key; the detector then uses
// transcript rules only.
func newAnalyzer(cfg config.LLMConfig) port.ContentAnalyzer {
	if cfg.APIKey == "" {
		return nil
	}
	return llm.NewClient(llm.Config{
		APIKey:         cfg.APIKey,
		BaseURL:        cfg.BaseURL,
		Model:          cfg.Model,
		TimeoutSeconds: cfg.TimeoutSeconds,
	})
}

func newRenderer(cfg config.ToolsConfig, converter *ffmpeg.Converter) port.Renderer {
	if cfg.RemotionDir == "" {
		return ffmpeg.SubtitleRenderer{Converter: converter, SubtitlesName: service.SubtitlesArtifact}
	}
	return remotion.New(cfg.NpxBin, cfg.RemotionDir, cfg.RemotionComposition)
}

func (a *application) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		errs = append(errs, a.closers[i]())
	}
	a.closers = nil
	return errors.Join(errs...)
}
