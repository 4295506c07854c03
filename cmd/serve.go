package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/gofrs/flock"
	"github.com/robfig/cron/v3"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/MimeLyc/subtitle-bot/internal/config"
	"github.com/MimeLyc/subtitle-bot/internal/httpapi"
	"github.com/MimeLyc/subtitle-bot/internal/jobs"
	"github.com/MimeLyc/subtitle-bot/internal/llm"
	"github.com/MimeLyc/subtitle-bot/internal/media"
	"github.com/MimeLyc/subtitle-bot/internal/metrics"
	"github.com/MimeLyc/subtitle-bot/internal/notify"
	"github.com/MimeLyc/subtitle-bot/internal/service"
	"github.com/MimeLyc/subtitle-bot/internal/telegram"
	"github.com/MimeLyc/subtitle-bot/internal/termmap"
	"github.com/MimeLyc/subtitle-bot/internal/transcribe"
	"github.com/MimeLyc/subtitle-bot/internal/translator"
	"github.com/MimeLyc/subtitle-bot/internal/users"
	"github.com/MimeLyc/subtitle-bot/pkg/log"
)

const shutdownTimeout = 10 * time.Second

type scheduler interface {
	Schedule(ctx context.Context) error
}

type cronEngine interface {
	Start()
	Stop() context.Context
}

type httpServer interface {
	ListenAndServe(addr string) error
	Shutdown(ctx context.Context) error
}

type poller interface {
	Run(ctx context.Context, d telegram.Dispatcher) error
}

type workerPool interface {
	Start(ctx context.Context, exec jobs.Executor)
	Stop()
}

// components are the long-running parts of serve.
type components struct {
	scheduler  scheduler
	cron       cronEngine
	http       httpServer
	bot        poller
	dispatcher telegram.Dispatcher
	queue      workerPool
	executor   jobs.Executor
}

func newServeCommand(cmdCtx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the Telegram bot, the status API and user pruning",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := cmdCtx.ensureConfig()
			if err != nil {
				return err
			}

			lock, err := acquireLock(cfg.LockPath())
			if err != nil {
				return err
			}
			defer func() {
				if err := lock.Unlock(); err != nil {
					log.Warn("Failed to release lock %s: %v", cfg.LockPath(), err)
				}
			}()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			comps, err := buildComponents(cfg)
			if err != nil {
				return err
			}
			return runWithComponents(ctx, cfg, comps)
		},
	}
}

func acquireLock(path string) (*flock.Flock, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create data directory: %w", err)
	}
	lock := flock.New(path)
	ok, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return nil, errors.New("another subtitle-bot instance is already running")
	}
	return lock, nil
}

func buildComponents(cfg *config.Config) (components, error) {
	m := metrics.New()

	store := users.NewMemoryStore()
	m.TrackUsers(store.Len)

	allowList, err := config.LoadAllowList(cfg.Quota.AllowedUsersFile)
	if err != nil {
		return components{}, err
	}
	quota := users.NewQuotaManager(store, allowList,
		users.WithLimit(cfg.Quota.DailyLimit),
		users.WithWindow(cfg.Quota.Window),
	)
	languages := users.NewLanguageStore(store, cfg.Pipeline.DefaultLanguage, nil)

	bot, err := telegram.Connect(telegram.Config{
		Token:            cfg.Telegram.Token,
		PollTimeout:      cfg.Telegram.PollTimeout,
		MaxDownloadBytes: cfg.Pipeline.MaxUploadBytes,
	})
	if err != nil {
		return components{}, err
	}

	deps, err := buildPipelineDeps(cfg, m)
	if err != nil {
		return components{}, err
	}
	notifier := notify.New(bot)
	deps.Messenger = bot
	deps.Languages = languages
	deps.Notifier = notifier

	queue := jobs.NewQueue(cfg.Pipeline.Workers, jobs.WithObserver(m))

	pipelineOpts := []service.PipelineOption{
		service.WithStageObserver(func(job *service.MediaJob, stage service.Stage) {
			queue.SetStage(job.ID, string(stage))
		}),
		service.WithPipelineMetrics(m),
	}
	if !cfg.Quota.ChargeRejected {
		pipelineOpts = append(pipelineOpts, service.WithOversizeRefund(quota))
	}
	pipeline := service.NewPipeline(service.PipelineConfig{
		WorkDir:        cfg.Pipeline.WorkDir,
		MaxUploadBytes: cfg.Pipeline.MaxUploadBytes,
	}, deps, pipelineOpts...)

	handler := service.NewHandler(service.HandlerConfig{
		Source:         "telegram",
		MaxUploadBytes: cfg.Pipeline.MaxUploadBytes,
		ChargeRejected: cfg.Quota.ChargeRejected,
	}, quota, languages, queue, notifier, service.WithQuotaMetrics(m))

	cronEngine := cron.New()
	maintenance := service.NewMaintenance(quota, cronEngine, cfg.Quota.PruneCron, cfg.Quota.Retention)

	api := httpapi.NewServer(queue, quota,
		httpapi.WithLanguages(languages),
		httpapi.WithMetricsHandler(m.Handler()),
	)

	return components{
		scheduler:  maintenance,
		cron:       cronEngine,
		http:       api,
		bot:        bot,
		dispatcher: handler,
		queue:      queue,
		executor:   pipeline.Execute,
	}, nil
}

// buildPipelineDeps wires the transcription, translation and transcoding
// backends. Transport-bound deps are left for the caller.
func buildPipelineDeps(cfg *config.Config, m *metrics.Metrics) (service.PipelineDeps, error) {
	llmClient, err := llm.NewClient(&llm.Config{
		APIKey:      cfg.LLM.APIKey,
		APIURL:      cfg.LLM.APIURL,
		Model:       cfg.LLM.Model,
		MaxTokens:   cfg.LLM.MaxTokens,
		Temperature: cfg.LLM.Temperature,
		Timeout:     cfg.LLM.Timeout,
		SiteURL:     cfg.LLM.SiteURL,
		AppName:     cfg.LLM.AppName,
	}, llm.WithUsageObserver(func(model string, usage llm.Usage) {
		m.ObserveLLMTokens(model, usage.PromptTokens, usage.CompletionTokens)
	}))
	if err != nil {
		return service.PipelineDeps{}, fmt.Errorf("create LLM client: %w", err)
	}

	whisper, err := transcribe.NewWhisper(transcribe.Config{
		APIKey:  cfg.Transcribe.APIKey,
		APIURL:  cfg.Transcribe.APIURL,
		Model:   cfg.Transcribe.Model,
		Timeout: cfg.Transcribe.Timeout,
	}, &http.Client{Timeout: cfg.Transcribe.Timeout})
	if err != nil {
		return service.PipelineDeps{}, fmt.Errorf("create transcriber: %w", err)
	}

	glossary := termmap.NewDirectory(cfg.Pipeline.GlossaryDir)

	return service.PipelineDeps{
		Transcoder:  media.NewTranscoder(),
		Transcriber: whisper,
		Translator:  translator.NewTranscriptTranslator(llmClient, translator.WithGlossary(glossary)),
	}, nil
}

// runWithComponents runs until ctx is done or a component fails, then shuts
// everything down.
func runWithComponents(ctx context.Context, cfg *config.Config, c components) error {
	if err := c.scheduler.Schedule(ctx); err != nil {
		return fmt.Errorf("schedule maintenance: %w", err)
	}
	c.cron.Start()
	c.queue.Start(ctx, c.executor)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Info("Status API listening on %s", cfg.HTTP.Addr)
		if err := c.http.ListenAndServe(cfg.HTTP.Addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		return c.bot.Run(gctx, c.dispatcher)
	})

	g.Go(func() error {
		<-gctx.Done()
		log.Info("Shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
		defer cancel()
		if err := c.http.Shutdown(shutdownCtx); err != nil {
			log.Warn("HTTP shutdown: %v", err)
		}
		<-c.cron.Stop().Done()
		c.queue.Stop()
		return nil
	})

	return g.Wait()
}
