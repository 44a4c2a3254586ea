// Package app wires configuration, storage, jobs and transport into a
// running bot process.
package app

import (
	"context"
	"errors"
	"math/rand"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/osokhneva-debug/emotion-diary-bot/internal/config"
	"github.com/osokhneva-debug/emotion-diary-bot/internal/dialog"
	"github.com/osokhneva-debug/emotion-diary-bot/internal/domain"
	"github.com/osokhneva-debug/emotion-diary-bot/internal/metrics"
	"github.com/osokhneva-debug/emotion-diary-bot/internal/scheduler"
	"github.com/osokhneva-debug/emotion-diary-bot/internal/store"
	"github.com/osokhneva-debug/emotion-diary-bot/internal/telegram"
)

type App struct {
	cfg     config.Config
	log     *zap.Logger
	bot     *tgbotapi.BotAPI
	httpSrv *http.Server
	repo    store.Repo
	router  *telegram.Router
}

// countingWriter passes entries through to storage and counts the
// ones that commit.
type countingWriter struct {
	repo    store.Repo
	metrics *metrics.Collector
}

func (w countingWriter) InsertEntry(ctx context.Context, e *domain.Entry) error {
	if err := w.repo.InsertEntry(ctx, e); err != nil {
		return err
	}
	w.metrics.EntrySaved()
	return nil
}

func New(cfg config.Config, log *zap.Logger) (*App, error) {
	bot, err := tgbotapi.NewBotAPI(cfg.BotToken)
	if err != nil {
		return nil, err
	}
	bot.Debug = false

	return &App{cfg: cfg, log: log, bot: bot}, nil
}

func (a *App) Run(ctx context.Context) error {
	a.log.Info("starting emotion-diary-bot", zap.String("http", a.cfg.HTTPAddr))

	repo, err := store.OpenSQLite(ctx, a.cfg.DBPath)
	if err != nil {
		a.log.Error("open sqlite failed", zap.Error(err))
		return err
	}
	a.repo = repo
	a.log.Info("sqlite ready", zap.String("path", a.cfg.DBPath))

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector())
	coll := metrics.NewCollector(reg)

	mux := chi.NewRouter()
	mux.Use(middleware.Recoverer)
	mux.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusOK) })
	mux.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	a.httpSrv = &http.Server{
		Addr:         a.cfg.HTTPAddr,
		Handler:      mux,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	}

	sender := telegram.NewSender(a.bot)
	sessions := dialog.NewSessionStore()
	engine := dialog.New(sessions, countingWriter{repo: a.repo, metrics: coll}, sender, a.log)

	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	resupplier := scheduler.NewResupplier(a.repo, a.log, a.cfg.ResupplyHourUTC, rng)
	dispatcher := scheduler.NewDispatcher(a.repo, a.log, sender, coll, a.cfg.DispatchInterval)
	digester := scheduler.NewDigester(a.repo, a.log, sender, coll,
		time.Weekday(a.cfg.DigestWeekday), a.cfg.DigestHourUTC)

	a.router = telegram.NewRouter(a.bot, sender, a.log, a.repo, engine, resupplier)

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		if err := a.httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.log.Error("http server error", zap.Error(err))
		}
	}()

	// Top up anyone the bot slept through, then settle into the
	// daily cadence.
	resupplier.RunOnce(ctx)
	go dispatcher.Run(ctx)
	go resupplier.Run(ctx)
	go digester.Run(ctx)

	u := tgbotapi.NewUpdate(0)
	u.Timeout = 30
	updCh := a.bot.GetUpdatesChan(u)

	for {
		select {
		case <-ctx.Done():
			a.log.Info("shutdown signal received")

			shCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			err := a.httpSrv.Shutdown(shCtx)
			cancel()

			if err != nil {
				a.log.Warn("http server shutdown error", zap.Error(err))
			}
			if a.repo != nil {
				_ = a.repo.Close()
			}
			return nil

		case upd := <-updCh:
			a.router.HandleUpdate(ctx, upd)
		}
	}
}
