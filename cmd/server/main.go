package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/apex/log"
	"github.com/gin-gonic/gin"
	"golang.org/x/sync/errgroup"

	"github.com/quakepredictec/riesgo-dashboard/internal/api"
	"github.com/quakepredictec/riesgo-dashboard/internal/config"
	"github.com/quakepredictec/riesgo-dashboard/internal/dashboard"
	"github.com/quakepredictec/riesgo-dashboard/internal/database"
	"github.com/quakepredictec/riesgo-dashboard/internal/handler"
	"github.com/quakepredictec/riesgo-dashboard/internal/hub"
	"github.com/quakepredictec/riesgo-dashboard/internal/metrics"
	"github.com/quakepredictec/riesgo-dashboard/internal/middleware"
	"github.com/quakepredictec/riesgo-dashboard/internal/notify"
	"github.com/quakepredictec/riesgo-dashboard/internal/repository"
	"github.com/quakepredictec/riesgo-dashboard/internal/service"
	"github.com/quakepredictec/riesgo-dashboard/internal/session"
	"github.com/quakepredictec/riesgo-dashboard/internal/source"
	"github.com/quakepredictec/riesgo-dashboard/internal/view"
)

const shutdownTimeout = 10 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.WithError(err).Fatal("failed to load config")
	}
	lvl, err := log.ParseLevel(cfg.LogLevel)
	if err != nil {
		lvl = log.InfoLevel
	}
	log.SetLevel(lvl)
	if lvl != log.DebugLevel {
		gin.SetMode(gin.ReleaseMode)
	}

	metrics.Register()

	db, err := database.Open(database.Config{Path: cfg.DBPath})
	if err != nil {
		log.WithError(err).Fatal("failed to initialize database")
	}
	defer db.Close()

	outbox := notify.NewOutbox(cfg.OutboxSize)
	subscriptions := service.NewSubscriptionService(
		repository.NewSubscriptionRepository(db),
		notify.Multi{notify.LogNotifier{}, outbox},
	)
	preferences := service.NewPreferenceService(repository.NewPreferenceRepository(db))

	wsHub := hub.New(cfg.HubBuffer)
	ctrl := dashboard.New(
		source.NewClient(cfg.BackendURL, cfg.FetchTimeout),
		view.NewMapRenderer(wsHub),
		dashboard.Options{
			Threshold:  cfg.AlertThreshold,
			PageSize:   cfg.PageSize,
			TileLayers: cfg.TileLayers,
		},
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	unsubscribe := ctrl.Subscribe(func(ev dashboard.Event) {
		wsHub.Publish(ev)
		if ev.Type != dashboard.EventStoreReplaced || len(ev.NewAlerts) == 0 {
			return
		}
		// Subscribers must not block the refresh; mail in the background.
		alerts := ev.NewAlerts
		go func() {
			n, err := subscriptions.NotifyNewAlerts(ctx, alerts)
			if err != nil {
				log.WithError(err).Error("failed to notify subscribers")
				return
			}
			log.WithFields(log.Fields{"alerts": len(alerts), "sent": n}).Info("alert notifications sent")
		}()
	})
	defer unsubscribe()

	sessions := session.NewManager(cfg.JWTSecret, session.DefaultTTL)
	limiter := middleware.NewRateLimiter(cfg.RateLimitPerMinute, time.Minute)

	router := api.SetupRouter(api.Handlers{
		Dashboard:     handler.NewDashboardHandler(ctrl),
		Session:       handler.NewSessionHandler(sessions),
		Preferences:   handler.NewPreferenceHandler(preferences),
		Subscriptions: handler.NewSubscriptionHandler(subscriptions),
		Notifications: handler.NewNotificationHandler(outbox),
		WebSocket:     handler.NewWebSocketHandler(wsHub),
		Sessions:      sessions,
		RateLimiter:   limiter,
	})

	srv := &http.Server{
		Addr:              cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.WithField("addr", cfg.Port).Info("server starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		log.Info("server shutting down")
		return srv.Shutdown(shutdownCtx)
	})

	g.Go(func() error {
		return wsHub.Run(gctx)
	})

	g.Go(func() error {
		refreshLoop(gctx, ctrl, cfg.RefreshInterval)
		return nil
	})

	g.Go(func() error {
		ticker := time.NewTicker(time.Minute)
		defer ticker.Stop()
		for {
			select {
			case <-gctx.Done():
				return nil
			case <-ticker.C:
				limiter.Cleanup()
			}
		}
	})

	if err := g.Wait(); err != nil {
		log.WithError(err).Fatal("server stopped")
	}
	log.Info("server stopped")
}

// refreshLoop fetches once at startup and then every interval. A zero
// interval means the data is only refreshed on demand.
func refreshLoop(ctx context.Context, ctrl *dashboard.Controller, interval time.Duration) {
	refresh := func() {
		err := ctrl.Refresh(ctx)
		if err != nil && !errors.Is(err, dashboard.ErrStaleResponse) && ctx.Err() == nil {
			log.WithError(err).Warn("risk refresh failed")
		}
	}

	refresh()
	if interval <= 0 {
		return
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			refresh()
		}
	}
}
