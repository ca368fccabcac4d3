package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/gin-gonic/gin"
	apirest "github.com/kasuganosora/autoinvite/api/rest"
	"github.com/kasuganosora/autoinvite/api/sse"
	"github.com/kasuganosora/autoinvite/audit"
	"github.com/kasuganosora/autoinvite/cache"
	"github.com/kasuganosora/autoinvite/config"
	dbadapter "github.com/kasuganosora/autoinvite/db"
	"github.com/kasuganosora/autoinvite/game/chat"
	"github.com/kasuganosora/autoinvite/game/command"
	"github.com/kasuganosora/autoinvite/game/host"
	"github.com/kasuganosora/autoinvite/game/invite"
	mw "github.com/kasuganosora/autoinvite/middleware"
	"github.com/kasuganosora/autoinvite/model"
	"github.com/kasuganosora/autoinvite/scheduler"
	"github.com/kasuganosora/autoinvite/settings"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const (
	settingsCacheKey = "settings:current"
	shutdownTimeout  = 10 * time.Second
)

// serve wires the plugin host and blocks until ctx is done. in is the
// console input; nil disables the console.
func serve(ctx context.Context, cfg *config.Config, logger *zap.Logger, in io.Reader) error {
	// ---- Database ----
	db, err := dbadapter.Open(cfg.Database)
	if err != nil {
		return fmt.Errorf("db: %w", err)
	}
	if err := model.AutoMigrate(db); err != nil {
		return fmt.Errorf("db migrate: %w", err)
	}
	logger.Info("DB initialized", zap.String("mode", cfg.Database.Mode))

	// ---- Audit ----
	auditSvc := audit.New(db, logger)
	defer auditSvc.Stop()

	// ---- Cache / PubSub ----
	cacheConfig := cache.CacheConfig{
		RedisAddr:       cfg.Cache.RedisAddr,
		RedisPassword:   cfg.Cache.RedisPassword,
		RedisDB:         cfg.Cache.RedisDB,
		LocalGCInterval: cfg.Cache.LocalGCInterval,
		LocalPubSubBuf:  cfg.Cache.LocalPubSubBuf,
	}
	c, err := cache.NewCache(cacheConfig)
	if err != nil {
		return fmt.Errorf("cache: %w", err)
	}
	defer c.Close()
	pubsub, err := cache.NewPubSub(cacheConfig)
	if err != nil {
		return fmt.Errorf("pubsub: %w", err)
	}
	logger.Info("Cache initialized", zap.Bool("redis", cfg.Cache.RedisAddr != ""))

	// ---- Chat ----
	channel := chat.NewChannelPrinter(c, pubsub, cfg.Invite.HistorySize, logger)
	out := chat.MultiPrinter{
		chat.PrinterFunc(func(line string) { fmt.Fprintln(os.Stdout, line) }),
		chat.NewLogPrinter(logger),
		channel,
	}

	// ---- Settings ----
	mgr, err := settings.NewManager(ctx, settings.NewGormStore(db), logger)
	if err != nil {
		return fmt.Errorf("settings: %w", err)
	}
	mirror := func(s settings.Settings) {
		raw, _ := json.Marshal(s)
		mctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := c.Set(mctx, settingsCacheKey, string(raw), 0); err != nil {
			logger.Warn("settings mirror failed", zap.Error(err))
		}
	}
	mgr.OnChange(mirror)
	mirror(mgr.Current())

	// ---- Simulated client ----
	table, err := host.LoadFixtureTable(cfg.Host.FixturePath, logger)
	if err != nil {
		return fmt.Errorf("fixture: %w", err)
	}
	sender := invite.NewCommandSender(table, host.NewChatCommandExecutor(out, logger), cfg.Invite.Command)
	dispatcher := invite.NewDispatcher(
		invite.Config{Cooldown: cfg.Invite.Cooldown},
		table, table, mgr, sender, out, auditSvc, logger,
	)

	// ---- Scheduler ----
	sched := scheduler.New(logger)
	defer sched.Stop()
	if cfg.Host.ReloadInterval > 0 {
		sched.AddTicker("fixture-reload", cfg.Host.ReloadInterval, func() {
			if err := table.Reload(); err != nil {
				logger.Warn("fixture reload failed", zap.Error(err))
			}
		})
	}

	// ---- Commands ----
	panel := host.NewSettingsPanel(mgr, out)
	router := command.NewRouter(panel, dispatcher, sched, cfg.Invite.RunTimeout, logger)

	console := command.NewConsole(out, logger)
	console.Register(cfg.Invite.Command, "invite nearby players; add 'config' to show settings",
		func(_ context.Context, cmd, arg string) error {
			router.Route(cmd, arg)
			return nil
		})
	console.Register("/fcset", "change a setting: distance|delay|auto|debug <value>",
		func(ctx context.Context, _, arg string) error {
			name, value := command.ParseLine(arg)
			if err := panel.Apply(ctx, name, value); err != nil {
				return err
			}
			panel.OpenSettings()
			return nil
		})
	if in != nil {
		go func() {
			if err := console.Serve(ctx, in); err != nil && !errors.Is(err, context.Canceled) {
				logger.Warn("console stopped", zap.Error(err))
			}
		}()
	}

	// ---- Control API ----
	if cfg.Server.Port > 0 && cfg.Security.JWTSecret == "" {
		logger.Warn("security.jwt_secret is not set; control API disabled")
	} else if cfg.Server.Port > 0 {
		srv := &http.Server{
			Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
			Handler: newEngine(ctx, cfg, logger, c, pubsub, mgr, router, dispatcher, sched, channel, auditSvc),
		}
		go func() {
			logger.Info("Control API listening", zap.String("addr", srv.Addr))
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("control API stopped", zap.Error(err))
			}
		}()
		defer func() {
			sctx, cancel := detached(shutdownTimeout)
			defer cancel()
			if err := srv.Shutdown(sctx); err != nil {
				logger.Warn("control API shutdown", zap.Error(err))
			}
		}()
	}

	out.Print(fmt.Sprintf("Auto Invite ready. Type %s to invite nearby players.", cfg.Invite.Command))
	<-ctx.Done()
	logger.Info("shutting down")
	return nil
}

func newEngine(
	ctx context.Context,
	cfg *config.Config,
	logger *zap.Logger,
	c cache.Cache,
	pubsub cache.PubSub,
	mgr *settings.Manager,
	router *command.Router,
	dispatcher *invite.Dispatcher,
	sched *scheduler.Scheduler,
	history *chat.ChannelPrinter,
	auditSvc *audit.Service,
) *gin.Engine {
	if !cfg.Server.Debug {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(mw.TraceID(), mw.Logger(logger), mw.Recovery(logger))
	r.Use(mw.IPWhitelist(cfg.Server.AllowedIPs, logger))
	r.Use(mw.RateLimit(ctx, rate.Limit(cfg.Security.RateLimitRPS), cfg.Security.RateLimitBurst))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "state": dispatcher.State().String()})
	})

	controlH := apirest.NewControlHandler(mgr, router, dispatcher, sched, history, auditSvc, cfg.Invite.Command, logger)
	tokenH := apirest.NewTokenHandler(c, logger)

	api := r.Group("/api", mw.Auth(cfg.Security, c))
	{
		api.GET("/settings", controlH.GetSettings)
		api.PATCH("/settings", controlH.PatchSettings)
		api.POST("/command", controlH.Command)
		api.GET("/status", controlH.Status)
		api.GET("/chat/history", controlH.ChatHistory)
		api.GET("/runs/:id/attempts", controlH.RunAttempts)
		api.GET("/token", tokenH.Whoami)
		api.POST("/token/revoke", tokenH.Revoke)
	}

	sseH := sse.NewHandler(pubsub, history, 0, logger)
	r.GET("/sse", mw.Auth(cfg.Security, c), sseH.ServeSSE)

	return r
}
