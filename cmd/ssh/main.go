package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	ossignal "os/signal"
	"strings"
	"syscall"
	"time"

	"dex-sentinel/internal/cache"
	"dex-sentinel/internal/config"
	"dex-sentinel/internal/history"
	"dex-sentinel/internal/service"
	"dex-sentinel/internal/tui"
	"dex-sentinel/pkg/logger"
	"dex-sentinel/pkg/tracing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/ssh"
	"github.com/charmbracelet/wish"
	"github.com/charmbracelet/wish/bubbletea"
	"github.com/charmbracelet/wish/logging"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
	gossh "golang.org/x/crypto/ssh"
)

var (
	loadEnvFunc       = godotenv.Load
	loadConfigFunc    = config.Load
	loadTokensFunc    = config.LoadTokensFile
	initLoggerFunc    = logger.Init
	initTracerFunc    = tracing.InitTracer
	initRedisFunc     = cache.InitRedis
	readKeysFunc      = os.ReadFile
	newWishServerFunc = wish.NewServer
	setupSignalNotify = ossignal.Notify
	waitForSignalFunc = func(quit <-chan os.Signal) { <-quit }
)

func main() {
	loadEnvFunc()
	cfg := loadConfigFunc()

	log, err := initLoggerFunc(cfg.LogLevel, cfg.AppEnv)
	if err != nil {
		log = zap.NewNop()
	}
	defer log.Sync()
	for _, w := range cfg.Warnings {
		log.Warn(w)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	tp, tracer, err := initTracerFunc(ctx, "ssh")
	if err != nil {
		log.Fatal("failed to initialize tracer", zap.Error(err))
	}
	defer func() {
		if err := tp.Shutdown(context.Background()); err != nil {
			log.Warn("error shutting down tracer provider", zap.Error(err))
		}
	}()

	tokens := cfg.TrackedTokens
	if cfg.TokensFile != "" {
		extra, err := loadTokensFunc(cfg.TokensFile)
		if err != nil {
			log.Warn("failed to load tokens file", zap.String("path", cfg.TokensFile), zap.Error(err))
		}
		tokens = config.MergeTokens(tokens, extra)
	}

	// The dashboard reads what the server's monitor already wrote: the Redis
	// cache first, then the weekly snapshot files under DATA_DIR.
	var reportCache *service.ReportCache
	if rdb, err := initRedisFunc(ctx, cfg.RedisURL, log); err != nil {
		log.Warn("redis unavailable, dashboard reads weekly snapshots only", zap.Error(err))
	} else if rdb != nil {
		defer rdb.Close()
		reportCache = service.NewReportCache(rdb, cfg.ReportCacheTTL())
	}
	weekly := history.NewWeeklyStore(cfg.DataDir, log)
	reports := service.NewReportService(tracer, log, nil, nil, weekly, nil, reportCache, nil)

	allowed, err := loadAuthorizedKeys(cfg.SSHAuthorizedKeys)
	if err != nil {
		log.Fatal("failed to load authorized keys", zap.Error(err))
	}
	if len(allowed) == 0 {
		log.Warn("no authorized keys configured, every login will be denied")
	}

	refresh := time.Duration(cfg.SSHRefreshSecs) * time.Second
	addr := fmt.Sprintf("0.0.0.0:%d", cfg.SSHPort)

	srv, err := newWishServerFunc(
		wish.WithAddress(addr),
		wish.WithHostKeyPath(cfg.SSHHostKeyPath),
		wish.WithPublicKeyAuth(func(ctx ssh.Context, key ssh.PublicKey) bool {
			fingerprint := gossh.FingerprintSHA256(key)
			if _, ok := allowed[fingerprint]; !ok {
				log.Info("SSH auth denied", zap.String("user", ctx.User()), zap.String("fingerprint", fingerprint))
				return false
			}
			log.Info("SSH auth accepted", zap.String("user", ctx.User()), zap.String("fingerprint", fingerprint))
			return true
		}),
		wish.WithMiddleware(
			bubbletea.Middleware(func(s ssh.Session) (tea.Model, []tea.ProgramOption) {
				model := tui.NewDashboard(reports, tokens, refresh, s.User())
				pty, _, _ := s.Pty()
				model.SetSize(pty.Window.Width, pty.Window.Height)
				return model, []tea.ProgramOption{tea.WithAltScreen()}
			}),
			logging.Middleware(),
		),
	)
	if err != nil {
		log.Fatal("failed to create SSH server", zap.Error(err))
	}

	if srv != nil {
		go func() {
			log.Info("SSH server listening", zap.String("addr", addr), zap.Int("tokens", len(tokens)))
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, ssh.ErrServerClosed) {
				log.Error("SSH server stopped", zap.Error(err))
			}
		}()
	}

	quit := make(chan os.Signal, 1)
	setupSignalNotify(quit, syscall.SIGINT, syscall.SIGTERM)
	waitForSignalFunc(quit)
	log.Info("Shutting down SSH server...")

	cancel()

	if srv != nil {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Warn("SSH server shutdown error", zap.Error(err))
		}
	}

	log.Info("SSH server exited")
}

// loadAuthorizedKeys reads an authorized_keys file into a set of SHA256
// fingerprints. An empty path yields an empty set.
func loadAuthorizedKeys(path string) (map[string]struct{}, error) {
	allowed := make(map[string]struct{})
	if strings.TrimSpace(path) == "" {
		return allowed, nil
	}
	data, err := readKeysFunc(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	for len(data) > 0 {
		key, _, _, rest, err := gossh.ParseAuthorizedKey(data)
		if err != nil {
			// ParseAuthorizedKey skips blank and comment lines; an error here
			// means nothing parseable remains.
			break
		}
		allowed[gossh.FingerprintSHA256(key)] = struct{}{}
		data = rest
	}
	return allowed, nil
}
