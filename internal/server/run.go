package server

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/r9s-ai/gptdesk/internal/config"
	"github.com/r9s-ai/gptdesk/internal/logx"
)

const shutdownTimeout = 10 * time.Second

// Run serves until ctx is done. SIGHUP and, when watch is set, edits to the
// config file reload the runtime in place.
func Run(ctx context.Context, cfgPath string, watch bool) error {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	logger, closer, err := cfg.NewLogger()
	if err != nil {
		return err
	}
	defer func() { _ = closer.Close() }()

	st, err := newState(cfg, logger)
	if err != nil {
		return err
	}

	gin.SetMode(gin.ReleaseMode)
	var accessLogger *log.Logger
	if cfg.Logging.AccessLog {
		accessLogger = logger
	}
	color := logx.ColorEnabled() && strings.TrimSpace(cfg.Logging.File) == ""
	srv := &http.Server{
		Addr:              cfg.Server.Listen,
		Handler:           NewRouter(st, accessLogger, color),
		ReadTimeout:       time.Duration(cfg.Server.ReadTimeoutMs) * time.Millisecond,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      time.Duration(cfg.Server.WriteTimeoutMs) * time.Millisecond,
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	installReloadSignalHandler(ctx, st)
	if watch && cfg.Path() != "" {
		go func() {
			err := config.Watch(ctx, cfg.Path(), func(c *config.Config) {
				if err := st.apply(c); err != nil {
					logger.Printf("reload failed: %v", err)
					return
				}
				logger.Printf("reload ok: %s", c.Path())
			}, func(err error) {
				reloadsTotal.WithLabelValues("error").Inc()
				logger.Printf("reload failed: %v", err)
			})
			if err != nil {
				logger.Printf("config watch stopped: %v", err)
			}
		}()
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Printf("gptdesk listening on %s", cfg.Server.Listen)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("run: %w", err)
	case <-ctx.Done():
		sctx, scancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer scancel()
		return srv.Shutdown(sctx)
	}
}

func newState(cfg *config.Config, logger *log.Logger) (*state, error) {
	rt, err := buildRuntime(cfg, logger)
	if err != nil {
		return nil, err
	}
	return &state{rt: rt, logger: logger, startedAt: time.Now().Unix()}, nil
}

// apply builds a runtime from cfg and swaps it in. The old runtime stays
// in place when cfg is unusable.
func (s *state) apply(cfg *config.Config) error {
	rt, err := buildRuntime(cfg, s.logger)
	if err != nil {
		reloadsTotal.WithLabelValues("error").Inc()
		return err
	}
	s.set(rt)
	reloadsTotal.WithLabelValues("ok").Inc()
	return nil
}

// reload re-reads the file the current config came from.
func (s *state) reload() error {
	cfg, err := config.Load(s.Config().Path())
	if err != nil {
		reloadsTotal.WithLabelValues("error").Inc()
		return fmt.Errorf("reload config: %w", err)
	}
	return s.apply(cfg)
}

func installReloadSignalHandler(ctx context.Context, st *state) {
	ch := make(chan os.Signal, 2)
	signal.Notify(ch, syscall.SIGHUP)
	go func() {
		defer signal.Stop(ch)
		for {
			select {
			case <-ctx.Done():
				return
			case <-ch:
				if err := st.reload(); err != nil {
					st.logger.Printf("reload failed: %v", err)
					continue
				}
				st.logger.Printf("reload ok")
			}
		}
	}()
}
