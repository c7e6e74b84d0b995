package app

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/vk/morelight/internal/ctxlog"
	"github.com/vk/morelight/internal/orchestrator"
	"github.com/vk/morelight/internal/session"
	"github.com/vk/morelight/modules/console"
)

// Run executes one augmentation of the configured target.
func (a *App) Run(ctx context.Context) (err error) {
	logger := a.logger
	if a.cfg.ConsoleURL != "" {
		sink, dialErr := console.Dial(ctxlog.WithLogger(ctx, logger), console.Options{URL: a.cfg.ConsoleURL})
		if dialErr != nil {
			logger.Warn("Remote console unavailable, logging locally only.", "url", a.cfg.ConsoleURL, "error", dialErr)
		} else {
			defer sink.Close()
			logger = newLogger(a.cfg.LogLevel, a.cfg.LogFormat, io.MultiWriter(a.outW, sink))
			logger.Debug("Forwarding log lines to remote console.", "url", a.cfg.ConsoleURL)
		}
	}
	ctx = ctxlog.WithLogger(ctx, logger)
	logger.Debug("App.Run method started.")

	if a.cfg.HealthcheckPort > 0 {
		a.startHealthcheckServer(ctx, a.cfg.HealthcheckPort)
		defer a.closeHealthcheckServer(ctx)
	}

	sess, err := a.sessions.NewSession(ctx, a.scene, session.Options{
		Target:  a.cfg.Target,
		Metrics: a.metrics,
	})
	if err != nil {
		return fmt.Errorf("failed to create session: %w", err)
	}
	a.sched.Store(sess.Scheduler())
	defer func() {
		a.sched.Store(nil)
		if cerr := sess.Close(ctx); cerr != nil && err == nil {
			err = fmt.Errorf("failed to close session: %w", cerr)
		}
	}()

	report, runErr := orchestrator.New(sess.Document(), sess.Journal(), sess.Scheduler(), a.battery).Run(ctx)
	a.mu.Lock()
	a.report = report
	a.mu.Unlock()
	if runErr != nil {
		return fmt.Errorf("augmentation failed: %w", runErr)
	}

	for _, f := range report.Failures() {
		logger.Warn("Item did not complete.", "error", f)
	}

	if a.cfg.OutPath != "" {
		if err := a.writeScene(ctx, sess); err != nil {
			return err
		}
	}

	logger.Debug("App.Run method finished.")
	return nil
}

func (a *App) writeScene(ctx context.Context, sess session.Session) error {
	logger := ctxlog.FromContext(ctx)
	f, err := os.Create(a.cfg.OutPath)
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	if err := a.writer.WriteScene(ctx, f, sess.Snapshot(ctx)); err != nil {
		f.Close()
		return fmt.Errorf("failed to write scene: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to write scene: %w", err)
	}
	logger.Info("Updated scene written.", "path", a.cfg.OutPath)
	return nil
}
