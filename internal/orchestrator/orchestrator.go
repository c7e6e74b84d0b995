package orchestrator

import (
	"context"
	"fmt"

	"github.com/vk/morelight/internal/binder"
	"github.com/vk/morelight/internal/config"
	"github.com/vk/morelight/internal/ctxlog"
	"github.com/vk/morelight/internal/document"
	"github.com/vk/morelight/internal/marker"
	"github.com/vk/morelight/internal/scheduler"
	"github.com/vk/morelight/internal/undo"
)

// Orchestrator drives one augmentation run.
type Orchestrator struct {
	doc     document.Document
	journal *undo.Journal
	sched   *scheduler.Scheduler
	battery *config.Battery
}

// New returns an orchestrator applying battery. A nil battery means
// config.DefaultBattery.
func New(doc document.Document, journal *undo.Journal, sched *scheduler.Scheduler, battery *config.Battery) *Orchestrator {
	if battery == nil {
		battery = config.DefaultBattery()
	}
	return &Orchestrator{doc: doc, journal: journal, sched: sched, battery: battery}
}

// Run augments the current animation set. It returns a *ValidationError
// when the set is not a light, and the batch's cancellation cause when ctx
// is cancelled before the remaps drained; a cancelled run is not marked
// processed.
func (o *Orchestrator) Run(ctx context.Context) (*Report, error) {
	set, err := o.doc.CurrentSet(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve target: %w", err)
	}
	ctx = ctxlog.With(ctx, "target", set.Name)
	logger := ctxlog.FromContext(ctx)

	target, ok := set.AsLight()
	if !ok {
		verr := &ValidationError{Set: set.Name, Kind: set.Kind}
		logger.Error("Target is not a light, nothing was changed.", "error", verr)
		return nil, verr
	}

	report := &Report{Target: set.Name}
	mk := marker.New(o.doc, o.journal, set.ID)
	if mk.IsProcessed(ctx) {
		report.AlreadyProcessed = true
		report.LoggingRecovered = mk.RecoverLogging(ctx)
		logger.Info("Light already processed, nothing to do.")
		return report, nil
	}

	logger.Info("Augmenting light.", "controls", len(o.battery.Controls), "remaps", len(o.battery.Remaps))
	batch, err := o.sched.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to start remap batch: %w", err)
	}
	defer func() {
		if r := recover(); r != nil {
			o.sched.Abort()
			_ = batch.Close(context.WithoutCancel(ctx))
			panic(r)
		}
	}()

	b := binder.New(o.doc, target, o.battery.Group, batch)
	for _, c := range o.battery.Controls {
		if ctx.Err() != nil {
			break
		}
		report.Controls = append(report.Controls, b.AddControl(ctx, binder.FromConfig(c)))
	}
	for _, r := range o.battery.Remaps {
		if ctx.Err() != nil {
			break
		}
		report.Remaps = append(report.Remaps, b.CreateRemap(ctx, binder.RemapFromConfig(r)))
	}

	closeErr := batch.Close(ctx)
	report.Rewiring = batch.Results()
	if closeErr != nil {
		logger.Warn("Run cancelled before all remaps were applied, target left unmarked.", "error", closeErr)
		return report, closeErr
	}

	if err := mk.MarkProcessed(ctx); err != nil {
		logger.Error("Failed to mark light processed.", "error", err)
		return report, err
	}
	report.Marked = true

	failures := report.Failures()
	logger.Info("Light augmented.",
		"controls", len(report.Controls),
		"remapped", len(report.Remapped()),
		"failures", len(failures))
	return report, nil
}
