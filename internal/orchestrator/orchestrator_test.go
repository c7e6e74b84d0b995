package orchestrator

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vk/morelight/internal/binder"
	"github.com/vk/morelight/internal/config"
	"github.com/vk/morelight/internal/document"
	"github.com/vk/morelight/internal/hostloop"
	"github.com/vk/morelight/internal/inmemorydoc"
	"github.com/vk/morelight/internal/marker"
	"github.com/vk/morelight/internal/scheduler"
	"github.com/vk/morelight/internal/undo"
	"github.com/zclconf/go-cty/cty"
)

type run struct {
	store   *inmemorydoc.Store
	journal *undo.Journal
	sched   *scheduler.Scheduler
	set     *document.AnimationSet
}

// lightAttrs are the native attributes of a stock light, including the two
// that already carry a control.
func lightAttrs() map[string]cty.Value {
	return map[string]cty.Value{
		"ambientOcclusion":  cty.NumberIntVal(1),
		"castsShadows":      cty.NumberIntVal(1),
		"volumetric":        cty.NumberIntVal(0),
		"drawShadowFrustum": cty.NumberIntVal(0),
		"uberlight":         cty.NumberIntVal(0),
		"roundness":         cty.NumberFloatVal(0.8),
		"shadowAtten":       cty.NumberFloatVal(0.5),
		"noiseStrength":     cty.NumberFloatVal(0.2),
	}
}

func newRun(t *testing.T, kind document.Kind, doc func(*inmemorydoc.Store) document.Document) (*run, document.Document) {
	t.Helper()
	ctx := context.Background()
	journal := undo.NewJournal()
	store := inmemorydoc.New(journal)
	set, err := store.AddAnimationSet(ctx, "light_1", kind, lightAttrs())
	require.NoError(t, err)
	if kind == document.KindLight {
		for _, name := range []string{"shadowAtten", "noiseStrength"} {
			_, err := store.CreateControl(ctx, set.ID, document.NewControl{Name: name, Value: 0.5, Default: 0.5, Element: set.LightElement, Attribute: name})
			require.NoError(t, err)
		}
	}
	var d document.Document = store
	if doc != nil {
		d = doc(store)
	}
	r := &run{store: store, journal: journal, set: set}
	r.sched = scheduler.New(d, journal, hostloop.New(), scheduler.Options{})
	return r, d
}

func (r *run) stats(t *testing.T) document.Stats {
	t.Helper()
	return r.store.Stats(context.Background(), r.set.ID)
}

func TestRun_ScenarioA_NotALight(t *testing.T) {
	// --- Arrange ---
	r, doc := newRun(t, document.KindOther, nil)
	before := r.stats(t)

	// --- Act ---
	report, err := New(doc, r.journal, r.sched, nil).Run(context.Background())

	// --- Assert ---
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "light_1", verr.Set)
	assert.Nil(t, report)
	assert.Equal(t, before, r.stats(t), "no mutation on validation failure")
	_, marked := r.store.Attribute(context.Background(), r.set.ID, marker.Attribute)
	assert.False(t, marked)
	assert.True(t, r.journal.Enabled())
}

func TestRun_ScenarioB_FreshTarget(t *testing.T) {
	// --- Arrange ---
	ctx := context.Background()
	r, doc := newRun(t, document.KindLight, nil)
	battery := &config.Battery{
		Group: config.DefaultGroup,
		Controls: []*config.Control{
			{Label: "Cast Shadows", Attribute: "castsShadows", Initial: 1, Default: 1},
			{Label: "Cast Volumetrics", Attribute: "volumetric", Initial: 0, Default: 0},
		},
		Remaps: []*config.Remap{{Control: "shadowAtten", Attribute: "shadowAtten", Lo: 0, Hi: 1}},
	}
	var flags []bool
	r.store.Subscribe(func(ev document.Event) {
		if ev.Type == document.EventChannelMode {
			flags = append(flags, r.journal.Enabled())
		}
	})

	// --- Act ---
	report, err := New(doc, r.journal, r.sched, battery).Run(ctx)

	// --- Assert ---
	require.NoError(t, err)
	assert.Empty(t, report.Failures())
	assert.True(t, report.Marked)
	assert.Equal(t, []string{"shadowAtten"}, report.Remapped())
	assert.Equal(t, document.Stats{Controls: 4, Operators: 1, Connections: 1}, r.stats(t))
	assert.Equal(t, []bool{false, false}, flags)
	assert.True(t, r.journal.Enabled())
	assert.Empty(t, r.journal.Entries())

	// The remapped channel drives an operator with exactly the requested bounds.
	c, ok := r.store.FindControl(ctx, r.set.ID, "shadowAtten")
	require.True(t, ok)
	ch, _ := r.store.Channel(ctx, c.Channel)
	assert.Equal(t, document.ModeViaElement, ch.Mode)
	op, ok := r.store.Operator(ctx, ch.ToElement)
	require.True(t, ok)
	lo, _ := op.Number("lo")
	hi, _ := op.Number("hi")
	assert.Equal(t, 0.0, lo)
	assert.Equal(t, 1.0, hi)
	assert.True(t, marker.New(r.store, r.journal, r.set.ID).IsProcessed(ctx))
}

func TestRun_DefaultBatteryIsIdempotent(t *testing.T) {
	// --- Arrange ---
	ctx := context.Background()
	r, doc := newRun(t, document.KindLight, nil)
	o := New(doc, r.journal, r.sched, nil)

	// --- Act ---
	first, err := o.Run(ctx)
	require.NoError(t, err)
	afterFirst := r.stats(t)
	second, err := o.Run(ctx)
	require.NoError(t, err)

	// --- Assert ---
	assert.Empty(t, first.Failures())
	assert.ElementsMatch(t, []string{"roundness", "shadowAtten", "noiseStrength"}, first.Remapped())
	assert.Equal(t, document.Stats{Controls: 8, Operators: 3, Connections: 3}, afterFirst)

	assert.True(t, second.AlreadyProcessed)
	assert.Equal(t, afterFirst, r.stats(t), "a second run adds nothing")
	assert.True(t, r.journal.Enabled())
}

func TestRun_ScenarioC_AlreadyProcessedRecoversLogging(t *testing.T) {
	ctx := context.Background()
	r, doc := newRun(t, document.KindLight, nil)
	require.NoError(t, marker.New(r.store, r.journal, r.set.ID).MarkProcessed(ctx))
	_, err := r.journal.Suspend()
	require.NoError(t, err)
	before := r.stats(t)

	report, err := New(doc, r.journal, r.sched, nil).Run(ctx)

	require.NoError(t, err)
	assert.True(t, report.AlreadyProcessed)
	assert.True(t, report.LoggingRecovered)
	assert.Equal(t, before, r.stats(t))
	assert.True(t, r.journal.Enabled())
}

func TestRun_ScenarioC_HealthyJournalIsUntouched(t *testing.T) {
	// --- Arrange ---
	ctx := context.Background()
	r, doc := newRun(t, document.KindLight, nil)
	require.NoError(t, marker.New(r.store, r.journal, r.set.ID).MarkProcessed(ctx))
	r.journal.Record("set_attribute", "light_1.shadowAtten")
	r.journal.Record("set_attribute", "light_1.noiseStrength")
	entries := r.journal.Entries()
	require.NotEmpty(t, entries)
	toggles := 0
	r.journal.OnToggle(func(bool) { toggles++ })

	// --- Act ---
	report, err := New(doc, r.journal, r.sched, nil).Run(ctx)

	// --- Assert ---
	require.NoError(t, err)
	assert.True(t, report.AlreadyProcessed)
	assert.False(t, report.LoggingRecovered)
	assert.True(t, r.journal.Enabled())
	assert.Equal(t, entries, r.journal.Entries(), "the change log survives a skipped run")
	assert.Zero(t, toggles, "the logging flag is not touched")
}

// groupRefusingDoc fails control group registration for one control.
type groupRefusingDoc struct {
	*inmemorydoc.Store
	set  document.ID
	name string
}

func (d *groupRefusingDoc) AddControlToGroup(ctx context.Context, group, control document.ID) error {
	if c, ok := d.Store.FindControl(ctx, d.set, d.name); ok && c.ID == control {
		return errors.New("group is full")
	}
	return d.Store.AddControlToGroup(ctx, group, control)
}

func TestRun_PartialFailureStillMarks(t *testing.T) {
	// --- Arrange ---
	ctx := context.Background()
	var refusing *groupRefusingDoc
	r, doc := newRun(t, document.KindLight, func(s *inmemorydoc.Store) document.Document {
		refusing = &groupRefusingDoc{Store: s, name: "volumetric"}
		return refusing
	})
	refusing.set = r.set.ID

	// --- Act ---
	report, err := New(doc, r.journal, r.sched, nil).Run(ctx)

	// --- Assert ---
	require.NoError(t, err)
	require.Len(t, report.Failures(), 1)
	var bindErr *binder.BindingError
	require.ErrorAs(t, report.Failures()[0], &bindErr)
	assert.Equal(t, "volumetric", bindErr.Control)

	ok := 0
	for _, o := range report.Controls {
		if o.Err == nil {
			ok++
		}
	}
	assert.Equal(t, len(config.DefaultBattery().Controls)-1, ok, "the other controls are still added")
	assert.True(t, report.Marked)
	assert.True(t, r.journal.Enabled())
}

func TestRun_MissingRemapControlIsNotFatal(t *testing.T) {
	ctx := context.Background()
	r, doc := newRun(t, document.KindLight, nil)
	battery := &config.Battery{
		Group:  config.DefaultGroup,
		Remaps: []*config.Remap{{Control: "ghost", Lo: 0, Hi: 1}, {Control: "shadowAtten", Lo: 0.5, Hi: 2}},
	}

	report, err := New(doc, r.journal, r.sched, battery).Run(ctx)

	require.NoError(t, err)
	var lookupErr *binder.LookupError
	require.ErrorAs(t, report.Remaps[0].Err, &lookupErr)
	assert.NoError(t, report.Remaps[1].Err)
	assert.Equal(t, []string{"shadowAtten"}, report.Remapped())
	assert.True(t, report.Marked)
}

func TestRun_CancelledRunIsNotMarked(t *testing.T) {
	// --- Arrange ---
	ctx, cancel := context.WithCancel(context.Background())
	r, doc := newRun(t, document.KindLight, nil)
	r.store.Subscribe(func(ev document.Event) {
		if ev.Type == document.EventChannelMode && ev.Mode == document.ModeDetached {
			cancel()
		}
	})

	// --- Act ---
	report, err := New(doc, r.journal, r.sched, nil).Run(ctx)

	// --- Assert ---
	require.ErrorIs(t, err, scheduler.ErrCancelled)
	require.NotNil(t, report)
	assert.False(t, report.Marked)
	assert.Empty(t, report.Remapped())
	assert.True(t, r.journal.Enabled())
	for _, res := range report.Rewiring {
		ch, _ := r.store.Channel(context.Background(), res.Request.Channel)
		assert.Equal(t, document.ModeDirect, ch.Mode, "no channel is left detached")
		assert.True(t, res.Unwired, res.Request.Control)
	}
	stats := r.stats(t)
	assert.Zero(t, stats.Operators, "no attribute is left driven by a stray operator")
	assert.Zero(t, stats.Connections)
	assert.False(t, marker.New(r.store, r.journal, r.set.ID).IsProcessed(context.Background()))
}
