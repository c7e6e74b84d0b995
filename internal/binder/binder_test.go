package binder

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vk/morelight/internal/config"
	"github.com/vk/morelight/internal/document"
	"github.com/vk/morelight/internal/inmemorydoc"
	"github.com/vk/morelight/internal/scheduler"
	"github.com/vk/morelight/internal/undo"
	"github.com/zclconf/go-cty/cty"
)

type recordingSubmitter struct {
	reqs []scheduler.Request
	err  error
}

func (r *recordingSubmitter) Submit(_ context.Context, req scheduler.Request) error {
	if r.err != nil {
		return r.err
	}
	r.reqs = append(r.reqs, req)
	return nil
}

// groupFailingDoc refuses to group the named controls.
type groupFailingDoc struct {
	*inmemorydoc.Store
	set    document.ID
	refuse map[string]bool
}

func (d *groupFailingDoc) AddControlToGroup(ctx context.Context, group, control document.ID) error {
	for name := range d.refuse {
		if c, ok := d.Store.FindControl(ctx, d.set, name); ok && c.ID == control {
			return errors.New("group is locked")
		}
	}
	return d.Store.AddControlToGroup(ctx, group, control)
}

var _ document.Document = (*groupFailingDoc)(nil)

func newTarget(t *testing.T) (*inmemorydoc.Store, document.LightSet) {
	t.Helper()
	store := inmemorydoc.New(undo.NewJournal())
	set, err := store.AddAnimationSet(context.Background(), "light_1", document.KindLight, map[string]cty.Value{
		"castsShadows": cty.NumberIntVal(1),
		"volumetric":   cty.NumberIntVal(0),
		"roundness":    cty.NumberFloatVal(0.8),
		"shadowAtten":  cty.NumberFloatVal(0.5),
	})
	require.NoError(t, err)
	target, ok := set.AsLight()
	require.True(t, ok)
	return store, target
}

func TestAddControl_CreatesGroupedDirectControl(t *testing.T) {
	// --- Arrange ---
	ctx := context.Background()
	store, target := newTarget(t)
	sub := &recordingSubmitter{}
	b := New(store, target, "", sub)

	// --- Act ---
	out := b.AddControl(ctx, ControlSpec{Label: "Casts Shadows", Attribute: "castsShadows", Initial: 1, Default: 1})
	out2 := b.AddControl(ctx, ControlSpec{Label: "Volumetric", Attribute: "volumetric"})

	// --- Assert ---
	require.True(t, out.OK(), "%v", out.Err)
	require.True(t, out2.OK(), "%v", out2.Err)
	assert.Nil(t, out.Remap)
	assert.Empty(t, sub.reqs)

	c, ok := store.FindControl(ctx, target.ID, "castsShadows")
	require.True(t, ok)
	assert.Equal(t, 1.0, c.Value)
	assert.Equal(t, 1.0, c.Default)
	ch, ok := store.Channel(ctx, c.Channel)
	require.True(t, ok)
	assert.Equal(t, document.ModeDirect, ch.Mode)
	assert.Equal(t, target.Light, ch.ToElement)

	group, err := store.FindOrAddControlGroup(ctx, target.ID, target.RootGroup, config.DefaultGroup)
	require.NoError(t, err)
	assert.Equal(t, []document.ID{out.Control, out2.Control}, group.Controls, "both controls share one group")
}

func TestAddControl_RemapUsesDefaultBounds(t *testing.T) {
	ctx := context.Background()
	store, target := newTarget(t)
	sub := &recordingSubmitter{}
	b := New(store, target, "More-Light", sub)

	out := b.AddControl(ctx, ControlSpec{Label: "Roundness", Attribute: "roundness", Initial: 0.8, Default: 0.8, Remap: true})

	require.True(t, out.OK())
	require.NotNil(t, out.Remap)
	assert.Equal(t, KindRemap, out.Remap.Kind)

	op, ok := store.Operator(ctx, out.Remap.Operator)
	require.True(t, ok)
	assert.Equal(t, "roundness_rescale", op.Name)
	lo, err := op.Number("lo")
	require.NoError(t, err)
	hi, err := op.Number("hi")
	require.NoError(t, err)
	assert.Equal(t, DefaultLo, lo)
	assert.Equal(t, DefaultHi, hi)

	require.Len(t, sub.reqs, 1)
	req := sub.reqs[0]
	assert.Equal(t, out.Remap.Operator, req.Operator)
	assert.Equal(t, document.LerpInput, req.Input)
	assert.Equal(t, target.Light, req.Element)
	assert.Equal(t, "roundness", req.Attribute)

	ch, _ := store.Channel(ctx, req.Channel)
	assert.Equal(t, document.ModeDirect, ch.Mode, "the binder never moves the channel itself")
}

func TestAddControl_Errors(t *testing.T) {
	testCases := []struct {
		name      string
		spec      ControlSpec
		refuse    string
		wantGroup string
		exists    bool
	}{
		{
			name:   "unknown attribute",
			spec:   ControlSpec{Label: "Uberlight", Attribute: "uberlight"},
			exists: false,
		},
		{
			name:      "group registration refused",
			spec:      ControlSpec{Label: "Volumetric", Attribute: "volumetric", Remap: true},
			refuse:    "volumetric",
			wantGroup: config.DefaultGroup,
			exists:    true,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			// --- Arrange ---
			ctx := context.Background()
			store, target := newTarget(t)
			doc := &groupFailingDoc{Store: store, set: target.ID, refuse: map[string]bool{}}
			if tc.refuse != "" {
				doc.refuse[tc.refuse] = true
			}
			sub := &recordingSubmitter{}

			// --- Act ---
			out := New(doc, target, "", sub).AddControl(ctx, tc.spec)

			// --- Assert ---
			var bindErr *BindingError
			require.ErrorAs(t, out.Err, &bindErr)
			assert.Equal(t, tc.wantGroup, bindErr.Group)
			assert.Nil(t, out.Remap, "no remap after a failed binding")
			assert.Empty(t, sub.reqs)

			_, exists := store.FindControl(ctx, target.ID, tc.spec.Attribute)
			assert.Equal(t, tc.exists, exists)
		})
	}
}

func TestCreateRemap_LookupError(t *testing.T) {
	ctx := context.Background()
	store, target := newTarget(t)
	sub := &recordingSubmitter{}

	out := New(store, target, "", sub).CreateRemap(ctx, RemapSpec{Control: "noiseStrength", Lo: 0, Hi: 1})

	var lookupErr *LookupError
	require.ErrorAs(t, out.Err, &lookupErr)
	assert.Equal(t, "noiseStrength", lookupErr.Control)
	assert.Equal(t, "noiseStrength", out.Attribute, "attribute defaults to the control name")
	assert.Equal(t, document.Stats{}, store.Stats(ctx, target.ID))
	assert.Empty(t, sub.reqs)
}

func TestCreateRemap_ConnectionErrorRemovesOperator(t *testing.T) {
	// --- Arrange ---
	ctx := context.Background()
	store, target := newTarget(t)
	b := New(store, target, "", &recordingSubmitter{})
	require.True(t, b.AddControl(ctx, ControlSpec{Attribute: "shadowAtten", Initial: 0.5, Default: 0.5}).OK())

	// --- Act ---
	out := b.CreateRemap(ctx, RemapSpec{Control: "shadowAtten", Attribute: "noSuchAttr", Lo: 0, Hi: 1})

	// --- Assert ---
	var connErr *ConnectionError
	require.ErrorAs(t, out.Err, &connErr)
	assert.ErrorIs(t, out.Err, document.ErrUnknownAttribute)
	assert.Equal(t, 0, store.Stats(ctx, target.ID).Operators, "the orphan operator is removed again")
	assert.True(t, out.Operator.IsZero())
}

func TestCreateRemap_RejectsNonDirectChannel(t *testing.T) {
	ctx := context.Background()
	store, target := newTarget(t)
	b := New(store, target, "", &recordingSubmitter{})
	add := b.AddControl(ctx, ControlSpec{Attribute: "shadowAtten"})
	require.True(t, add.OK())
	c, _ := store.FindControl(ctx, target.ID, "shadowAtten")
	require.NoError(t, store.DetachChannel(ctx, c.Channel))

	out := b.CreateRemap(ctx, RemapSpec{Control: "shadowAtten", Lo: 0, Hi: 1})

	var connErr *ConnectionError
	require.ErrorAs(t, out.Err, &connErr)
	assert.Contains(t, out.Err.Error(), "not direct")
	assert.Equal(t, 0, store.Stats(ctx, target.ID).Operators)
}

func TestCreateRemap_SubmitFailure(t *testing.T) {
	// --- Arrange ---
	ctx := context.Background()
	store, target := newTarget(t)
	sub := &recordingSubmitter{}
	b := New(store, target, "", sub)
	require.True(t, b.AddControl(ctx, ControlSpec{Attribute: "shadowAtten"}).OK())
	sub.err = scheduler.ErrBatchClosed

	// --- Act ---
	out := b.CreateRemap(ctx, RemapSpec{Control: "shadowAtten", Lo: 0.25, Hi: 0.75})

	// --- Assert ---
	assert.ErrorIs(t, out.Err, scheduler.ErrBatchClosed)
	var connErr *ConnectionError
	require.ErrorAs(t, out.Err, &connErr)
	assert.Equal(t, "shadowAtten", connErr.Control)
	assert.Equal(t, "shadowAtten", connErr.Attribute)

	require.NotNil(t, out.Request)
	assert.True(t, out.Operator.IsZero(), "the operator is removed")
	assert.True(t, out.Connection.IsZero(), "the connection is removed")
	_, ok := store.Operator(ctx, out.Request.Operator)
	assert.False(t, ok)
	stats := store.Stats(ctx, target.ID)
	assert.Zero(t, stats.Operators)
	assert.Zero(t, stats.Connections)

	c, ok := store.FindControl(ctx, target.ID, "shadowAtten")
	require.True(t, ok)
	ch, ok := store.Channel(ctx, c.Channel)
	require.True(t, ok)
	assert.Equal(t, document.ModeDirect, ch.Mode, "the control still drives its attribute")
}

func TestFromConfig(t *testing.T) {
	battery := config.DefaultBattery()
	spec := FromConfig(battery.Controls[len(battery.Controls)-1])
	assert.Equal(t, ControlSpec{Label: spec.Label, Attribute: "roundness", Initial: 0.8, Default: 0.8, Remap: true}, spec)

	remap := RemapFromConfig(battery.Remaps[0])
	assert.Equal(t, RemapSpec{Control: "shadowAtten", Attribute: "shadowAtten", Lo: 0, Hi: 1}, remap)
}
