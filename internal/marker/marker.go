// Package marker records that an animation set has been augmented, so a
// second run on the same set is a no-op.
package marker

import (
	"context"
	"fmt"

	"github.com/vk/morelight/internal/ctxlog"
	"github.com/vk/morelight/internal/document"
	"github.com/vk/morelight/internal/undo"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/convert"
)

// Attribute is the bool attribute set on processed animation sets.
const Attribute = "_MoreLight"

// Marker reads and writes the processed mark of one animation set.
type Marker struct {
	doc     document.Document
	journal *undo.Journal
	set     document.ID
}

// New returns a marker for set.
func New(doc document.Document, journal *undo.Journal, set document.ID) *Marker {
	return &Marker{doc: doc, journal: journal, set: set}
}

// MarkProcessed sets the mark. Marking twice leaves a single mark.
func (m *Marker) MarkProcessed(ctx context.Context) error {
	if err := m.doc.SetAttribute(ctx, m.set, Attribute, cty.True); err != nil {
		return fmt.Errorf("failed to mark animation set processed: %w", err)
	}
	ctxlog.FromContext(ctx).Debug("Animation set marked processed.", "attribute", Attribute)
	return nil
}

// IsProcessed reports whether the mark is present and true. It has no side
// effects.
func (m *Marker) IsProcessed(ctx context.Context) bool {
	v, ok := m.doc.Attribute(ctx, m.set, Attribute)
	if !ok || v.IsNull() || !v.IsKnown() {
		return false
	}
	b, err := convert.Convert(v, cty.Bool)
	if err != nil {
		return false
	}
	return b.True()
}

// RecoverLogging forces change logging back on in case an earlier run left
// it suspended. It reports whether anything had to be recovered.
func (m *Marker) RecoverLogging(ctx context.Context) bool {
	recovered := m.journal.Recover()
	if recovered {
		ctxlog.FromContext(ctx).Warn("Change logging was left suspended by an earlier run, restored it.")
	}
	return recovered
}
