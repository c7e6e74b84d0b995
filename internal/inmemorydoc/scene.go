package inmemorydoc

import (
	"context"
	"fmt"

	"github.com/vk/morelight/internal/config"
	"github.com/vk/morelight/internal/ctxlog"
	"github.com/vk/morelight/internal/document"
	"github.com/vk/morelight/internal/elemid"
	"github.com/vk/morelight/internal/undo"
	"github.com/zclconf/go-cty/cty"
)

// FromScene builds a document from a scene snapshot. Loading is not
// journaled: the journal is suspended while the scene is applied and comes
// back enabled and empty.
func FromScene(ctx context.Context, scene *config.Scene, journal *undo.Journal) (*Store, error) {
	logger := ctxlog.FromContext(ctx)
	s := New(journal)

	guard, err := s.journal.Suspend()
	if err != nil {
		return nil, fmt.Errorf("failed to suspend change logging for scene load: %w", err)
	}
	defer guard.ForceRelease()

	for _, ss := range scene.Sets {
		if err := s.loadSet(ctx, ss); err != nil {
			return nil, fmt.Errorf("animation set %q: %w", ss.Name, err)
		}
	}

	if scene.Current != "" {
		if err := s.SelectSet(scene.Current); err != nil {
			return nil, err
		}
	}
	logger.Debug("Scene loaded into document.", "sets", len(scene.Sets), "current", scene.Current)
	return s, nil
}

func (s *Store) loadSet(ctx context.Context, ss *config.SceneSet) error {
	kind, err := document.ParseKind(ss.Kind)
	if err != nil {
		return err
	}
	var lightAttrs map[string]cty.Value
	if ss.Light != nil {
		lightAttrs = ss.Light.Attributes
	}
	set, err := s.AddAnimationSet(ctx, ss.Name, kind, lightAttrs)
	if err != nil {
		return err
	}
	for name, v := range ss.Attributes {
		if err := s.SetAttribute(ctx, set.ID, name, v); err != nil {
			return err
		}
	}

	// Operators first: channels and connections refer to them by name.
	for _, so := range ss.Operators {
		if _, err := s.CreateOperator(ctx, set.ID, document.NewOperator{Name: so.Name, Expr: so.Expr, Inputs: so.Inputs}); err != nil {
			return fmt.Errorf("operator %q: %w", so.Name, err)
		}
	}

	for _, sc := range ss.Controls {
		if err := s.loadControl(ctx, set, sc); err != nil {
			return fmt.Errorf("control %q: %w", sc.Name, err)
		}
	}

	for _, sc := range ss.Connections {
		from, err := s.resolveRef(set, sc.From)
		if err != nil {
			return fmt.Errorf("connection %q: %w", sc.Name, err)
		}
		to, err := s.resolveRef(set, sc.To)
		if err != nil {
			return fmt.Errorf("connection %q: %w", sc.Name, err)
		}
		_, err = s.CreateConnection(ctx, set.ID, document.NewConnection{
			Name:      sc.Name,
			From:      from.id,
			Output:    from.attribute,
			To:        to.id,
			Attribute: to.attribute,
		})
		if err != nil {
			return fmt.Errorf("connection %q: %w", sc.Name, err)
		}
	}
	return nil
}

func (s *Store) loadControl(ctx context.Context, set *document.AnimationSet, sc *config.SceneControl) error {
	mode, err := document.ParseChannelMode(sc.Mode)
	if err != nil {
		return err
	}

	var target resolved
	if mode != document.ModeDetached {
		if target, err = s.resolveRef(set, sc.Channel); err != nil {
			return err
		}
	}

	s.mu.Lock()
	if s.findControlLocked(set.ID, sc.Name) != nil {
		s.mu.Unlock()
		return fmt.Errorf("duplicate control")
	}
	if mode != document.ModeDetached {
		if err := s.checkTargetLocked(target.id, target.attribute); err != nil {
			s.mu.Unlock()
			return err
		}
	}
	ch := &document.Channel{
		ID:          elemid.New(),
		Name:        sc.Name + "_channel",
		Mode:        mode,
		ToElement:   target.id,
		ToAttribute: target.attribute,
	}
	c := &document.Control{
		ID:      elemid.New(),
		Name:    sc.Name,
		Set:     set.ID,
		Value:   sc.Value,
		Default: sc.Default,
		Channel: ch.ID,
	}
	s.channels[ch.ID] = ch
	s.controls[c.ID] = c
	s.ctrlOrder = append(s.ctrlOrder, c.ID)
	s.mu.Unlock()

	if sc.Group == "" {
		return nil
	}
	group, err := s.FindOrAddControlGroup(ctx, set.ID, set.RootGroup, sc.Group)
	if err != nil {
		return err
	}
	return s.AddControlToGroup(ctx, group.ID, c.ID)
}

type resolved struct {
	id        ID
	attribute string
}

// resolveRef maps a scene reference onto the set's light element or one of
// its operators.
func (s *Store) resolveRef(set *document.AnimationSet, raw string) (resolved, error) {
	ref, err := elemid.ParseRef(raw)
	if err != nil {
		return resolved{}, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	if ref.Element == LightElementName && !set.LightElement.IsZero() {
		return resolved{id: set.LightElement, attribute: ref.Attribute}, nil
	}
	for _, id := range s.opOrder {
		if op := s.operators[id]; op.Set == set.ID && op.Name == ref.Element {
			return resolved{id: op.ID, attribute: ref.Attribute}, nil
		}
	}
	return resolved{}, fmt.Errorf("reference %q: %w", raw, document.ErrNotFound)
}

// Scene takes a snapshot of the document in its format-agnostic form.
func (s *Store) Scene(ctx context.Context) *config.Scene {
	s.mu.RLock()
	defer s.mu.RUnlock()

	scene := &config.Scene{}
	if cur, ok := s.sets[s.current]; ok {
		scene.Current = cur.Name
	}

	for _, setID := range s.setOrder {
		set := s.sets[setID]
		ss := &config.SceneSet{
			Name:       set.Name,
			Kind:       set.Kind.String(),
			Attributes: cloneValues(s.setAttrs[setID]),
		}
		if light, ok := s.elements[set.LightElement]; ok {
			ss.Light = &config.SceneElement{Name: light.Name, Attributes: cloneValues(light.Attributes)}
		}
		for _, id := range s.opOrder {
			op := s.operators[id]
			if op.Set != setID {
				continue
			}
			ss.Operators = append(ss.Operators, &config.SceneOperator{Name: op.Name, Expr: op.Expr, Inputs: cloneValues(op.Inputs)})
		}
		for _, id := range s.ctrlOrder {
			c := s.controls[id]
			if c.Set != setID {
				continue
			}
			ch := s.channels[c.Channel]
			sc := &config.SceneControl{
				Name:    c.Name,
				Value:   c.Value,
				Default: c.Default,
				Mode:    ch.Mode.String(),
				Channel: s.refLocked(ch.ToElement, ch.ToAttribute),
			}
			if g, ok := s.groups[s.groupOf[id]]; ok {
				sc.Group = g.Name
			}
			ss.Controls = append(ss.Controls, sc)
		}
		for _, id := range s.connOrder {
			conn := s.connections[id]
			if conn.Set != setID {
				continue
			}
			ss.Connections = append(ss.Connections, &config.SceneConnection{
				Name: conn.Name,
				From: s.refLocked(conn.From, conn.Output),
				To:   s.refLocked(conn.To, conn.Attribute),
			})
		}
		scene.Sets = append(scene.Sets, ss)
	}
	return scene
}
