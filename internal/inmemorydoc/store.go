package inmemorydoc

import (
	"context"
	"fmt"
	"sync"

	"github.com/vk/morelight/internal/ctxlog"
	"github.com/vk/morelight/internal/document"
	"github.com/vk/morelight/internal/elemid"
	"github.com/vk/morelight/internal/undo"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/convert"
)

// Compile-time assertion that Store satisfies the document contract.
var _ document.Document = (*Store)(nil)

// ID aliases document.ID.
type ID = document.ID

// RootGroupName is the name of the control group every animation set starts with.
const RootGroupName = "root"

// LightElementName is the name of the element a light animation set drives.
// Scene references use it as the element part, e.g. `light.shadowAtten`.
const LightElementName = "light"

// ResultOutput is the only output an operator exposes.
const ResultOutput = document.LerpOutput

// Store implements document.Document using maps and a mutex.
type Store struct {
	mu sync.RWMutex

	journal *undo.Journal
	current ID

	sets     map[ID]*document.AnimationSet
	setOrder []ID
	setAttrs map[ID]map[string]cty.Value

	elements    map[ID]*document.Element
	groups      map[ID]*document.ControlGroup
	controls    map[ID]*document.Control
	ctrlOrder   []ID
	groupOf     map[ID]ID
	channels    map[ID]*document.Channel
	operators   map[ID]*document.Operator
	opOrder     []ID
	connections map[ID]*document.Connection
	connOrder   []ID

	observers []document.Observer
}

// New creates an empty document that records mutations in journal.
func New(journal *undo.Journal) *Store {
	if journal == nil {
		journal = undo.NewJournal()
	}
	return &Store{
		journal:     journal,
		sets:        make(map[ID]*document.AnimationSet),
		setAttrs:    make(map[ID]map[string]cty.Value),
		elements:    make(map[ID]*document.Element),
		groups:      make(map[ID]*document.ControlGroup),
		controls:    make(map[ID]*document.Control),
		groupOf:     make(map[ID]ID),
		channels:    make(map[ID]*document.Channel),
		operators:   make(map[ID]*document.Operator),
		connections: make(map[ID]*document.Connection),
	}
}

// Journal returns the change log the store records into.
func (s *Store) Journal() *undo.Journal {
	return s.journal
}

// AddAnimationSet creates an animation set with its root control group.
// Light sets also get a light element carrying lightAttrs.
func (s *Store) AddAnimationSet(ctx context.Context, name string, kind document.Kind, lightAttrs map[string]cty.Value) (*document.AnimationSet, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, id := range s.setOrder {
		if s.sets[id].Name == name {
			return nil, fmt.Errorf("animation set %q already exists", name)
		}
	}

	set := &document.AnimationSet{ID: elemid.New(), Name: name, Kind: kind}
	root := &document.ControlGroup{ID: elemid.New(), Name: RootGroupName, Set: set.ID}
	set.RootGroup = root.ID
	s.groups[root.ID] = root

	if kind == document.KindLight {
		light := &document.Element{
			ID:         elemid.New(),
			Name:       LightElementName,
			Type:       "light",
			Attributes: cloneValues(lightAttrs),
		}
		s.elements[light.ID] = light
		set.LightElement = light.ID
	}

	s.sets[set.ID] = set
	s.setOrder = append(s.setOrder, set.ID)
	s.setAttrs[set.ID] = make(map[string]cty.Value)
	if s.current.IsZero() {
		s.current = set.ID
	}

	ctxlog.FromContext(ctx).Debug("Animation set added.", "set", name, "kind", kind.String())
	cp := *set
	return &cp, nil
}

// SelectSet makes the named set the current selection.
func (s *Store) SelectSet(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, id := range s.setOrder {
		if s.sets[id].Name == name {
			s.current = id
			return nil
		}
	}
	return fmt.Errorf("animation set %q: %w", name, document.ErrNotFound)
}

// SetByName looks up an animation set by name.
func (s *Store) SetByName(name string) (*document.AnimationSet, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, id := range s.setOrder {
		if set := s.sets[id]; set.Name == name {
			cp := *set
			return &cp, true
		}
	}
	return nil, false
}

// CurrentSet implements document.Document.
func (s *Store) CurrentSet(ctx context.Context) (*document.AnimationSet, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	set, ok := s.sets[s.current]
	if !ok {
		return nil, fmt.Errorf("no animation set selected: %w", document.ErrNotFound)
	}
	cp := *set
	return &cp, nil
}

// AnimationSet implements document.Document.
func (s *Store) AnimationSet(ctx context.Context, id ID) (*document.AnimationSet, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	set, ok := s.sets[id]
	if !ok {
		return nil, false
	}
	cp := *set
	return &cp, true
}

// Element implements document.Document.
func (s *Store) Element(ctx context.Context, id ID) (*document.Element, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	el, ok := s.elements[id]
	if !ok {
		return nil, false
	}
	cp := *el
	cp.Attributes = cloneValues(el.Attributes)
	return &cp, true
}

// Attribute implements document.Document. Owners may be animation sets,
// elements or operators (whose attributes are their inputs).
func (s *Store) Attribute(ctx context.Context, owner ID, name string) (cty.Value, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	attrs, ok := s.attributesOf(owner)
	if !ok {
		return cty.NilVal, false
	}
	v, ok := attrs[name]
	return v, ok
}

// SetAttribute implements document.Document. Overwriting an existing
// attribute converts the new value to the attribute's type.
func (s *Store) SetAttribute(ctx context.Context, owner ID, name string, value cty.Value) error {
	s.mu.Lock()
	attrs, ok := s.attributesOf(owner)
	if !ok {
		s.mu.Unlock()
		return fmt.Errorf("attribute owner %s: %w", owner, document.ErrNotFound)
	}
	if existing, exists := attrs[name]; exists && !existing.Type().Equals(value.Type()) {
		converted, err := convert.Convert(value, existing.Type())
		if err != nil {
			s.mu.Unlock()
			return fmt.Errorf("attribute %q expects %s: %w", name, existing.Type().FriendlyName(), err)
		}
		value = converted
	}
	attrs[name] = value
	s.journal.Record("set_attribute", name)
	set := s.setOf(owner)
	s.mu.Unlock()

	s.notify(document.Event{Type: document.EventAttributeSet, Set: set, Target: owner, Name: name})
	return nil
}

// FindOrAddControlGroup implements document.Document.
func (s *Store) FindOrAddControlGroup(ctx context.Context, set ID, parent ID, name string) (*document.ControlGroup, error) {
	s.mu.Lock()
	p, ok := s.groups[parent]
	if !ok || p.Set != set {
		s.mu.Unlock()
		return nil, fmt.Errorf("parent group %s of set %s: %w", parent, set, document.ErrNotFound)
	}
	for _, childID := range p.Children {
		if child := s.groups[childID]; child.Name == name {
			cp := cloneGroup(child)
			s.mu.Unlock()
			return cp, nil
		}
	}

	g := &document.ControlGroup{ID: elemid.New(), Name: name, Set: set, Parent: parent}
	s.groups[g.ID] = g
	p.Children = append(p.Children, g.ID)
	s.journal.Record("create_group", name)
	cp := cloneGroup(g)
	s.mu.Unlock()

	ctxlog.FromContext(ctx).Debug("Control group created.", "group", name)
	s.notify(document.Event{Type: document.EventGroupCreated, Set: set, Target: g.ID, Name: name})
	return cp, nil
}

// CreateControl implements document.Document.
func (s *Store) CreateControl(ctx context.Context, set ID, spec document.NewControl) (*document.Control, error) {
	s.mu.Lock()
	if _, ok := s.sets[set]; !ok {
		s.mu.Unlock()
		return nil, fmt.Errorf("animation set %s: %w", set, document.ErrNotFound)
	}
	if s.findControlLocked(set, spec.Name) != nil {
		s.mu.Unlock()
		return nil, fmt.Errorf("control %q already exists", spec.Name)
	}
	if err := s.checkTargetLocked(spec.Element, spec.Attribute); err != nil {
		s.mu.Unlock()
		return nil, err
	}

	ch := &document.Channel{
		ID:          elemid.New(),
		Name:        spec.Name + "_channel",
		Mode:        document.ModeDirect,
		ToElement:   spec.Element,
		ToAttribute: spec.Attribute,
	}
	c := &document.Control{
		ID:      elemid.New(),
		Name:    spec.Name,
		Set:     set,
		Value:   spec.Value,
		Default: spec.Default,
		Channel: ch.ID,
	}
	s.channels[ch.ID] = ch
	s.controls[c.ID] = c
	s.ctrlOrder = append(s.ctrlOrder, c.ID)
	s.journal.Record("create_control", spec.Name)
	cp := *c
	s.mu.Unlock()

	s.notify(document.Event{Type: document.EventControlCreated, Set: set, Target: c.ID, Name: c.Name})
	return &cp, nil
}

// FindControl implements document.Document.
func (s *Store) FindControl(ctx context.Context, set ID, name string) (*document.Control, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c := s.findControlLocked(set, name)
	if c == nil {
		return nil, false
	}
	cp := *c
	return &cp, true
}

// AddControlToGroup implements document.Document.
func (s *Store) AddControlToGroup(ctx context.Context, group ID, control ID) error {
	s.mu.Lock()
	g, ok := s.groups[group]
	if !ok {
		s.mu.Unlock()
		return fmt.Errorf("control group %s: %w", group, document.ErrNotFound)
	}
	c, ok := s.controls[control]
	if !ok {
		s.mu.Unlock()
		return fmt.Errorf("control %s: %w", control, document.ErrNotFound)
	}
	if c.Set != g.Set {
		s.mu.Unlock()
		return fmt.Errorf("control %q and group %q belong to different animation sets", c.Name, g.Name)
	}
	if _, grouped := s.groupOf[control]; grouped {
		s.mu.Unlock()
		return fmt.Errorf("control %q: %w", c.Name, document.ErrAlreadyGrouped)
	}
	g.Controls = append(g.Controls, control)
	s.groupOf[control] = group
	s.journal.Record("group_control", c.Name)
	s.mu.Unlock()

	s.notify(document.Event{Type: document.EventControlGrouped, Set: g.Set, Target: control, Name: g.Name})
	return nil
}

// Channel implements document.Document.
func (s *Store) Channel(ctx context.Context, id ID) (*document.Channel, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ch, ok := s.channels[id]
	if !ok {
		return nil, false
	}
	cp := *ch
	return &cp, true
}

// DetachChannel implements document.Document.
func (s *Store) DetachChannel(ctx context.Context, id ID) error {
	return s.transition(ctx, id, document.ModeDirect, document.ModeDetached, "", "")
}

// RetargetChannel implements document.Document.
func (s *Store) RetargetChannel(ctx context.Context, id ID, element ID, attribute string) error {
	return s.transition(ctx, id, document.ModeDetached, document.ModeViaElement, element, attribute)
}

// RestoreChannel implements document.Document.
func (s *Store) RestoreChannel(ctx context.Context, id ID, element ID, attribute string) error {
	return s.transition(ctx, id, document.ModeDetached, document.ModeDirect, element, attribute)
}

// transition applies one channel mode change as a single visible mutation.
func (s *Store) transition(ctx context.Context, id ID, from, to document.ChannelMode, element ID, attribute string) error {
	s.mu.Lock()
	ch, ok := s.channels[id]
	if !ok {
		s.mu.Unlock()
		return fmt.Errorf("channel %s: %w", id, document.ErrNotFound)
	}
	if ch.Mode != from {
		s.mu.Unlock()
		return fmt.Errorf("channel %q is %s, cannot move to %s: %w", ch.Name, ch.Mode, to, document.ErrInvalidTransition)
	}
	if to != document.ModeDetached {
		if err := s.checkTargetLocked(element, attribute); err != nil {
			s.mu.Unlock()
			return err
		}
	}

	ch.Mode = to
	ch.ToElement = element
	ch.ToAttribute = attribute
	s.journal.Record("channel_"+to.String(), ch.Name)
	detail := s.refLocked(element, attribute)
	set := s.setOfChannelLocked(id)
	name := ch.Name
	s.mu.Unlock()

	ctxlog.FromContext(ctx).Debug("Channel mode changed.", "channel", name, "from", from.String(), "to", to.String(), "target", detail)
	s.notify(document.Event{Type: document.EventChannelMode, Set: set, Target: id, Name: name, Mode: to, Detail: detail})
	return nil
}

// CreateOperator implements document.Document.
func (s *Store) CreateOperator(ctx context.Context, set ID, spec document.NewOperator) (*document.Operator, error) {
	s.mu.Lock()
	if _, ok := s.sets[set]; !ok {
		s.mu.Unlock()
		return nil, fmt.Errorf("animation set %s: %w", set, document.ErrNotFound)
	}
	op := &document.Operator{
		ID:     elemid.New(),
		Name:   spec.Name,
		Set:    set,
		Expr:   spec.Expr,
		Inputs: cloneValues(spec.Inputs),
	}
	s.operators[op.ID] = op
	s.opOrder = append(s.opOrder, op.ID)
	s.journal.Record("create_operator", spec.Name)
	cp := cloneOperator(op)
	s.mu.Unlock()

	s.notify(document.Event{Type: document.EventOperatorCreated, Set: set, Target: op.ID, Name: op.Name})
	return cp, nil
}

// Operator implements document.Document.
func (s *Store) Operator(ctx context.Context, id ID) (*document.Operator, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	op, ok := s.operators[id]
	if !ok {
		return nil, false
	}
	return cloneOperator(op), true
}

// RemoveOperator implements document.Document.
func (s *Store) RemoveOperator(ctx context.Context, id ID) error {
	s.mu.Lock()
	op, ok := s.operators[id]
	if !ok {
		s.mu.Unlock()
		return fmt.Errorf("operator %s: %w", id, document.ErrNotFound)
	}
	for _, conn := range s.connections {
		if conn.From == id {
			s.mu.Unlock()
			return fmt.Errorf("operator %q is still connected by %q", op.Name, conn.Name)
		}
	}
	for _, ch := range s.channels {
		if ch.ToElement == id {
			s.mu.Unlock()
			return fmt.Errorf("operator %q is still fed by channel %q", op.Name, ch.Name)
		}
	}
	delete(s.operators, id)
	s.opOrder = removeID(s.opOrder, id)
	s.journal.Record("remove_operator", op.Name)
	s.mu.Unlock()

	s.notify(document.Event{Type: document.EventOperatorRemoved, Set: op.Set, Target: id, Name: op.Name})
	return nil
}

// CreateConnection implements document.Document.
func (s *Store) CreateConnection(ctx context.Context, set ID, spec document.NewConnection) (*document.Connection, error) {
	s.mu.Lock()
	if _, ok := s.sets[set]; !ok {
		s.mu.Unlock()
		return nil, fmt.Errorf("animation set %s: %w", set, document.ErrNotFound)
	}
	if _, ok := s.operators[spec.From]; !ok {
		s.mu.Unlock()
		return nil, fmt.Errorf("connection source %s: %w", spec.From, document.ErrNotFound)
	}
	if spec.Output != ResultOutput {
		s.mu.Unlock()
		return nil, fmt.Errorf("operator output %q: %w", spec.Output, document.ErrUnknownAttribute)
	}
	if err := s.checkTargetLocked(spec.To, spec.Attribute); err != nil {
		s.mu.Unlock()
		return nil, err
	}
	conn := &document.Connection{
		ID:        elemid.New(),
		Name:      spec.Name,
		Set:       set,
		From:      spec.From,
		Output:    spec.Output,
		To:        spec.To,
		Attribute: spec.Attribute,
	}
	s.connections[conn.ID] = conn
	s.connOrder = append(s.connOrder, conn.ID)
	s.journal.Record("create_connection", spec.Name)
	cp := *conn
	s.mu.Unlock()

	s.notify(document.Event{Type: document.EventConnectionCreated, Set: set, Target: conn.ID, Name: conn.Name})
	return &cp, nil
}

// RemoveConnection implements document.Document.
func (s *Store) RemoveConnection(ctx context.Context, id ID) error {
	s.mu.Lock()
	conn, ok := s.connections[id]
	if !ok {
		s.mu.Unlock()
		return fmt.Errorf("connection %s: %w", id, document.ErrNotFound)
	}
	delete(s.connections, id)
	s.connOrder = removeID(s.connOrder, id)
	s.journal.Record("remove_connection", conn.Name)
	s.mu.Unlock()

	s.notify(document.Event{Type: document.EventConnectionRemoved, Set: conn.Set, Target: id, Name: conn.Name})
	return nil
}

// Stats implements document.Document.
func (s *Store) Stats(ctx context.Context, set ID) document.Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var st document.Stats
	for _, c := range s.controls {
		if c.Set == set {
			st.Controls++
		}
	}
	for _, op := range s.operators {
		if op.Set == set {
			st.Operators++
		}
	}
	for _, conn := range s.connections {
		if conn.Set == set {
			st.Connections++
		}
	}
	return st
}

// Subscribe implements document.Document.
func (s *Store) Subscribe(o document.Observer) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.observers = append(s.observers, o)
}

// Group looks up a control group by ID.
func (s *Store) Group(id ID) (*document.ControlGroup, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	g, ok := s.groups[id]
	if !ok {
		return nil, false
	}
	return cloneGroup(g), true
}

func (s *Store) notify(ev document.Event) {
	s.mu.RLock()
	observers := s.observers
	s.mu.RUnlock()
	for _, o := range observers {
		o(ev)
	}
}

// attributesOf returns the live attribute map of an owner. Callers must hold the lock.
func (s *Store) attributesOf(owner ID) (map[string]cty.Value, bool) {
	if attrs, ok := s.setAttrs[owner]; ok {
		return attrs, true
	}
	if el, ok := s.elements[owner]; ok {
		if el.Attributes == nil {
			el.Attributes = make(map[string]cty.Value)
		}
		return el.Attributes, true
	}
	if op, ok := s.operators[owner]; ok {
		if op.Inputs == nil {
			op.Inputs = make(map[string]cty.Value)
		}
		return op.Inputs, true
	}
	return nil, false
}

// checkTargetLocked verifies that attribute exists on element.
func (s *Store) checkTargetLocked(element ID, attribute string) error {
	attrs, ok := s.attributesOf(element)
	if !ok {
		return fmt.Errorf("target element %s: %w", element, document.ErrNotFound)
	}
	if _, ok := attrs[attribute]; !ok {
		return fmt.Errorf("attribute %q: %w", attribute, document.ErrUnknownAttribute)
	}
	return nil
}

func (s *Store) findControlLocked(set ID, name string) *document.Control {
	for _, id := range s.ctrlOrder {
		if c := s.controls[id]; c.Set == set && c.Name == name {
			return c
		}
	}
	return nil
}

// setOf returns the animation set an owner belongs to, if it can tell.
func (s *Store) setOf(owner ID) ID {
	if _, ok := s.sets[owner]; ok {
		return owner
	}
	if op, ok := s.operators[owner]; ok {
		return op.Set
	}
	for id, set := range s.sets {
		if set.LightElement == owner {
			return id
		}
	}
	return ""
}

func (s *Store) setOfChannelLocked(channel ID) ID {
	for _, c := range s.controls {
		if c.Channel == channel {
			return c.Set
		}
	}
	return ""
}

// nameOfLocked returns the scene name of an element or operator.
func (s *Store) nameOfLocked(id ID) string {
	if el, ok := s.elements[id]; ok {
		return el.Name
	}
	if op, ok := s.operators[id]; ok {
		return op.Name
	}
	return string(id)
}

// refLocked renders a target as a scene reference, or "" for no target.
func (s *Store) refLocked(element ID, attribute string) string {
	if element.IsZero() {
		return ""
	}
	return elemid.NewRef(s.nameOfLocked(element), attribute).String()
}

func cloneValues(in map[string]cty.Value) map[string]cty.Value {
	out := make(map[string]cty.Value, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

func cloneGroup(g *document.ControlGroup) *document.ControlGroup {
	cp := *g
	cp.Controls = append([]ID(nil), g.Controls...)
	cp.Children = append([]ID(nil), g.Children...)
	return &cp
}

func cloneOperator(op *document.Operator) *document.Operator {
	cp := *op
	cp.Inputs = cloneValues(op.Inputs)
	return &cp
}

func removeID(ids []ID, id ID) []ID {
	out := ids[:0]
	for _, v := range ids {
		if v != id {
			out = append(out, v)
		}
	}
	return out
}
