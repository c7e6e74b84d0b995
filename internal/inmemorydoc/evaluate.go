package inmemorydoc

import (
	"context"
	"fmt"

	"github.com/vk/morelight/internal/document"
)

// Evaluate computes the value every control of the set delivers to the
// set's light element, keyed by attribute name. Direct channels deliver the
// control value as-is; channels routed through an operator deliver the
// operator result on each attribute the operator is connected to.
// Detached channels deliver nothing.
func (s *Store) Evaluate(ctx context.Context, set ID) (map[string]float64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	as, ok := s.sets[set]
	if !ok {
		return nil, fmt.Errorf("animation set %s: %w", set, document.ErrNotFound)
	}

	out := make(map[string]float64)
	for _, id := range s.ctrlOrder {
		c := s.controls[id]
		if c.Set != set {
			continue
		}
		ch := s.channels[c.Channel]
		switch ch.Mode {
		case document.ModeDirect:
			if ch.ToElement == as.LightElement {
				out[ch.ToAttribute] = c.Value
			}
		case document.ModeViaElement:
			op, ok := s.operators[ch.ToElement]
			if !ok {
				continue
			}
			result, err := op.Evaluate(c.Value)
			if err != nil {
				return nil, err
			}
			for _, connID := range s.connOrder {
				conn := s.connections[connID]
				if conn.From == op.ID && conn.To == as.LightElement {
					out[conn.Attribute] = result
				}
			}
		}
	}
	return out, nil
}
