// This file translates the HCL schema structs into the format-agnostic
// config model.

package hcl

import (
	"fmt"

	"github.com/hashicorp/hcl/v2"
	"github.com/vk/morelight/internal/config"
	"github.com/vk/morelight/internal/document"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/convert"
	"github.com/zclconf/go-cty/cty/gocty"
)

// DefaultControlValue is used for a control's initial and default value when
// the battery leaves them out.
const DefaultControlValue = 0.5

func translateControl(b *controlBlock) (*config.Control, error) {
	initial, err := numberOr(b.Initial, DefaultControlValue)
	if err != nil {
		return nil, fmt.Errorf("control %q: initial: %w", b.Label, err)
	}
	def, err := numberOr(b.Default, DefaultControlValue)
	if err != nil {
		return nil, fmt.Errorf("control %q: default: %w", b.Label, err)
	}
	c := &config.Control{Label: b.Label, Attribute: b.Attribute, Initial: initial, Default: def}
	if b.Remap != nil {
		c.Remap = *b.Remap
	}
	return c, nil
}

func translateRemap(b *remapBlock) (*config.Remap, error) {
	lo, err := numberOr(b.Lo, 0)
	if err != nil {
		return nil, fmt.Errorf("remap %q: lo: %w", b.Control, err)
	}
	hi, err := numberOr(b.Hi, 1)
	if err != nil {
		return nil, fmt.Errorf("remap %q: hi: %w", b.Control, err)
	}
	r := &config.Remap{Control: b.Control, Attribute: b.Control, Lo: lo, Hi: hi}
	if b.Attribute != nil && *b.Attribute != "" {
		r.Attribute = *b.Attribute
	}
	return r, nil
}

func translateSet(b *setBlock) (*config.SceneSet, error) {
	set := &config.SceneSet{Name: b.Name, Kind: stringOr(b.Kind, document.KindOther.String())}
	attrs, err := valueMap(b.Attributes)
	if err != nil {
		return nil, fmt.Errorf("animation set %q: attributes: %w", b.Name, err)
	}
	set.Attributes = attrs

	if b.Light != nil {
		lightAttrs, err := valueMap(b.Light.Attributes)
		if err != nil {
			return nil, fmt.Errorf("animation set %q: light attributes: %w", b.Name, err)
		}
		set.Light = &config.SceneElement{Name: "light", Attributes: lightAttrs}
	}

	for _, c := range b.Controls {
		value, err := numberOr(c.Value, 0)
		if err != nil {
			return nil, fmt.Errorf("animation set %q: control %q: value: %w", b.Name, c.Name, err)
		}
		def, err := numberOr(c.Default, value)
		if err != nil {
			return nil, fmt.Errorf("animation set %q: control %q: default: %w", b.Name, c.Name, err)
		}
		set.Controls = append(set.Controls, &config.SceneControl{
			Name:    c.Name,
			Group:   stringOr(c.Group, ""),
			Value:   value,
			Default: def,
			Mode:    stringOr(c.Mode, document.ModeDirect.String()),
			Channel: stringOr(c.Channel, ""),
		})
	}

	for _, op := range b.Operators {
		inputs, err := valueMap(op.Inputs)
		if err != nil {
			return nil, fmt.Errorf("animation set %q: operator %q: inputs: %w", b.Name, op.Name, err)
		}
		set.Operators = append(set.Operators, &config.SceneOperator{
			Name:   op.Name,
			Expr:   stringOr(op.Expr, document.LerpExpr),
			Inputs: inputs,
		})
	}

	for _, conn := range b.Connections {
		set.Connections = append(set.Connections, &config.SceneConnection{Name: conn.Name, From: conn.From, To: conn.To})
	}
	return set, nil
}

// numberOr evaluates expr as a number, returning def when it is absent.
func numberOr(expr hcl.Expression, def float64) (float64, error) {
	v, err := evaluate(expr)
	if err != nil {
		return 0, err
	}
	if v.IsNull() {
		return def, nil
	}
	n, err := convert.Convert(v, cty.Number)
	if err != nil {
		return 0, err
	}
	var f float64
	if err := gocty.FromCtyValue(n, &f); err != nil {
		return 0, err
	}
	return f, nil
}

// valueMap evaluates expr as an object or map and returns its elements.
func valueMap(expr hcl.Expression) (map[string]cty.Value, error) {
	v, err := evaluate(expr)
	if err != nil {
		return nil, err
	}
	if v.IsNull() {
		return map[string]cty.Value{}, nil
	}
	t := v.Type()
	if !t.IsObjectType() && !t.IsMapType() {
		return nil, fmt.Errorf("expected an object, got %s", t.FriendlyName())
	}
	out := v.AsValueMap()
	if out == nil {
		out = map[string]cty.Value{}
	}
	return out, nil
}

func evaluate(expr hcl.Expression) (cty.Value, error) {
	if expr == nil {
		return cty.NullVal(cty.DynamicPseudoType), nil
	}
	v, diags := expr.Value(nil)
	if diags.HasErrors() {
		return cty.NilVal, diags
	}
	if !v.IsWhollyKnown() {
		return cty.NilVal, fmt.Errorf("value must be known")
	}
	return v, nil
}

func stringOr(s *string, def string) string {
	if s == nil || *s == "" {
		return def
	}
	return *s
}
