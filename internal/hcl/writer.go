package hcl

import (
	"context"
	"fmt"
	"io"

	"github.com/hashicorp/hcl/v2/hclwrite"
	"github.com/vk/morelight/internal/config"
	"github.com/vk/morelight/internal/ctxlog"
	"github.com/zclconf/go-cty/cty"
)

// Writer is the HCL-specific implementation of the config.Writer interface.
type Writer struct{}

var _ config.Writer = (*Writer)(nil)

// NewWriter creates a new HCL scene writer.
func NewWriter() *Writer {
	return &Writer{}
}

// WriteScene writes scene in the format LoadScene reads.
func (wr *Writer) WriteScene(ctx context.Context, w io.Writer, scene *config.Scene) error {
	if scene == nil {
		return fmt.Errorf("nil scene")
	}
	f := hclwrite.NewEmptyFile()
	root := f.Body()
	if scene.Current != "" {
		root.SetAttributeValue("current", cty.StringVal(scene.Current))
	}

	for _, set := range scene.Sets {
		root.AppendNewline()
		sb := root.AppendNewBlock("animation_set", []string{set.Name}).Body()
		sb.SetAttributeValue("kind", cty.StringVal(set.Kind))
		if len(set.Attributes) > 0 {
			sb.SetAttributeValue("attributes", objectOrEmpty(set.Attributes))
		}
		if set.Light != nil {
			lb := sb.AppendNewBlock("light", nil).Body()
			lb.SetAttributeValue("attributes", objectOrEmpty(set.Light.Attributes))
		}
		for _, op := range set.Operators {
			ob := sb.AppendNewBlock("operator", []string{op.Name}).Body()
			ob.SetAttributeValue("expr", cty.StringVal(op.Expr))
			ob.SetAttributeValue("inputs", objectOrEmpty(op.Inputs))
		}
		for _, c := range set.Controls {
			cb := sb.AppendNewBlock("control", []string{c.Name}).Body()
			if c.Group != "" {
				cb.SetAttributeValue("group", cty.StringVal(c.Group))
			}
			cb.SetAttributeValue("value", cty.NumberFloatVal(c.Value))
			cb.SetAttributeValue("default", cty.NumberFloatVal(c.Default))
			cb.SetAttributeValue("mode", cty.StringVal(c.Mode))
			if c.Channel != "" {
				cb.SetAttributeValue("channel", cty.StringVal(c.Channel))
			}
		}
		for _, conn := range set.Connections {
			nb := sb.AppendNewBlock("connection", []string{conn.Name}).Body()
			nb.SetAttributeValue("from", cty.StringVal(conn.From))
			nb.SetAttributeValue("to", cty.StringVal(conn.To))
		}
	}

	n, err := f.WriteTo(w)
	if err != nil {
		return fmt.Errorf("failed to write scene: %w", err)
	}
	ctxlog.FromContext(ctx).Debug("Scene written.", "sets", len(scene.Sets), "bytes", n)
	return nil
}

// objectOrEmpty returns attrs as an object value. hclwrite emits object
// attributes in key order, so the output is stable.
func objectOrEmpty(attrs map[string]cty.Value) cty.Value {
	if len(attrs) == 0 {
		return cty.EmptyObjectVal
	}
	return cty.ObjectVal(attrs)
}
