package localsession

import (
	"github.com/vk/morelight/internal/document"
	"github.com/vk/morelight/internal/scheduler"
)

func schedulerRequest(c *document.Control, op *document.Operator, set *document.AnimationSet) scheduler.Request {
	return scheduler.Request{
		Control:   c.Name,
		Channel:   c.Channel,
		Operator:  op.ID,
		Element:   set.LightElement,
		Attribute: c.Name,
	}
}
