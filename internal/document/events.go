package document

// EventType names a document mutation.
type EventType string

const (
	EventControlCreated    EventType = "control_created"
	EventControlGrouped    EventType = "control_grouped"
	EventGroupCreated      EventType = "group_created"
	EventOperatorCreated   EventType = "operator_created"
	EventOperatorRemoved   EventType = "operator_removed"
	EventConnectionCreated EventType = "connection_created"
	EventConnectionRemoved EventType = "connection_removed"
	EventAttributeSet      EventType = "attribute_set"
	EventChannelMode       EventType = "channel_mode"
)

// Event describes one applied mutation. For EventChannelMode, Mode carries
// the channel's new mode and Detail its destination, if any.
type Event struct {
	Type   EventType
	Set    ID
	Target ID
	Name   string
	Mode   ChannelMode
	Detail string
}

// Observer receives events after the mutation is visible to readers.
type Observer func(Event)
