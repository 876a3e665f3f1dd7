package events

// Event type constants for kelindar/event.
const (
	TypeColorRendered uint32 = iota + 1
	TypeRenderFailed
	TypeCommandReceived
	TypeSequenceUpdated
	TypePublishFailed
)

// Event interface required by kelindar/event.
type Event interface {
	Type() uint32
}

// Render sources.
const (
	SourcePlayback = "playback"
	SourceSet      = "set"
	SourceSelfTest = "self_test"
)

// ColorRenderedEvent is published after a color reached the pixel device.
type ColorRenderedEvent struct {
	Color  string `json:"color" example:"#FF0000" doc:"Rendered color as #RRGGBB"`
	R      uint8  `json:"r"`
	G      uint8  `json:"g"`
	B      uint8  `json:"b"`
	Slot   int    `json:"slot" example:"0" doc:"Sequence slot, -1 when not from the sequence"`
	Source string `json:"source" example:"playback" doc:"What triggered the render"`
}

// Type returns the event type identifier for ColorRenderedEvent.
func (e ColorRenderedEvent) Type() uint32 { return TypeColorRendered }

// RenderFailedEvent is published when the pixel device rejects a frame.
type RenderFailedEvent struct {
	Source string `json:"source"`
	Error  string `json:"error"`
}

// Type returns the event type identifier for RenderFailedEvent.
func (e RenderFailedEvent) Type() uint32 { return TypeRenderFailed }

// CommandReceivedEvent is published for every set or sequence command.
type CommandReceivedEvent struct {
	Kind    string `json:"kind" example:"sequence" doc:"Command kind: set or sequence"`
	Origin  string `json:"origin" example:"bus" doc:"bus or api"`
	Payload string `json:"payload" doc:"Truncated command payload"`
}

// Type returns the event type identifier for CommandReceivedEvent.
func (e CommandReceivedEvent) Type() uint32 { return TypeCommandReceived }

// SequenceUpdatedEvent is published after a sequence command wrote the store.
type SequenceUpdatedEvent struct {
	Slots   []string `json:"slots" doc:"Sequence after the update as #RRGGBB"`
	Updated int      `json:"updated" doc:"Number of slots written"`
}

// Type returns the event type identifier for SequenceUpdatedEvent.
func (e SequenceUpdatedEvent) Type() uint32 { return TypeSequenceUpdated }

// PublishFailedEvent is published when an outbound bus message is dropped.
type PublishFailedEvent struct {
	Topic string `json:"topic"`
	Error string `json:"error"`
}

// Type returns the event type identifier for PublishFailedEvent.
func (e PublishFailedEvent) Type() uint32 { return TypePublishFailed }
