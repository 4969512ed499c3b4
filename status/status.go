// Package status renders bridge state transitions as LED pulse
// patterns. The device has no display and no log sink in the field;
// the light is the whole user interface.
package status

type Event uint8

const (
	EventInvalid Event = iota
	EventLinkConnecting
	EventLinkUp
	EventSessionUp
	EventSessionDown
	EventFault
)

func (e Event) String() string {
	switch e {
	case EventLinkConnecting:
		return "link-connecting"
	case EventLinkUp:
		return "link-up"
	case EventSessionUp:
		return "session-up"
	case EventSessionDown:
		return "session-down"
	case EventFault:
		return "fault"
	}
	return "invalid"
}

// Indicator consumes events without blocking the caller.
// Purely observational, callers never read anything back.
type Indicator interface {
	Emit(Event)
	Close()
}

type stub struct{}

func (stub) Emit(Event) {}
func (stub) Close()     {}

func NewStub() Indicator { return stub{} }
