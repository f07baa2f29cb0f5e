package ws

import (
	"encoding/json"
	"fmt"

	"github.com/nsmarkop/plover-websocket-server/internal/engine"
)

// Control classifies one inbound text frame from a client. Clients may
// send anything; only the exact message "close" carries meaning.
type Control int

const (
	ControlUnrecognized Control = iota
	ControlClose
)

const closeMessage = "close"

// EncodeError reports a payload that could not be serialized for the
// wire. The event carrying it is dropped; other events are unaffected.
type EncodeError struct {
	Kind engine.Kind
	Err  error
}

func (e *EncodeError) Error() string {
	return fmt.Sprintf("encode %q event: %v", e.Kind, e.Err)
}

func (e *EncodeError) Unwrap() error { return e.Err }

// Encode renders an event as a text frame: an "event:" line naming the
// kind, then a "data:" line carrying the JSON payload.
func Encode(ev engine.Event) ([]byte, error) {
	data, err := json.Marshal(ev.Payload)
	if err != nil {
		return nil, &EncodeError{Kind: ev.Kind, Err: err}
	}
	return fmt.Appendf(nil, "event: %s\ndata: %s", ev.Kind, data), nil
}

// DecodeControl classifies an inbound frame. Anything other than the
// "close" message is unrecognized and ignored by the read loop, since
// unexpected client input must not terminate the connection.
func DecodeControl(data []byte) Control {
	if string(data) == closeMessage {
		return ControlClose
	}
	return ControlUnrecognized
}
