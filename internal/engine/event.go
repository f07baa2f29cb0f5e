// Package engine defines the boundary between a steno engine host and the
// broadcast bridge: the event record the engine produces and the
// subscription surface the bridge attaches to.
package engine

// Kind identifies the semantic type of an engine event. The values match
// the engine's hook names and appear verbatim on the wire.
type Kind string

const (
	KindStroked             Kind = "stroked"
	KindTranslated          Kind = "translated"
	KindMachineStateChanged Kind = "machine_state_changed"
	KindOutputChanged       Kind = "output_changed"
	KindConfigChanged       Kind = "config_changed"
	KindDictionariesLoaded  Kind = "dictionaries_loaded"
	KindSendString          Kind = "send_string"
	KindSendBackspaces      Kind = "send_backspaces"
	KindSendKeyCombination  Kind = "send_key_combination"
	KindAddTranslation      Kind = "add_translation"
	KindFocus               Kind = "focus"
	KindConfigure           Kind = "configure"
	KindLookup              Kind = "lookup"
	KindQuit                Kind = "quit"
)

// Event is one notification produced by the engine describing a unit of
// engine-side activity. The payload is an opaque JSON-serializable value
// owned by the producer; an Event is immutable once constructed.
type Event struct {
	Kind    Kind
	Payload any
}

// NotifyFunc receives one engine event. The engine invokes it synchronously
// on its own processing thread, once per event; implementations must return
// quickly and must never block or panic back into the engine.
type NotifyFunc func(Event)

// Source is the registration surface an engine exposes to event consumers.
//
// Subscribe registers fn to receive every subsequent event and returns a
// cancel function that stops delivery. Both Subscribe and the returned
// cancel must be safe to call while the engine is emitting; cancel must be
// idempotent. There is no replay: a subscriber sees only events emitted
// after Subscribe returns.
type Source interface {
	Subscribe(fn NotifyFunc) (cancel func())
}
