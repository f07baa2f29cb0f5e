package engine

// Payload shapes for the event kinds this repository's own sources emit.
// Remote observers should treat every payload as schemaless JSON; these
// types exist so in-process producers agree on field names.

// StrokePayload describes one completed steno stroke.
type StrokePayload struct {
	Stroke string   `json:"stroke"`
	Keys   []string `json:"keys"`
}

// Action is a single formatting action within a translation.
type Action struct {
	Text string `json:"text,omitempty"`
}

// TranslationPayload carries the actions undone and produced by a
// translation.
type TranslationPayload struct {
	Old []Action `json:"old"`
	New []Action `json:"new"`
}

// MachineStatePayload reports a machine connection state transition.
type MachineStatePayload struct {
	MachineType  string `json:"machine_type"`
	MachineState string `json:"machine_state"`
}
