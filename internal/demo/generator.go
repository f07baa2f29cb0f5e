package demo

import (
	"context"
	"log"
	"time"

	"github.com/nsmarkop/plover-websocket-server/internal/engine"
)

// step is one scripted stroke with its translation.
type step struct {
	stroke string
	keys   []string
	text   string
}

// script is the stroke sequence the generator replays, the classic
// pangram in standard steno theory outlines.
var script = []step{
	{"THE", []string{"T-", "H-", "-E"}, "the"},
	{"KWEUBG", []string{"K-", "W-", "-E", "-U", "-B", "-G"}, "quick"},
	{"PWROUPB", []string{"P-", "W-", "R-", "O-", "-U", "-P", "-B"}, "brown"},
	{"TPOBGS", []string{"T-", "P-", "O-", "-B", "-G", "-S"}, "fox"},
	{"SKWRUFRPS", []string{"S-", "K-", "W-", "R-", "-U", "-F", "-R", "-P", "-S"}, "jumps"},
	{"OEFR", []string{"O-", "-E", "-F", "-R"}, "over"},
	{"THE", []string{"T-", "H-", "-E"}, "the"},
	{"HRAEUZ", []string{"H-", "R-", "A-", "-E", "-U", "-Z"}, "lazy"},
	{"TKOG", []string{"T-", "K-", "O-", "-G"}, "dog"},
}

const machineType = "Keyboard"

// Generator replays a scripted steno session so observers can be tried
// out without a live engine. It emits what a real session would: machine
// state and dictionaries on startup, then stroked, translated, and
// send_string per stroke, with an asterisk undo closing each pass.
type Generator struct {
	engine.Subscribers

	interval time.Duration
}

func NewGenerator(interval time.Duration) *Generator {
	return &Generator{interval: interval}
}

func (g *Generator) Start(ctx context.Context) {
	go g.run(ctx)
}

func (g *Generator) run(ctx context.Context) {
	log.Printf("demo engine: replaying %d strokes every %v", len(script), g.interval)

	g.Emit(engine.Event{
		Kind:    engine.KindMachineStateChanged,
		Payload: engine.MachineStatePayload{MachineType: machineType, MachineState: "initializing"},
	})
	g.Emit(engine.Event{
		Kind:    engine.KindMachineStateChanged,
		Payload: engine.MachineStatePayload{MachineType: machineType, MachineState: "connected"},
	})
	g.Emit(engine.Event{Kind: engine.KindOutputChanged, Payload: true})
	g.Emit(engine.Event{
		Kind:    engine.KindDictionariesLoaded,
		Payload: []string{"main.json", "commands.json", "user.json"},
	})

	ticker := time.NewTicker(g.interval)
	defer ticker.Stop()

	tick := 0
	for {
		select {
		case <-ctx.Done():
			g.Emit(engine.Event{
				Kind:    engine.KindMachineStateChanged,
				Payload: engine.MachineStatePayload{MachineType: machineType, MachineState: "disconnected"},
			})
			return
		case <-ticker.C:
			g.step(tick)
			tick++
		}
	}
}

// step emits the events for one tick. Each pass through the script ends
// with an asterisk stroke undoing the last word.
func (g *Generator) step(tick int) {
	i := tick % (len(script) + 1)
	if i == len(script) {
		last := script[len(script)-1]
		g.Emit(engine.Event{
			Kind:    engine.KindStroked,
			Payload: engine.StrokePayload{Stroke: "*", Keys: []string{"*"}},
		})
		g.Emit(engine.Event{
			Kind: engine.KindTranslated,
			Payload: engine.TranslationPayload{
				Old: []engine.Action{{Text: " " + last.text}},
				New: []engine.Action{},
			},
		})
		g.Emit(engine.Event{Kind: engine.KindSendBackspaces, Payload: len(last.text) + 1})
		return
	}

	st := script[i]
	text := " " + st.text

	g.Emit(engine.Event{
		Kind:    engine.KindStroked,
		Payload: engine.StrokePayload{Stroke: st.stroke, Keys: st.keys},
	})
	g.Emit(engine.Event{
		Kind: engine.KindTranslated,
		Payload: engine.TranslationPayload{
			Old: []engine.Action{},
			New: []engine.Action{{Text: text}},
		},
	})
	g.Emit(engine.Event{Kind: engine.KindSendString, Payload: text})
}
