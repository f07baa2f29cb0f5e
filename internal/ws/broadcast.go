package ws

import (
	"log"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"

	"github.com/nsmarkop/plover-websocket-server/internal/engine"
)

// Broadcaster fans engine events out to every registered connection.
// Notify is the sink handed to the engine and runs on the engine's own
// thread, so it never blocks: a saturated intake drops the event and
// counts the drop instead of making the engine wait.
type Broadcaster struct {
	reg    *Registry
	intake chan engine.Event
	quit   chan struct{}
	done   chan struct{}

	stopped    atomic.Bool
	stopOnce   sync.Once
	dropped    atomic.Uint64
	broadcasts atomic.Uint64

	// dropLog keeps saturation logging to one line per interval so a
	// sustained burst cannot flood the log from the engine thread.
	dropLog *rate.Limiter
}

func NewBroadcaster(reg *Registry, intakeSize int) *Broadcaster {
	return &Broadcaster{
		reg:     reg,
		intake:  make(chan engine.Event, intakeSize),
		quit:    make(chan struct{}),
		done:    make(chan struct{}),
		dropLog: rate.NewLimiter(rate.Every(10*time.Second), 1),
	}
}

// Run consumes the intake until Stop. It is the sole consumer, which is
// what preserves per-observer event order.
func (b *Broadcaster) Run() {
	defer close(b.done)
	for {
		select {
		case <-b.quit:
			return
		default:
		}
		select {
		case <-b.quit:
			return
		case ev := <-b.intake:
			b.broadcast(ev)
		}
	}
}

// Notify hands one event to the broadcast loop without blocking.
func (b *Broadcaster) Notify(ev engine.Event) {
	if b.stopped.Load() {
		return
	}
	select {
	case b.intake <- ev:
	default:
		n := b.dropped.Add(1)
		if b.dropLog.Allow() {
			log.Printf("event intake saturated, dropped %q (total dropped: %d)", ev.Kind, n)
		}
	}
}

func (b *Broadcaster) broadcast(ev engine.Event) {
	frame, err := Encode(ev)
	if err != nil {
		log.Printf("broadcast encode error: %v", err)
		return
	}

	for _, c := range b.reg.Snapshot() {
		if err := c.trySend(frame); err != nil {
			log.Printf("observer %s unreachable (%v), disconnecting", c.id, err)
			c.terminate()
		}
	}
	b.broadcasts.Add(1)
}

// Stop ends the loop and waits for it to finish, discarding events
// still queued. Returns false if the loop did not exit within timeout.
func (b *Broadcaster) Stop(timeout time.Duration) bool {
	b.stopped.Store(true)
	b.stopOnce.Do(func() { close(b.quit) })
	select {
	case <-b.done:
		return true
	case <-time.After(timeout):
		return false
	}
}

// Dropped reports events discarded at the intake since construction.
func (b *Broadcaster) Dropped() uint64 { return b.dropped.Load() }

// Broadcasts reports events the loop has encoded and fanned out.
func (b *Broadcaster) Broadcasts() uint64 { return b.broadcasts.Load() }
