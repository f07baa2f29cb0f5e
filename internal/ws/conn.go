package ws

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

var (
	ErrConnClosed    = errors.New("connection closed")
	ErrSendQueueFull = errors.New("send queue full")
)

// closeGracePeriod bounds the write of the final close frame when the
// server shuts a connection down.
const closeGracePeriod = time.Second

// Conn wraps one observer's websocket. The write pump is the sole
// writer of data frames; the read loop watches for the "close" control
// message and for read errors. Termination is idempotent and may be
// initiated by either pump, by the broadcaster on delivery failure, or
// by server stop.
type Conn struct {
	id   string
	ws   *websocket.Conn
	reg  *Registry
	send chan []byte
	quit chan struct{}
	done chan struct{}
	once sync.Once
}

func newConn(wsc *websocket.Conn, reg *Registry, queueSize int) *Conn {
	return &Conn{
		id:   uuid.NewString(),
		ws:   wsc,
		reg:  reg,
		send: make(chan []byte, queueSize),
		quit: make(chan struct{}),
		done: make(chan struct{}),
	}
}

func (c *Conn) ID() string { return c.id }

// Done is closed once both pumps have exited and the socket is closed.
func (c *Conn) Done() <-chan struct{} { return c.done }

// run services the connection until it terminates. It blocks the
// caller, normally the upgrade handler, for the connection's lifetime.
func (c *Conn) run() {
	writeDone := make(chan struct{})
	go func() {
		c.writePump()
		close(writeDone)
	}()

	c.readLoop()
	c.terminate()
	<-writeDone
	close(c.done)
}

// readLoop consumes inbound frames until the socket fails or the client
// asks to disconnect. Unrecognized input is ignored.
func (c *Conn) readLoop() {
	for {
		_, data, err := c.ws.ReadMessage()
		if err != nil {
			return
		}
		if DecodeControl(data) == ControlClose {
			deadline := time.Now().Add(closeGracePeriod)
			c.ws.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), deadline)
			return
		}
	}
}

func (c *Conn) writePump() {
	for {
		select {
		case <-c.quit:
			return
		case msg := <-c.send:
			if err := c.ws.WriteMessage(websocket.TextMessage, msg); err != nil {
				c.terminate()
				return
			}
		}
	}
}

// trySend queues one frame without blocking. A failure is the caller's
// signal to terminate the connection.
func (c *Conn) trySend(msg []byte) error {
	select {
	case <-c.quit:
		return ErrConnClosed
	default:
	}
	select {
	case c.send <- msg:
		return nil
	case <-c.quit:
		return ErrConnClosed
	default:
		return ErrSendQueueFull
	}
}

// terminate deregisters the connection, stops the write pump, and
// closes the socket. Safe from any goroutine, any number of times.
func (c *Conn) terminate() {
	c.once.Do(func() {
		c.reg.Remove(c.id)
		close(c.quit)
		c.ws.Close()
	})
}

// shutdown announces a going-away close before terminating, used when
// the server stops rather than when the client disconnects.
func (c *Conn) shutdown() {
	deadline := time.Now().Add(closeGracePeriod)
	c.ws.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseGoingAway, "server stopping"), deadline)
	c.terminate()
}
