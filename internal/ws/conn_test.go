package ws

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

// dialTestWS starts a test HTTP server that upgrades the first request
// and returns both ends of the socket. The caller closes the server and
// the client side; the server side is closed by whatever terminates the
// connection under test.
func dialTestWS(t *testing.T) (*httptest.Server, *websocket.Conn, *websocket.Conn) {
	t.Helper()

	connCh := make(chan *websocket.Conn, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		upgrader := websocket.Upgrader{CheckOrigin: func(*http.Request) bool { return true }}
		c, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("upgrade: %v", err)
			return
		}
		connCh <- c
	}))

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http")
	clientConn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		srv.Close()
		t.Fatalf("dial: %v", err)
	}

	select {
	case serverConn := <-connCh:
		return srv, serverConn, clientConn
	case <-time.After(2 * time.Second):
		srv.Close()
		t.Fatal("timed out waiting for server-side WebSocket connection")
		return nil, nil, nil
	}
}

func TestTrySendQueueFull(t *testing.T) {
	reg := NewRegistry()
	c := newConn(nil, reg, 1)

	if err := c.trySend([]byte("first")); err != nil {
		t.Fatalf("first trySend: %v", err)
	}
	if err := c.trySend([]byte("second")); !errors.Is(err, ErrSendQueueFull) {
		t.Fatalf("second trySend = %v, want ErrSendQueueFull", err)
	}
}

func TestTrySendAfterTerminate(t *testing.T) {
	srv, serverConn, clientConn := dialTestWS(t)
	defer srv.Close()
	defer clientConn.Close()

	reg := NewRegistry()
	c := newConn(serverConn, reg, 4)
	if err := reg.Add(c); err != nil {
		t.Fatal(err)
	}

	c.terminate()

	if err := c.trySend([]byte("late")); !errors.Is(err, ErrConnClosed) {
		t.Fatalf("trySend after terminate = %v, want ErrConnClosed", err)
	}
	if reg.Len() != 0 {
		t.Errorf("registry still holds %d connections after terminate", reg.Len())
	}
}

func TestTerminateIdempotent(t *testing.T) {
	srv, serverConn, clientConn := dialTestWS(t)
	defer srv.Close()
	defer clientConn.Close()

	reg := NewRegistry()
	c := newConn(serverConn, reg, 4)
	if err := reg.Add(c); err != nil {
		t.Fatal(err)
	}

	c.terminate()
	c.terminate()

	if reg.Len() != 0 {
		t.Errorf("registry still holds %d connections", reg.Len())
	}
}

func TestRunDeliversFramesInOrder(t *testing.T) {
	srv, serverConn, clientConn := dialTestWS(t)
	defer srv.Close()
	defer clientConn.Close()

	reg := NewRegistry()
	c := newConn(serverConn, reg, 8)
	if err := reg.Add(c); err != nil {
		t.Fatal(err)
	}
	go c.run()

	frames := []string{"one", "two", "three"}
	for _, f := range frames {
		if err := c.trySend([]byte(f)); err != nil {
			t.Fatalf("trySend(%q): %v", f, err)
		}
	}

	for _, want := range frames {
		clientConn.SetReadDeadline(time.Now().Add(2 * time.Second))
		_, data, err := clientConn.ReadMessage()
		if err != nil {
			t.Fatalf("read: %v", err)
		}
		if string(data) != want {
			t.Errorf("read %q, want %q", data, want)
		}
	}

	c.terminate()
	select {
	case <-c.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("connection did not finish closing")
	}
}

func TestCloseControlEndsConnection(t *testing.T) {
	srv, serverConn, clientConn := dialTestWS(t)
	defer srv.Close()
	defer clientConn.Close()

	reg := NewRegistry()
	c := newConn(serverConn, reg, 4)
	if err := reg.Add(c); err != nil {
		t.Fatal(err)
	}
	go c.run()

	if err := clientConn.WriteMessage(websocket.TextMessage, []byte("close")); err != nil {
		t.Fatalf("write close: %v", err)
	}

	select {
	case <-c.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("close control did not end the connection")
	}
	if reg.Len() != 0 {
		t.Errorf("registry still holds %d connections", reg.Len())
	}

	// The server completes the handshake with a normal closure.
	clientConn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, _, err := clientConn.ReadMessage()
	var closeErr *websocket.CloseError
	if !errors.As(err, &closeErr) || closeErr.Code != websocket.CloseNormalClosure {
		t.Errorf("client read = %v, want normal closure", err)
	}
}

func TestUnrecognizedInboundIgnored(t *testing.T) {
	srv, serverConn, clientConn := dialTestWS(t)
	defer srv.Close()
	defer clientConn.Close()

	reg := NewRegistry()
	c := newConn(serverConn, reg, 4)
	if err := reg.Add(c); err != nil {
		t.Fatal(err)
	}
	go c.run()

	for _, junk := range []string{"ping", `{"action":"close"}`, ""} {
		if err := clientConn.WriteMessage(websocket.TextMessage, []byte(junk)); err != nil {
			t.Fatalf("write %q: %v", junk, err)
		}
	}

	// The connection survives and still delivers.
	if err := c.trySend([]byte("still here")); err != nil {
		t.Fatalf("trySend: %v", err)
	}
	clientConn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := clientConn.ReadMessage()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if string(data) != "still here" {
		t.Errorf("read %q, want %q", data, "still here")
	}
	if reg.Len() != 1 {
		t.Errorf("registry holds %d connections, want 1", reg.Len())
	}
}

// TestWritePumpTerminatesOnWriteError verifies that a failed write tears
// the connection down and deregisters it.
func TestWritePumpTerminatesOnWriteError(t *testing.T) {
	srv, serverConn, clientConn := dialTestWS(t)
	defer srv.Close()
	defer clientConn.Close()

	reg := NewRegistry()
	c := newConn(serverConn, reg, 4)
	if err := reg.Add(c); err != nil {
		t.Fatal(err)
	}

	// Close the socket first so the write attempt fails immediately.
	serverConn.Close()
	if err := c.trySend([]byte("doomed")); err != nil {
		t.Fatalf("trySend: %v", err)
	}

	go c.writePump()

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if reg.Len() == 0 {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("connection not removed after write error; Len = %d", reg.Len())
}
