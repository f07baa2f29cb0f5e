package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/websocket"
)

// A small observer for eyeballing the event stream: connects, prints
// every frame, and asks the server to drop it on interrupt.
func main() {
	addr := flag.String("addr", "localhost:8086", "Server address")
	flag.Parse()

	url := fmt.Sprintf("ws://%s/websocket", *addr)
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		log.Fatalf("Failed to connect to %s: %v", url, err)
	}
	defer conn.Close()
	log.Printf("Connected to %s", url)

	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			_, data, err := conn.ReadMessage()
			if err != nil {
				log.Printf("Connection closed: %v", err)
				return
			}
			fmt.Println(string(data))
			fmt.Println()
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-done:
	case <-sigCh:
		if err := conn.WriteMessage(websocket.TextMessage, []byte("close")); err != nil {
			return
		}
		select {
		case <-done:
		case <-time.After(2 * time.Second):
		}
	}
}
