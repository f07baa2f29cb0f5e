package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/nsmarkop/plover-websocket-server/internal/config"
	"github.com/nsmarkop/plover-websocket-server/internal/demo"
	"github.com/nsmarkop/plover-websocket-server/internal/engine"
	"github.com/nsmarkop/plover-websocket-server/internal/feed"
	"github.com/nsmarkop/plover-websocket-server/internal/ws"
)

func main() {
	configPath := flag.String("config", "config.yaml", "Path to config file")
	host := flag.String("host", "", "Override bind host")
	port := flag.Int("port", 0, "Override bind port")
	feedPath := flag.String("feed", "", "Tail a JSONL event file instead of running the demo engine")
	demoInterval := flag.Duration("demo-interval", 250*time.Millisecond, "Stroke interval for the demo engine")
	flag.Parse()

	cfg, err := config.LoadOrDefault(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if *host != "" {
		cfg.Server.Host = *host
	}
	if *port > 0 {
		cfg.Server.Port = *port
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var source engine.Source
	if *feedPath != "" {
		log.Printf("Event source: feed %s", *feedPath)
		fd := feed.New(*feedPath)
		if err := fd.Start(ctx); err != nil {
			log.Fatalf("Failed to start feed: %v", err)
		}
		source = fd
	} else {
		log.Println("Event source: demo engine")
		gen := demo.NewGenerator(*demoInterval)
		gen.Start(ctx)
		source = gen
	}

	server := ws.NewServer(cfg, source)
	if err := server.Start(); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	log.Println("Shutting down...")
	cancel()
	if err := server.Stop(); err != nil {
		log.Fatalf("Shutdown error: %v", err)
	}
}
