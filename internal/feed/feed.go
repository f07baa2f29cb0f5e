package feed

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"

	"github.com/fsnotify/fsnotify"

	"github.com/nsmarkop/plover-websocket-server/internal/engine"
)

// record is one feed line: {"event": "stroked", "data": {...}}.
type record struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

// Feed tails a JSONL file and republishes each appended record as an
// engine event, so an external process can drive the broadcast by
// appending lines. Content already in the file when the feed starts is
// history and is skipped; truncating the file rewinds the tail.
type Feed struct {
	engine.Subscribers

	path   string
	offset int64 // owned by the watch goroutine after Start
}

func New(path string) *Feed {
	return &Feed{path: filepath.Clean(path)}
}

// Start begins tailing from the file's current end. The directory is
// watched rather than the file so recreation after deletion keeps the
// tail alive.
func (f *Feed) Start(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}

	if info, err := os.Stat(f.path); err == nil {
		f.offset = info.Size()
	}

	if err := watcher.Add(filepath.Dir(f.path)); err != nil {
		watcher.Close()
		return fmt.Errorf("watching %s: %w", filepath.Dir(f.path), err)
	}

	log.Printf("feed: tailing %s from offset %d", f.path, f.offset)

	go func() {
		defer watcher.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case evt := <-watcher.Events:
				if filepath.Clean(evt.Name) != f.path {
					continue
				}
				if evt.Op&(fsnotify.Write|fsnotify.Create) != 0 {
					f.consume()
				}
			case err := <-watcher.Errors:
				log.Printf("feed watcher error: %v", err)
			}
		}
	}()
	return nil
}

// consume reads complete lines appended since the last call. A line
// without a trailing newline is left for the next write event.
func (f *Feed) consume() {
	file, err := os.Open(f.path)
	if err != nil {
		log.Printf("feed open: %v", err)
		return
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		log.Printf("feed stat: %v", err)
		return
	}
	if info.Size() < f.offset {
		f.offset = 0
	}

	if _, err := file.Seek(f.offset, io.SeekStart); err != nil {
		log.Printf("feed seek: %v", err)
		return
	}

	reader := bufio.NewReader(file)
	for {
		data, err := reader.ReadBytes('\n')
		if err != nil && err != io.EOF {
			log.Printf("feed read: %v", err)
			return
		}
		if len(data) == 0 {
			return
		}
		if data[len(data)-1] != '\n' {
			return
		}

		f.offset += int64(len(data))
		f.emitLine(bytes.TrimSpace(data))

		if err == io.EOF {
			return
		}
	}
}

func (f *Feed) emitLine(data []byte) {
	if len(data) == 0 {
		return
	}

	var rec record
	if err := json.Unmarshal(data, &rec); err != nil {
		log.Printf("feed: skipping malformed line: %v", err)
		return
	}
	if rec.Event == "" {
		log.Printf("feed: skipping record with no event name")
		return
	}

	var payload any
	if len(rec.Data) > 0 {
		if err := json.Unmarshal(rec.Data, &payload); err != nil {
			log.Printf("feed: skipping %q record with bad payload: %v", rec.Event, err)
			return
		}
	}

	f.Emit(engine.Event{Kind: engine.Kind(rec.Event), Payload: payload})
}
