// Package embedded is the in-process sdk.SDK backend: records fan out to
// websocket viewer sessions via the stream server, the web viewer is a
// local http server, and the whole session can be captured to a
// compressed recording with sqlite-indexed metadata.
package embedded

import (
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"newtonviz.dev/internal/protocol"
	"newtonviz.dev/internal/recording"
	"newtonviz.dev/internal/transport/stream"
	"newtonviz.dev/internal/transport/webviewer"
)

type Options struct {
	// WebAddr is the web viewer bind address ("127.0.0.1:0" when empty).
	WebAddr string
	// RecordDir enables session capture when non-empty.
	RecordDir string
	// IndexPath is the recordings sqlite db ("" disables indexing).
	IndexPath string
}

type Backend struct {
	log  *log.Logger
	opts Options

	mu      sync.Mutex
	appID   string
	stream  *stream.Server
	web     *webviewer.Server
	rec     *recording.Writer
	idx     *recording.Index
	recID   string
	started time.Time
	seq     uint64
	closed  bool
}

func New(opts Options, logger *log.Logger) *Backend {
	return &Backend{log: logger, opts: opts}
}

func (b *Backend) Init(appID string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.appID != "" {
		return fmt.Errorf("embedded: already initialized as %q", b.appID)
	}
	if appID == "" {
		return fmt.Errorf("embedded: empty app id")
	}
	b.appID = appID
	b.started = time.Now()

	if b.opts.RecordDir == "" {
		return nil
	}
	b.recID = uuid.NewString()
	w, err := recording.NewWriter(b.opts.RecordDir, b.recID)
	if err != nil {
		return fmt.Errorf("embedded: open recording: %w", err)
	}
	b.rec = w
	if b.opts.IndexPath != "" {
		idx, err := recording.OpenIndex(b.opts.IndexPath)
		if err != nil {
			_ = w.Close()
			b.rec = nil
			return fmt.Errorf("embedded: open recording index: %w", err)
		}
		b.idx = idx
		idx.Begin(recording.Meta{
			ID:        b.recID,
			AppID:     appID,
			Path:      w.Path(),
			StartedAt: b.started,
		})
	}
	b.log.Printf("embedded: recording session %s to %s", b.recID, w.Path())
	return nil
}

func (b *Backend) ServeGRPC(addr string) (string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.appID == "" {
		return "", fmt.Errorf("embedded: init not called")
	}
	if b.stream != nil {
		return "", fmt.Errorf("embedded: serving endpoint already started")
	}
	s := stream.NewServer(b.appID, b.log)
	uri, err := s.Listen(addr)
	if err != nil {
		return "", err
	}
	b.stream = s
	b.log.Printf("embedded: serving endpoint at %s", uri)
	return uri, nil
}

func (b *Backend) ServeWebViewer(connectTo string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.appID == "" {
		return fmt.Errorf("embedded: init not called")
	}
	if connectTo == "" {
		return fmt.Errorf("embedded: empty connection descriptor")
	}
	if b.web != nil {
		return fmt.Errorf("embedded: web viewer already started")
	}
	addr := b.opts.WebAddr
	if addr == "" {
		addr = "127.0.0.1:0"
	}
	w := webviewer.New(b.appID, connectTo, b.log)
	if _, err := w.Start(addr); err != nil {
		return err
	}
	b.web = w
	return nil
}

func (b *Backend) Log(rec protocol.Record) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.appID == "" {
		return fmt.Errorf("embedded: init not called")
	}
	if b.closed {
		return fmt.Errorf("embedded: disconnected")
	}
	var seq uint64
	if b.stream != nil {
		seq = b.stream.Publish(rec)
	} else {
		b.seq++
		seq = b.seq
	}
	if b.rec != nil {
		msg := protocol.RecordMsg{Type: protocol.TypeRecord, Seq: seq, Record: rec}
		if err := b.rec.Write(msg); err != nil {
			return fmt.Errorf("embedded: record: %w", err)
		}
	}
	return nil
}

func (b *Backend) SetTime(timeline string, seconds float64) error {
	return b.Log(protocol.Record{
		Kind: protocol.RecordSetTime,
		Time: &protocol.TimePayload{Timeline: timeline, Seconds: seconds},
	})
}

func (b *Backend) SendBlueprint(bp protocol.Blueprint) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.appID == "" {
		return fmt.Errorf("embedded: init not called")
	}
	if b.closed {
		return fmt.Errorf("embedded: disconnected")
	}
	var seq uint64
	if b.stream != nil {
		seq = b.stream.SendBlueprint(bp)
	} else {
		b.seq++
		seq = b.seq
	}
	if b.rec != nil {
		msg := protocol.BlueprintMsg{Type: protocol.TypeBlueprint, Seq: seq, Blueprint: bp}
		if err := b.rec.Write(msg); err != nil {
			return fmt.Errorf("embedded: record: %w", err)
		}
	}
	return nil
}

func (b *Backend) Disconnect() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil
	}
	b.closed = true

	var firstErr error
	if b.web != nil {
		if err := b.web.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
		b.web = nil
	}
	if b.stream != nil {
		if err := b.stream.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
		b.stream = nil
	}
	if b.rec != nil {
		count := b.rec.Count()
		if err := b.rec.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
		if b.idx != nil {
			b.idx.Finish(b.recID, count, time.Now())
			b.idx.Sync()
			if err := b.idx.Close(); err != nil && firstErr == nil {
				firstErr = err
			}
			b.idx = nil
		}
		b.rec = nil
	}
	return firstErr
}
