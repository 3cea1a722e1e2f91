package recording

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/klauspost/compress/zstd"

	"newtonviz.dev/internal/protocol"
)

// Writer appends wire messages to a zstd-compressed JSONL recording file,
// one message per line.
type Writer struct {
	mu    sync.Mutex
	path  string
	f     *os.File
	enc   *zstd.Encoder
	w     *bufio.Writer
	count int
}

func NewWriter(dir, id string) (*Writer, error) {
	if dir == "" || id == "" {
		return nil, fmt.Errorf("recording: empty dir or id")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	path := filepath.Join(dir, id+".jsonl.zst")
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return nil, err
	}
	enc, err := zstd.NewWriter(f, zstd.WithEncoderLevel(zstd.SpeedFastest))
	if err != nil {
		_ = f.Close()
		return nil, err
	}
	return &Writer{
		path: path,
		f:    f,
		enc:  enc,
		w:    bufio.NewWriterSize(enc, 128*1024),
	}, nil
}

func (w *Writer) Path() string { return w.path }

func (w *Writer) Count() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.count
}

func (w *Writer) Write(v any) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.w == nil {
		return fmt.Errorf("recording: writer closed")
	}
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	if _, err := w.w.Write(b); err != nil {
		return err
	}
	if err := w.w.WriteByte('\n'); err != nil {
		return err
	}
	w.count++
	return w.w.Flush()
}

func (w *Writer) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.w != nil {
		_ = w.w.Flush()
		w.w = nil
	}
	var err error
	if w.enc != nil {
		err = w.enc.Close()
		w.enc = nil
	}
	if w.f != nil {
		_ = w.f.Close()
		w.f = nil
	}
	return err
}

// Entry is one decoded recording line. Record or Blueprint is set
// depending on Base.Type; Raw always carries the original line.
type Entry struct {
	Base      protocol.BaseMessage
	Record    *protocol.RecordMsg
	Blueprint *protocol.BlueprintMsg
	Raw       json.RawMessage
}

// ReadAll decodes a whole recording file.
func ReadAll(path string) ([]Entry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	dec, err := zstd.NewReader(f)
	if err != nil {
		return nil, err
	}
	defer dec.Close()

	var out []Entry
	sc := bufio.NewScanner(dec)
	sc.Buffer(make([]byte, 0, 1<<20), 64<<20)
	line := 0
	for sc.Scan() {
		line++
		raw := append(json.RawMessage(nil), sc.Bytes()...)
		base, err := protocol.DecodeBase(raw)
		if err != nil {
			return nil, fmt.Errorf("recording line %d: %w", line, err)
		}
		e := Entry{Base: base, Raw: raw}
		switch base.Type {
		case protocol.TypeRecord:
			var m protocol.RecordMsg
			if err := json.Unmarshal(raw, &m); err != nil {
				return nil, fmt.Errorf("recording line %d: %w", line, err)
			}
			e.Record = &m
		case protocol.TypeBlueprint:
			var m protocol.BlueprintMsg
			if err := json.Unmarshal(raw, &m); err != nil {
				return nil, fmt.Errorf("recording line %d: %w", line, err)
			}
			e.Blueprint = &m
		default:
			return nil, fmt.Errorf("recording line %d: unexpected message type %q", line, base.Type)
		}
		out = append(out, e)
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	return out, nil
}
