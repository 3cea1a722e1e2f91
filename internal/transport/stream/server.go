// Package stream implements the local serving endpoint viewer clients
// attach to. Records published by the viewer adapter are fanned out to
// every subscribed websocket session; late subscribers get the retained
// history replayed first.
package stream

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"newtonviz.dev/internal/protocol"
)

const (
	// Retained records replayed to late subscribers. Oldest entries are
	// dropped past this point; clients asking for them get what is left.
	maxHistory = 65536

	defaultQueue = 4096
	minQueue     = 256
	maxQueue     = 16384
)

type Server struct {
	appID string
	log   *log.Logger

	upgrader websocket.Upgrader

	srv *http.Server
	ln  net.Listener

	mu       sync.Mutex
	seq      uint64
	firstSeq uint64
	history  [][]byte
	sessions map[string]*session
	closed   bool
}

type session struct {
	id     string
	out    chan []byte
	cancel context.CancelFunc
}

func NewServer(appID string, logger *log.Logger) *Server {
	return &Server{
		appID: appID,
		log:   logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  64 * 1024,
			WriteBufferSize: 64 * 1024,
			CheckOrigin:     func(r *http.Request) bool { return true }, // local viewer
		},
		firstSeq: 1,
		sessions: map[string]*session{},
	}
}

// Listen binds addr and starts serving. It returns the connection
// descriptor viewer clients use to attach, of the form
// rerun+ws://host:port/v1/stream.
func (s *Server) Listen(addr string) (string, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return "", fmt.Errorf("stream: listen %s: %w", addr, err)
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/v1/stream", s.wsHandler)

	s.ln = ln
	s.srv = &http.Server{Handler: mux}
	go func() {
		if err := s.srv.Serve(ln); err != nil && err != http.ErrServerClosed {
			s.log.Printf("stream: serve: %v", err)
		}
	}()

	return fmt.Sprintf("rerun+ws://%s/v1/stream", ln.Addr().String()), nil
}

// Addr returns the bound address, or "" before Listen.
func (s *Server) Addr() string {
	if s.ln == nil {
		return ""
	}
	return s.ln.Addr().String()
}

// Publish assigns the next sequence number to rec and fans it out.
func (s *Server) Publish(rec protocol.Record) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seq++
	msg := protocol.RecordMsg{Type: protocol.TypeRecord, Seq: s.seq, Record: rec}
	b, err := json.Marshal(msg)
	if err != nil {
		s.log.Printf("stream: marshal record: %v", err)
		return s.seq
	}
	s.appendLocked(b)
	return s.seq
}

// SendBlueprint fans out a blueprint message.
func (s *Server) SendBlueprint(bp protocol.Blueprint) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seq++
	msg := protocol.BlueprintMsg{Type: protocol.TypeBlueprint, Seq: s.seq, Blueprint: bp}
	b, err := json.Marshal(msg)
	if err != nil {
		s.log.Printf("stream: marshal blueprint: %v", err)
		return s.seq
	}
	s.appendLocked(b)
	return s.seq
}

func (s *Server) appendLocked(b []byte) {
	s.history = append(s.history, b)
	if len(s.history) > maxHistory {
		drop := len(s.history) - maxHistory
		s.history = s.history[drop:]
		s.firstSeq += uint64(drop)
	}
	for id, sess := range s.sessions {
		select {
		case sess.out <- b:
		default:
			// Slow consumer: drop the session rather than stall the sim.
			s.log.Printf("stream: session %s too slow, dropping", id)
			sess.cancel()
			delete(s.sessions, id)
		}
	}
}

// Sessions returns the current subscriber count.
func (s *Server) Sessions() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

func (s *Server) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	for id, sess := range s.sessions {
		sess.cancel()
		delete(s.sessions, id)
	}
	s.mu.Unlock()

	if s.srv != nil {
		return s.srv.Close()
	}
	return nil
}

func (s *Server) wsHandler(rw http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(rw, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	// Handshake: must send SUBSCRIBE first.
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	_, msg, err := conn.ReadMessage()
	if err != nil {
		return
	}
	var sub protocol.SubscribeMsg
	if err := json.Unmarshal(msg, &sub); err != nil {
		s.rejectConn(conn, protocol.ErrProtoBadRequest, "bad subscribe")
		return
	}
	if sub.Type != protocol.TypeSubscribe {
		s.rejectConn(conn, protocol.ErrProtoBadRequest, "expected SUBSCRIBE")
		return
	}
	if sub.ProtocolVersion != protocol.Version {
		s.rejectConn(conn, protocol.ErrProtoVersion, "unsupported protocol version")
		return
	}

	queue := sub.MaxQueue
	if queue == 0 {
		queue = defaultQueue
	}
	if queue < minQueue {
		queue = minQueue
	}
	if queue > maxQueue {
		queue = maxQueue
	}

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	sid := uuid.NewString()
	sess := &session{id: sid, out: make(chan []byte, queue), cancel: cancel}

	// Snapshot history and register atomically so no record is missed
	// between replay and live delivery.
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		s.rejectConn(conn, protocol.ErrStreamBusy, "stream closed")
		return
	}
	replay := make([][]byte, 0, len(s.history))
	from := sub.FromSeq
	if from < s.firstSeq {
		from = s.firstSeq
	}
	for i, b := range s.history {
		if s.firstSeq+uint64(i) >= from {
			replay = append(replay, b)
		}
	}
	welcome := protocol.WelcomeMsg{
		Type:            protocol.TypeWelcome,
		ProtocolVersion: protocol.Version,
		SessionID:       sid,
		AppID:           s.appID,
		Seq:             s.seq,
		HistoryRecords:  len(replay),
	}
	s.sessions[sid] = sess
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		if cur, ok := s.sessions[sid]; ok && cur == sess {
			delete(s.sessions, sid)
		}
		s.mu.Unlock()
	}()

	if err := s.writeJSON(conn, welcome); err != nil {
		return
	}
	for _, b := range replay {
		if err := s.writeMessage(conn, b); err != nil {
			return
		}
	}

	s.log.Printf("stream: session %s subscribed (replayed %d)", sid, len(replay))

	// Writer goroutine.
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case b, ok := <-sess.out:
				if !ok {
					return
				}
				if err := s.writeMessage(conn, b); err != nil {
					cancel()
					return
				}
			}
		}
	}()

	// Reader loop. Only SUBSCRIBE refreshes are meaningful; anything else
	// is ignored (the writer goroutine owns the connection for writes).
	for {
		_ = conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		if _, _, err := conn.ReadMessage(); err != nil {
			cancel()
			return
		}
	}
}

func (s *Server) rejectConn(conn *websocket.Conn, code, reason string) {
	_ = s.writeJSON(conn, protocol.ErrorMsg{Type: protocol.TypeError, Code: code, Message: reason})
	_ = conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.ClosePolicyViolation, reason),
		time.Now().Add(time.Second))
}

func (s *Server) writeJSON(conn *websocket.Conn, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return s.writeMessage(conn, b)
}

func (s *Server) writeMessage(conn *websocket.Conn, b []byte) error {
	_ = conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
	return conn.WriteMessage(websocket.TextMessage, b)
}
