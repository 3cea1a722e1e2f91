package protocol

// SUBSCRIBE (viewer client -> server). First message on the stream WS
// connection; can be re-sent to update settings.
type SubscribeMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`

	// Replay history from this sequence number (0 = full history).
	FromSeq uint64 `json:"from_seq,omitempty"`

	// Client hint: max records buffered server-side before the session
	// is considered too slow and dropped.
	MaxQueue int `json:"max_queue,omitempty"`
}

// WELCOME (server -> viewer client).
type WelcomeMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	SessionID       string `json:"session_id"`
	AppID           string `json:"app_id"`
	Seq             uint64 `json:"seq"`
	HistoryRecords  int    `json:"history_records"`
}

// RECORD (server -> viewer client). One logged entity update.
type RecordMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version,omitempty"`
	Seq             uint64 `json:"seq"`
	Record          Record `json:"record"`
}

// BLUEPRINT (server -> viewer client). Layout and visibility overrides.
type BlueprintMsg struct {
	Type            string    `json:"type"`
	ProtocolVersion string    `json:"protocol_version,omitempty"`
	Seq             uint64    `json:"seq"`
	Blueprint       Blueprint `json:"blueprint"`
}

// ERROR (server -> viewer client), sent before closing on protocol faults.
type ErrorMsg struct {
	Type    string `json:"type"`
	Code    string `json:"code"`
	Message string `json:"message,omitempty"`
}
