package protocol

const (
	// Protocol/transport validation.
	ErrProtoBadRequest = "E_PROTO_BAD_REQUEST"
	ErrProtoVersion    = "E_PROTO_VERSION"

	// Stream/session state.
	ErrStreamBusy    = "E_STREAM_BUSY"
	ErrSessionLimit  = "E_SESSION_LIMIT"
	ErrSeqOutOfRange = "E_SEQ_OUT_OF_RANGE"

	ErrInternal = "E_INTERNAL"
)

var knownCodes = map[string]struct{}{
	ErrProtoBadRequest: {},
	ErrProtoVersion:    {},
	ErrStreamBusy:      {},
	ErrSessionLimit:    {},
	ErrSeqOutOfRange:   {},
	ErrInternal:        {},
}

func IsKnownCode(code string) bool {
	if code == "" {
		return true
	}
	_, ok := knownCodes[code]
	return ok
}
