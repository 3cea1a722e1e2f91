package viewer

import "errors"

var (
	// ErrSDKUnavailable means no viewer backend was supplied. The wrapped
	// message carries install guidance.
	ErrSDKUnavailable = errors.New("rerun sdk unavailable")

	// ErrInvalidConfig means the requested option combination has no
	// defined behavior (launch_viewer without server).
	ErrInvalidConfig = errors.New("invalid viewer configuration")
)
