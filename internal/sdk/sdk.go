// Package sdk defines the viewer backend contract. The viewer adapter only
// talks to this interface; the real implementation lives in sdk/embedded
// and test doubles in sdk/sdktest.
package sdk

import "newtonviz.dev/internal/protocol"

// SDK is the visualization backend consumed by the viewer adapter.
//
// ServeGRPC binds a local serving endpoint on addr and returns a connection
// descriptor URI that viewer clients attach to. ServeWebViewer starts a
// browser-based viewer pointed at such a descriptor. Init must be called
// before any other method.
type SDK interface {
	Init(appID string) error
	ServeGRPC(addr string) (string, error)
	ServeWebViewer(connectTo string) error

	Log(rec protocol.Record) error
	SetTime(timeline string, seconds float64) error
	SendBlueprint(bp protocol.Blueprint) error

	Disconnect() error
}
