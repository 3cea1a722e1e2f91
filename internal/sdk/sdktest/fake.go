// Package sdktest provides a recording fake of the sdk.SDK contract for
// tests. Behavior is overridable per method via function fields; every
// call is captured for inspection.
package sdktest

import (
	"sync"

	"newtonviz.dev/internal/protocol"
)

type Fake struct {
	InitFn           func(appID string) error
	ServeGRPCFn      func(addr string) (string, error)
	ServeWebViewerFn func(connectTo string) error
	LogFn            func(rec protocol.Record) error
	SetTimeFn        func(timeline string, seconds float64) error
	SendBlueprintFn  func(bp protocol.Blueprint) error
	DisconnectFn     func() error

	mu             sync.Mutex
	initCalls      []string
	serveGRPCCalls []string
	webViewerCalls []string
	logged         []protocol.Record
	times          []protocol.TimePayload
	blueprints     []protocol.Blueprint
	disconnects    int
}

func New() *Fake { return &Fake{} }

func (f *Fake) Init(appID string) error {
	f.mu.Lock()
	f.initCalls = append(f.initCalls, appID)
	f.mu.Unlock()
	if f.InitFn != nil {
		return f.InitFn(appID)
	}
	return nil
}

func (f *Fake) ServeGRPC(addr string) (string, error) {
	f.mu.Lock()
	f.serveGRPCCalls = append(f.serveGRPCCalls, addr)
	f.mu.Unlock()
	if f.ServeGRPCFn != nil {
		return f.ServeGRPCFn(addr)
	}
	return "rerun+ws://" + addr + "/v1/stream", nil
}

func (f *Fake) ServeWebViewer(connectTo string) error {
	f.mu.Lock()
	f.webViewerCalls = append(f.webViewerCalls, connectTo)
	f.mu.Unlock()
	if f.ServeWebViewerFn != nil {
		return f.ServeWebViewerFn(connectTo)
	}
	return nil
}

func (f *Fake) Log(rec protocol.Record) error {
	f.mu.Lock()
	f.logged = append(f.logged, rec)
	f.mu.Unlock()
	if f.LogFn != nil {
		return f.LogFn(rec)
	}
	return nil
}

func (f *Fake) SetTime(timeline string, seconds float64) error {
	f.mu.Lock()
	f.times = append(f.times, protocol.TimePayload{Timeline: timeline, Seconds: seconds})
	f.mu.Unlock()
	if f.SetTimeFn != nil {
		return f.SetTimeFn(timeline, seconds)
	}
	return nil
}

func (f *Fake) SendBlueprint(bp protocol.Blueprint) error {
	f.mu.Lock()
	f.blueprints = append(f.blueprints, bp)
	f.mu.Unlock()
	if f.SendBlueprintFn != nil {
		return f.SendBlueprintFn(bp)
	}
	return nil
}

func (f *Fake) Disconnect() error {
	f.mu.Lock()
	f.disconnects++
	f.mu.Unlock()
	if f.DisconnectFn != nil {
		return f.DisconnectFn()
	}
	return nil
}

func (f *Fake) InitCalls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.initCalls...)
}

func (f *Fake) ServeGRPCCalls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.serveGRPCCalls...)
}

func (f *Fake) ServeWebViewerCalls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.webViewerCalls...)
}

func (f *Fake) Logged() []protocol.Record {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]protocol.Record(nil), f.logged...)
}

func (f *Fake) Times() []protocol.TimePayload {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]protocol.TimePayload(nil), f.times...)
}

func (f *Fake) Blueprints() []protocol.Blueprint {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]protocol.Blueprint(nil), f.blueprints...)
}

func (f *Fake) Disconnects() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.disconnects
}
