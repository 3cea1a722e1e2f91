package viewer

import (
	"errors"
	"fmt"
	"io"
	"log"
	"strings"
	"testing"

	"newtonviz.dev/internal/sdk/sdktest"
)

func discard() *log.Logger { return log.New(io.Discard, "", 0) }

func TestNewRerun_DefaultParameters(t *testing.T) {
	rr := sdktest.New()
	v, err := NewRerun(DefaultConfig(), rr, discard())
	if err != nil {
		t.Fatalf("new rerun: %v", err)
	}

	if got := rr.InitCalls(); len(got) != 1 || got[0] != "newton-viewer" {
		t.Fatalf("init calls: %v", got)
	}
	if got := rr.ServeGRPCCalls(); len(got) != 1 || got[0] != "127.0.0.1:9876" {
		t.Fatalf("serve grpc calls: %v", got)
	}
	wantURI := "rerun+ws://127.0.0.1:9876/v1/stream"
	if got := rr.ServeWebViewerCalls(); len(got) != 1 || got[0] != wantURI {
		t.Fatalf("serve web viewer calls: %v", got)
	}
	if v.ServerURI() != wantURI {
		t.Fatalf("server uri: %q", v.ServerURI())
	}

	if !v.Server || v.Address != "127.0.0.1:9876" || !v.LaunchViewer || v.AppID != "newton-viewer" {
		t.Fatalf("stored config: %+v", v)
	}
	if !v.Running() {
		t.Fatalf("viewer not running after construction")
	}
	if v.viewerProc != nil {
		t.Fatalf("viewer process should be absent")
	}
	if v.meshes == nil || len(v.meshes) != 0 {
		t.Fatalf("meshes registry: %v", v.meshes)
	}
	if v.instances == nil || len(v.instances) != 0 {
		t.Fatalf("instances registry: %v", v.instances)
	}
}

func TestNewRerun_CustomAppID(t *testing.T) {
	rr := sdktest.New()
	cfg := DefaultConfig()
	cfg.AppID = "my-custom-app"
	v, err := NewRerun(cfg, rr, discard())
	if err != nil {
		t.Fatalf("new rerun: %v", err)
	}
	if got := rr.InitCalls(); len(got) != 1 || got[0] != "my-custom-app" {
		t.Fatalf("init calls: %v", got)
	}
	if v.AppID != "my-custom-app" {
		t.Fatalf("app id: %q", v.AppID)
	}
}

func TestNewRerun_ServerFalseViewerFalse(t *testing.T) {
	rr := sdktest.New()
	cfg := DefaultConfig()
	cfg.Server = false
	cfg.LaunchViewer = false
	v, err := NewRerun(cfg, rr, discard())
	if err != nil {
		t.Fatalf("new rerun: %v", err)
	}

	if got := rr.InitCalls(); len(got) != 1 || got[0] != "newton-viewer" {
		t.Fatalf("init calls: %v", got)
	}
	if got := rr.ServeGRPCCalls(); len(got) != 0 {
		t.Fatalf("serve grpc should not be called: %v", got)
	}
	if got := rr.ServeWebViewerCalls(); len(got) != 0 {
		t.Fatalf("serve web viewer should not be called: %v", got)
	}
	if v.Server || v.LaunchViewer {
		t.Fatalf("stored flags: server=%v launch_viewer=%v", v.Server, v.LaunchViewer)
	}
	if v.ServerURI() != "" {
		t.Fatalf("server uri should be absent: %q", v.ServerURI())
	}
	if !v.Running() {
		t.Fatalf("viewer not running")
	}
}

func TestNewRerun_ServerTrueViewerFalse(t *testing.T) {
	rr := sdktest.New()
	cfg := DefaultConfig()
	cfg.LaunchViewer = false
	v, err := NewRerun(cfg, rr, discard())
	if err != nil {
		t.Fatalf("new rerun: %v", err)
	}
	if got := rr.ServeGRPCCalls(); len(got) != 1 {
		t.Fatalf("serve grpc calls: %v", got)
	}
	if got := rr.ServeWebViewerCalls(); len(got) != 0 {
		t.Fatalf("serve web viewer should not be called: %v", got)
	}
	if !v.Server || v.LaunchViewer {
		t.Fatalf("stored flags: server=%v launch_viewer=%v", v.Server, v.LaunchViewer)
	}
}

func TestNewRerun_ServerFalseViewerTrue_InvalidConfig(t *testing.T) {
	rr := sdktest.New()
	cfg := DefaultConfig()
	cfg.Server = false
	cfg.LaunchViewer = true

	_, err := NewRerun(cfg, rr, discard())
	if !errors.Is(err, ErrInvalidConfig) {
		t.Fatalf("expected ErrInvalidConfig, got %v", err)
	}
	if !strings.Contains(err.Error(), "launch_viewer requires server=true") {
		t.Fatalf("error message: %v", err)
	}
	// Rejected before any backend side effect.
	if got := rr.InitCalls(); len(got) != 0 {
		t.Fatalf("init should not be called: %v", got)
	}
	if got := rr.ServeWebViewerCalls(); len(got) != 0 {
		t.Fatalf("serve web viewer should not be called: %v", got)
	}
}

func TestNewRerun_NilSDK(t *testing.T) {
	_, err := NewRerun(DefaultConfig(), nil, discard())
	if !errors.Is(err, ErrSDKUnavailable) {
		t.Fatalf("expected ErrSDKUnavailable, got %v", err)
	}
	if !strings.Contains(err.Error(), "rerun") || !strings.Contains(err.Error(), "install") {
		t.Fatalf("error message lacks install guidance: %v", err)
	}
}

func TestNewRerun_CustomAddressForwarded(t *testing.T) {
	rr := sdktest.New()
	cfg := DefaultConfig()
	cfg.Address = "192.168.1.100:8080"
	v, err := NewRerun(cfg, rr, discard())
	if err != nil {
		t.Fatalf("new rerun: %v", err)
	}
	if v.Address != "192.168.1.100:8080" {
		t.Fatalf("address: %q", v.Address)
	}
	if got := rr.ServeGRPCCalls(); len(got) != 1 || got[0] != "192.168.1.100:8080" {
		t.Fatalf("serve grpc calls: %v", got)
	}
}

func TestNewRerun_AddressFormatsStored(t *testing.T) {
	addresses := []string{
		"127.0.0.1:9876",
		"localhost:8080",
		"192.168.1.100:7777",
		"my-server.example.com:9999",
	}
	for _, addr := range addresses {
		t.Run(addr, func(t *testing.T) {
			rr := sdktest.New()
			cfg := DefaultConfig()
			cfg.Address = addr
			cfg.LaunchViewer = false
			v, err := NewRerun(cfg, rr, discard())
			if err != nil {
				t.Fatalf("new rerun: %v", err)
			}
			if v.Address != addr {
				t.Fatalf("address: got %q want %q", v.Address, addr)
			}
			// The address changes arguments, never which calls are made.
			if len(rr.ServeGRPCCalls()) != 1 || len(rr.ServeWebViewerCalls()) != 0 {
				t.Fatalf("call set changed for %q", addr)
			}
		})
	}
}

func TestNewRerun_AllParametersCustom(t *testing.T) {
	rr := sdktest.New()
	cfg := Config{
		Server:       true,
		Address:      "10.0.0.1:7777",
		LaunchViewer: true,
		AppID:        "test-app-123",
	}
	v, err := NewRerun(cfg, rr, discard())
	if err != nil {
		t.Fatalf("new rerun: %v", err)
	}

	if !v.Server || v.Address != "10.0.0.1:7777" || !v.LaunchViewer || v.AppID != "test-app-123" {
		t.Fatalf("stored config: %+v", v)
	}
	if got := rr.InitCalls(); len(got) != 1 || got[0] != "test-app-123" {
		t.Fatalf("init calls: %v", got)
	}
	if got := rr.ServeGRPCCalls(); len(got) != 1 {
		t.Fatalf("serve grpc calls: %v", got)
	}
	want := "rerun+ws://10.0.0.1:7777/v1/stream"
	if got := rr.ServeWebViewerCalls(); len(got) != 1 || got[0] != want {
		t.Fatalf("serve web viewer calls: %v", got)
	}
}

func TestNewRerun_WebViewerGetsServeGRPCDescriptor(t *testing.T) {
	rr := sdktest.New()
	rr.ServeGRPCFn = func(addr string) (string, error) {
		return "rerun+ws://custom-descriptor/v1/stream", nil
	}
	_, err := NewRerun(DefaultConfig(), rr, discard())
	if err != nil {
		t.Fatalf("new rerun: %v", err)
	}
	got := rr.ServeWebViewerCalls()
	if len(got) != 1 || got[0] != "rerun+ws://custom-descriptor/v1/stream" {
		t.Fatalf("descriptor not forwarded: %v", got)
	}
}

func TestNewRerun_BackendErrorsPropagate(t *testing.T) {
	t.Run("init", func(t *testing.T) {
		rr := sdktest.New()
		rr.InitFn = func(string) error { return fmt.Errorf("boom") }
		if _, err := NewRerun(DefaultConfig(), rr, discard()); err == nil || !strings.Contains(err.Error(), "sdk init") {
			t.Fatalf("expected wrapped init error, got %v", err)
		}
	})
	t.Run("serve grpc", func(t *testing.T) {
		rr := sdktest.New()
		rr.ServeGRPCFn = func(string) (string, error) { return "", fmt.Errorf("bind failed") }
		if _, err := NewRerun(DefaultConfig(), rr, discard()); err == nil || !strings.Contains(err.Error(), "serving endpoint") {
			t.Fatalf("expected wrapped serve error, got %v", err)
		}
	})
	t.Run("web viewer", func(t *testing.T) {
		rr := sdktest.New()
		rr.ServeWebViewerFn = func(string) error { return fmt.Errorf("no browser") }
		if _, err := NewRerun(DefaultConfig(), rr, discard()); err == nil || !strings.Contains(err.Error(), "launch viewer") {
			t.Fatalf("expected wrapped viewer error, got %v", err)
		}
	})
}

func TestNewRerun_NilLoggerGetsDefault(t *testing.T) {
	rr := sdktest.New()
	v, err := NewRerun(DefaultConfig(), rr, nil)
	if err != nil {
		t.Fatalf("new rerun: %v", err)
	}
	if v.log == nil {
		t.Fatalf("logger not defaulted")
	}
}

func TestClose_DisconnectsOnce(t *testing.T) {
	rr := sdktest.New()
	v, err := NewRerun(DefaultConfig(), rr, discard())
	if err != nil {
		t.Fatalf("new rerun: %v", err)
	}
	if err := v.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if v.Running() {
		t.Fatalf("still running after close")
	}
	if err := v.Close(); err != nil {
		t.Fatalf("second close: %v", err)
	}
	if got := rr.Disconnects(); got != 1 {
		t.Fatalf("disconnects: got %d want 1", got)
	}
}
