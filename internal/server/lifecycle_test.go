package server

import (
	"bufio"
	"context"
	"log/slog"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestShutdownEndsEventStreams(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listening: %v", err)
	}
	srv := New(ln.Addr().String(), slog.Default(), testDeps(t, false), nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	served := make(chan error, 1)
	go func() { served <- srv.Serve(ctx, ln) }()

	resp, err := http.Get("http://" + ln.Addr().String() + "/api/docs/fieldLayouts/default/events")
	if err != nil {
		t.Fatalf("connecting: %v", err)
	}
	defer resp.Body.Close()

	lines := bufio.NewScanner(resp.Body)
	for lines.Scan() && !strings.HasPrefix(lines.Text(), "data: ") {
	}

	cancel()
	start := time.Now()
	if err := srv.Shutdown(context.Background()); err != nil {
		t.Fatalf("shutdown: %v", err)
	}
	if d := time.Since(start); d > 5*time.Second {
		t.Errorf("shutdown took %v with an open event stream", d)
	}

	select {
	case err := <-served:
		if err != nil {
			t.Errorf("serve: %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Serve did not return after Shutdown")
	}
}

func TestSPAFallback(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "index.html"), []byte("<div id=app></div>"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.MkdirAll(filepath.Join(dir, "assets"), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "assets", "app.js"), []byte("console.log('planner')"), 0o644); err != nil {
		t.Fatal(err)
	}

	deps := testDeps(t, false)
	deps.SPADir = dir
	h := New(":0", slog.Default(), deps, nil).Handler()

	tests := []struct {
		name     string
		path     string
		wantCode int
		wantBody string
	}{
		{"asset", "/assets/app.js", http.StatusOK, "console.log('planner')"},
		{"client route", "/layouts/spring", http.StatusOK, "<div id=app></div>"},
		{"root", "/", http.StatusOK, "<div id=app></div>"},
		{"directory", "/assets", http.StatusOK, "<div id=app></div>"},
		{"outside dir", "/../../etc/passwd", http.StatusOK, "<div id=app></div>"},
		{"unknown api", "/api/nope", http.StatusNotFound, `"not found"`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := do(t, h, http.MethodGet, tt.path, nil)
			if w.Code != tt.wantCode {
				t.Fatalf("status = %d, want %d", w.Code, tt.wantCode)
			}
			if !strings.Contains(w.Body.String(), tt.wantBody) {
				t.Errorf("body = %q, want %q", w.Body.String(), tt.wantBody)
			}
		})
	}
}

func TestSPADisabledWithoutDir(t *testing.T) {
	deps := testDeps(t, false)
	deps.SPADir = filepath.Join(t.TempDir(), "missing")
	h := New(":0", slog.Default(), deps, nil).Handler()

	if w := do(t, h, http.MethodGet, "/layouts/spring", nil); w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want %d", w.Code, http.StatusNotFound)
	}
}
