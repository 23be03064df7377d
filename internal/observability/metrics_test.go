package observability

import (
	"context"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/danmuck/tasksync/internal/testutil/testlog"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
	"github.com/tidwall/gjson"
)

func TestRegisterMetricsAndRecordersAreSafe(t *testing.T) {
	testlog.Start(t)
	RegisterMetrics()
	RegisterMetrics()

	RecordBytesReceived(12)
	RecordLinesFramed(2)
	RecordConnect(3*time.Millisecond, true)
	RecordCommand("get", CommandResultSent)
}

func TestRecordDecodeErrorByKind(t *testing.T) {
	testlog.Start(t)
	before := testutil.ToFloat64(decodeErrors.WithLabelValues(DecodeUnknownType))
	RecordDecodeError(DecodeUnknownType)
	RecordDecodeError(DecodeUnknownType)
	after := testutil.ToFloat64(decodeErrors.WithLabelValues(DecodeUnknownType))
	if after-before != 2 {
		t.Fatalf("expected +2 unknown_type, got before=%v after=%v", before, after)
	}
}

func TestRecordSnapshotSetsItemGauge(t *testing.T) {
	testlog.Start(t)
	RecordSnapshot(7)
	if got := testutil.ToFloat64(snapshotItems); got != 7 {
		t.Fatalf("unexpected items gauge: %v", got)
	}
	RecordSnapshot(0)
	if got := testutil.ToFloat64(snapshotItems); got != 0 {
		t.Fatalf("unexpected items gauge: %v", got)
	}
}

func TestRouterServesMetrics(t *testing.T) {
	testlog.Start(t)
	RecordLinesFramed(1)

	r := NewRouter(RouterConfig{Logger: zerolog.Nop()})
	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("unexpected status: %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "tasksync_transport_lines_framed_total") {
		t.Fatalf("metrics body missing transport counter")
	}
}

func TestServeStopsOnContextCancel(t *testing.T) {
	testlog.Start(t)
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- Serve(ctx, ln, RouterConfig{Logger: zerolog.Nop()})
	}()

	resp, err := http.Get("http://" + ln.Addr().String() + "/healthz")
	if err != nil {
		cancel()
		t.Fatalf("get healthz: %v", err)
	}
	body, _ := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	if status := gjson.GetBytes(body, "status").String(); status != "ok" {
		cancel()
		t.Fatalf("unexpected health body: %q", body)
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("serve: %v", err)
		}
	case <-time.After(3 * time.Second):
		t.Fatalf("serve did not stop")
	}
}

func TestRouterCorsOrigins(t *testing.T) {
	testlog.Start(t)
	r := NewRouter(RouterConfig{Logger: zerolog.Nop(), CorsOrigins: []string{"http://localhost:3000"}})

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "http://localhost:3000" {
		t.Fatalf("unexpected allow origin: %q", got)
	}

	req = httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set("Origin", "http://evil.example")
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected forbidden for unknown origin, got %d", rec.Code)
	}
}
