package middleware

import (
	"bytes"
	"compress/gzip"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"album-viewer/internal/metrics"
)

func captureLog(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	prev := log.Writer()
	flags := log.Flags()
	log.SetOutput(&buf)
	log.SetFlags(0)
	t.Cleanup(func() {
		log.SetOutput(prev)
		log.SetFlags(flags)
	})
	return &buf
}

func TestResponseWriterRecordsFirstStatus(t *testing.T) {
	rw := newResponseWriter(httptest.NewRecorder())
	if rw.statusCode != http.StatusOK || rw.wroteHeader {
		t.Fatalf("unexpected initial state %+v", rw)
	}
	rw.WriteHeader(http.StatusNotFound)
	rw.WriteHeader(http.StatusInternalServerError)
	if rw.statusCode != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rw.statusCode)
	}
	n, err := rw.Write([]byte("missing"))
	if err != nil || n != 7 || rw.bytesWritten != 7 {
		t.Errorf("Write = %d, %v; bytesWritten %d", n, err, rw.bytesWritten)
	}
}

func TestSanitizeLogField(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"plain", "plain"},
		{"a\nb\rc", "a b c"},
		{"nul\x00byte", "nulbyte"},
		{"\x1b[31mred", "[31mred"},
		{"tab\tkept", "tab\tkept"},
		{"bell\x07", "bell"},
	}
	for _, tt := range tests {
		if got := sanitizeLogField(tt.in); got != tt.want {
			t.Errorf("sanitizeLogField(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestGetClientIP(t *testing.T) {
	tests := []struct {
		name    string
		headers map[string]string
		remote  string
		want    string
	}{
		{"forwarded list", map[string]string{"X-Forwarded-For": "10.0.0.1, 10.0.0.2"}, "1.1.1.1:5", "10.0.0.1"},
		{"forwarded single", map[string]string{"X-Forwarded-For": " 10.0.0.3 "}, "1.1.1.1:5", "10.0.0.3"},
		{"real ip", map[string]string{"X-Real-IP": "10.0.0.4"}, "1.1.1.1:5", "10.0.0.4"},
		{"remote v4", nil, "192.168.1.2:4321", "192.168.1.2"},
		{"remote v6", nil, "[::1]:4321", "::1"},
		{"remote without port", nil, "pipe", "pipe"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/", nil)
			r.RemoteAddr = tt.remote
			for k, v := range tt.headers {
				r.Header.Set(k, v)
			}
			if got := getClientIP(r); got != tt.want {
				t.Errorf("getClientIP = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestLoggerWritesW3CLine(t *testing.T) {
	buf := captureLog(t)
	h := Logger(DefaultLoggingConfig())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
		_, _ = w.Write([]byte("short"))
	}))

	r := httptest.NewRequest(http.MethodGet, "/api/albums?scope=tree", nil)
	r.Header.Set("User-Agent", "album client")
	r.RemoteAddr = "10.1.2.3:999"
	h.ServeHTTP(httptest.NewRecorder(), r)

	line := buf.String()
	for _, want := range []string{"10.1.2.3 GET /api/albums scope=tree 418 5 ", `"album client"`} {
		if !strings.Contains(line, want) {
			t.Errorf("log line %q missing %q", line, want)
		}
	}
}

func TestLoggerSkips(t *testing.T) {
	cfg := DefaultLoggingConfig()
	cfg.LogHealthChecks = false

	tests := []struct {
		path   string
		logged bool
	}{
		{"/metrics", false},
		{"/health", false},
		{"/healthz", false},
		{"/api/cache/stats", true},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			buf := captureLog(t)
			h := Logger(cfg)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
			h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, tt.path, nil))
			if got := buf.Len() > 0; got != tt.logged {
				t.Errorf("logged = %v, want %v (%q)", got, tt.logged, buf.String())
			}
		})
	}
}

func TestLoggerSlowRequestWarns(t *testing.T) {
	buf := captureLog(t)
	cfg := DefaultLoggingConfig()
	cfg.SlowRequest = time.Millisecond
	h := Logger(cfg)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(5 * time.Millisecond)
	}))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/albums", nil))
	if !strings.Contains(buf.String(), "Slow request") {
		t.Errorf("expected slow request warning, got %q", buf.String())
	}
}

func TestEscapeW3CField(t *testing.T) {
	if got := escapeW3CField("curl/8.0"); got != "curl/8.0" {
		t.Errorf("got %q", got)
	}
	if got := escapeW3CField(`a "b"`); got != `"a ""b"""` {
		t.Errorf("got %q", got)
	}
}

func gzipRequest(path string) *http.Request {
	r := httptest.NewRequest(http.MethodGet, path, nil)
	r.Header.Set("Accept-Encoding", "gzip, deflate")
	return r
}

func TestCompression(t *testing.T) {
	large := strings.Repeat(`{"name":"album"}`, 200)

	tests := []struct {
		name        string
		contentType string
		body        string
		status      int
		req         func() *http.Request
		compressed  bool
	}{
		{"large json", "application/json", large, http.StatusOK, func() *http.Request { return gzipRequest("/") }, true},
		{"json with charset", "application/json; charset=utf-8", large, http.StatusOK, func() *http.Request { return gzipRequest("/") }, true},
		{"small json", "application/json", `{"ok":true}`, http.StatusOK, func() *http.Request { return gzipRequest("/") }, false},
		{"image", "image/webp", large, http.StatusOK, func() *http.Request { return gzipRequest("/") }, false},
		{"error status kept", "application/json", large, http.StatusNotFound, func() *http.Request { return gzipRequest("/") }, true},
		{"client without gzip", "application/json", large, http.StatusOK, func() *http.Request {
			return httptest.NewRequest(http.MethodGet, "/", nil)
		}, false},
		{"range request", "application/json", large, http.StatusOK, func() *http.Request {
			r := gzipRequest("/")
			r.Header.Set("Range", "bytes=0-10")
			return r
		}, false},
		{"websocket upgrade", "application/json", large, http.StatusOK, func() *http.Request {
			r := gzipRequest("/api/events/ws")
			r.Header.Set("Upgrade", "websocket")
			return r
		}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := Compression(DefaultCompressionConfig())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", tt.contentType)
				w.WriteHeader(tt.status)
				_, _ = io.WriteString(w, tt.body)
			}))
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, tt.req())

			if rec.Code != tt.status {
				t.Errorf("status = %d, want %d", rec.Code, tt.status)
			}
			gotCompressed := rec.Header().Get("Content-Encoding") == "gzip"
			if gotCompressed != tt.compressed {
				t.Fatalf("compressed = %v, want %v", gotCompressed, tt.compressed)
			}

			body := rec.Body.Bytes()
			if gotCompressed {
				zr, err := gzip.NewReader(bytes.NewReader(body))
				if err != nil {
					t.Fatal(err)
				}
				if body, err = io.ReadAll(zr); err != nil {
					t.Fatal(err)
				}
			}
			if string(body) != tt.body {
				t.Errorf("body mismatch: got %d bytes, want %d", len(body), len(tt.body))
			}
		})
	}
}

func TestCompressionEmptyBody(t *testing.T) {
	h := Compression(DefaultCompressionConfig())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, gzipRequest("/"))
	if rec.Code != http.StatusNoContent || rec.Body.Len() != 0 {
		t.Errorf("got %d with %d bytes", rec.Code, rec.Body.Len())
	}
}

func TestMetricsUsesRouteTemplate(t *testing.T) {
	r := mux.NewRouter()
	r.Use(Metrics(DefaultMetricsConfig()))
	r.HandleFunc("/api/albums/{id}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}).Methods(http.MethodGet)
	r.HandleFunc("/metrics", func(w http.ResponseWriter, r *http.Request) {})

	counter := metrics.HTTPRequestsTotal.WithLabelValues(http.MethodGet, "/api/albums/{id}", "404")
	before := testutil.ToFloat64(counter)
	for _, id := range []string{"1", "2", "3"} {
		r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/albums/"+id, nil))
	}
	if got := testutil.ToFloat64(counter) - before; got != 3 {
		t.Errorf("counter delta = %v, want 3", got)
	}

	skipped := metrics.HTTPRequestsTotal.WithLabelValues(http.MethodGet, "/metrics", "200")
	before = testutil.ToFloat64(skipped)
	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if testutil.ToFloat64(skipped) != before {
		t.Error("/metrics should not be recorded")
	}
}
