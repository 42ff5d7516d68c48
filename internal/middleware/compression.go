package middleware

import (
	"compress/gzip"
	"io"
	"net/http"
	"slices"
	"strings"
	"sync"
)

// CompressionConfig holds configuration for the compression middleware
type CompressionConfig struct {
	// MinSize is the smallest body, in bytes, that is compressed.
	MinSize int
	// Level is a compress/gzip level.
	Level int
	// Types lists the media types worth compressing. Thumbnails are already
	// compressed and are never listed.
	Types []string
}

// DefaultCompressionConfig compresses JSON and text responses of 1 KiB or more.
func DefaultCompressionConfig() CompressionConfig {
	return CompressionConfig{
		MinSize: 1024,
		Level:   gzip.DefaultCompression,
		Types: []string{
			"application/json",
			"text/plain",
			"text/html",
		},
	}
}

var gzipPools sync.Map // level -> *sync.Pool

func gzipPool(level int) *sync.Pool {
	if p, ok := gzipPools.Load(level); ok {
		return p.(*sync.Pool)
	}
	p, _ := gzipPools.LoadOrStore(level, &sync.Pool{
		New: func() any {
			w, err := gzip.NewWriterLevel(io.Discard, level)
			if err != nil {
				w = gzip.NewWriter(io.Discard)
			}
			return w
		},
	})
	return p.(*sync.Pool)
}

// gzipResponseWriter holds back the first MinSize bytes to decide whether
// the response is worth compressing.
type gzipResponseWriter struct {
	http.ResponseWriter
	config  CompressionConfig
	pool    *sync.Pool
	gz      *gzip.Writer
	buf     []byte
	status  int
	decided bool
}

func newGzipResponseWriter(w http.ResponseWriter, config CompressionConfig) *gzipResponseWriter {
	return &gzipResponseWriter{
		ResponseWriter: w,
		config:         config,
		pool:           gzipPool(config.Level),
		status:         http.StatusOK,
	}
}

func (g *gzipResponseWriter) WriteHeader(status int) {
	if !g.decided {
		g.status = status
	}
}

func (g *gzipResponseWriter) Write(data []byte) (int, error) {
	if g.decided {
		if g.gz != nil {
			return g.gz.Write(data)
		}
		return g.ResponseWriter.Write(data)
	}
	g.buf = append(g.buf, data...)
	if len(g.buf) >= g.config.MinSize {
		if err := g.decide(); err != nil {
			return 0, err
		}
	}
	return len(data), nil
}

func (g *gzipResponseWriter) compressible() bool {
	h := g.Header()
	if h.Get("Content-Encoding") != "" {
		return false
	}
	switch g.status {
	case http.StatusNoContent, http.StatusNotModified, http.StatusPartialContent:
		return false
	}
	mediaType, _, _ := strings.Cut(h.Get("Content-Type"), ";")
	return slices.Contains(g.config.Types, strings.ToLower(strings.TrimSpace(mediaType)))
}

// decide writes the header and flushes the buffered bytes, compressed or
// not.
func (g *gzipResponseWriter) decide() error {
	g.decided = true
	buf := g.buf
	g.buf = nil

	if len(buf) >= g.config.MinSize && g.compressible() {
		h := g.Header()
		h.Del("Content-Length")
		h.Set("Content-Encoding", "gzip")
		h.Add("Vary", "Accept-Encoding")
		g.gz = g.pool.Get().(*gzip.Writer)
		g.gz.Reset(g.ResponseWriter)
		g.ResponseWriter.WriteHeader(g.status)
		_, err := g.gz.Write(buf)
		return err
	}

	g.ResponseWriter.WriteHeader(g.status)
	if len(buf) == 0 {
		return nil
	}
	_, err := g.ResponseWriter.Write(buf)
	return err
}

// Close flushes anything still buffered and returns the gzip writer to its
// pool.
func (g *gzipResponseWriter) Close() error {
	if !g.decided {
		if err := g.decide(); err != nil {
			return err
		}
	}
	if g.gz == nil {
		return nil
	}
	err := g.gz.Close()
	g.pool.Put(g.gz)
	g.gz = nil
	return err
}

func (g *gzipResponseWriter) Flush() {
	if !g.decided {
		_ = g.decide()
	}
	if g.gz != nil {
		_ = g.gz.Flush()
	}
	if f, ok := g.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

// Compression returns a middleware that gzips compressible responses for
// clients that accept it. Websocket upgrades, HEAD and range requests pass
// through untouched.
func Compression(config CompressionConfig) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !strings.Contains(r.Header.Get("Accept-Encoding"), "gzip") ||
				r.Header.Get("Upgrade") != "" ||
				r.Header.Get("Range") != "" ||
				r.Method == http.MethodHead {
				next.ServeHTTP(w, r)
				return
			}

			gzw := newGzipResponseWriter(w, config)
			defer func() { _ = gzw.Close() }()
			next.ServeHTTP(gzw, r)
		})
	}
}
