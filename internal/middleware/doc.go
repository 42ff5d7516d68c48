// Package middleware provides HTTP middleware for the album viewer.
//
// [Logger] writes one W3C Extended Log Format line per request through the
// logging package, [Metrics] records Prometheus request counters labelled
// by mux route template, and [Compression] gzips JSON responses. The
// response writer wrappers support http.Hijacker so websocket upgrades on
// /api/events/ws work behind them.
package middleware
