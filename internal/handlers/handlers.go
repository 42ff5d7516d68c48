package handlers

import (
	"context"
	"time"

	"album-viewer/internal/database"
	"album-viewer/internal/events"
	"album-viewer/internal/library"
	"album-viewer/internal/metrics"
)

// Store is the part of the database the health endpoint reads.
type Store interface {
	Ping(ctx context.Context) error
	GetStats() metrics.Stats
}

// Backpressure reports whether image decoding is currently held back.
type Backpressure interface {
	IsPaused() bool
}

// Handlers holds the dependencies of the HTTP API.
type Handlers struct {
	lib     *library.Service
	store   Store
	bus     *events.Bus
	memory  Backpressure
	started time.Time
}

// Options carries the optional dependencies of New.
type Options struct {
	// Memory is consulted by the health check. It may be nil.
	Memory Backpressure
}

// New creates the API handlers.
func New(lib *library.Service, db *database.Database, bus *events.Bus, opts Options) *Handlers {
	h := &Handlers{
		lib:     lib,
		bus:     bus,
		memory:  opts.Memory,
		started: time.Now(),
	}
	if db != nil {
		h.store = db
	}
	return h
}
