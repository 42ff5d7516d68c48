package events

import (
	"sync"
	"time"

	"album-viewer/internal/logging"
	"album-viewer/internal/metrics"
)

// Event names published by the scanner and the thumbnail cache.
const (
	ScanProgress = "scan:progress"
	ScanDone     = "scan:done"
	ThumbStart   = "thumb:start"
	ThumbHit     = "thumb:hit"
	ThumbDone    = "thumb:done"
)

// Scan progress statuses and skip reasons.
const (
	StatusStart = "start"
	StatusDone  = "done"
	StatusSkip  = "skip"

	ReasonNotExists   = "not_exists"
	ReasonUnsupported = "unsupported"
	ReasonDuplicate   = "duplicate"
	ReasonCorrupt     = "corrupt"
	ReasonError       = "error"
)

// Event is one notification delivered to subscribers.
type Event struct {
	Name      string `json:"event"`
	Data      any    `json:"data"`
	Timestamp int64  `json:"timestamp"`
}

// ScanProgressData is the payload of ScanProgress.
type ScanProgressData struct {
	Path   string `json:"path"`
	Status string `json:"status"`
	Reason string `json:"reason,omitempty"`
}

// ScanDoneData is the payload of ScanDone.
type ScanDoneData struct {
	Count int `json:"count"`
}

// ThumbData is the payload of the thumbnail events.
type ThumbData struct {
	AlbumID int64  `json:"album_id"`
	Key     string `json:"key"`
	Path    string `json:"path,omitempty"`
}

// Publisher accepts fire-and-forget notifications.
type Publisher interface {
	Publish(name string, data any)
}

// Discard is a Publisher that drops everything.
type Discard struct{}

// Publish implements Publisher.
func (Discard) Publish(string, any) {}

// Bus fans events out to every current subscriber. A subscriber whose
// buffer is full misses the event; publishing never blocks.
type Bus struct {
	mu     sync.RWMutex
	subs   map[*Subscription]struct{}
	buffer int
}

// NewBus creates a bus whose subscriptions buffer up to buffer events.
func NewBus(buffer int) *Bus {
	if buffer < 1 {
		buffer = 1
	}
	return &Bus{
		subs:   make(map[*Subscription]struct{}),
		buffer: buffer,
	}
}

// Subscription receives events on C until Close is called.
type Subscription struct {
	C    <-chan Event
	ch   chan Event
	bus  *Bus
	once sync.Once
}

// Subscribe registers a new subscriber.
func (b *Bus) Subscribe() *Subscription {
	ch := make(chan Event, b.buffer)
	s := &Subscription{C: ch, ch: ch, bus: b}

	b.mu.Lock()
	b.subs[s] = struct{}{}
	n := len(b.subs)
	b.mu.Unlock()

	metrics.EventSubscribers.Set(float64(n))
	return s
}

// Close unregisters the subscription and closes C. It is safe to call more
// than once.
func (s *Subscription) Close() {
	s.once.Do(func() {
		b := s.bus
		b.mu.Lock()
		delete(b.subs, s)
		close(s.ch)
		n := len(b.subs)
		b.mu.Unlock()

		metrics.EventSubscribers.Set(float64(n))
	})
}

// Publish implements Publisher.
func (b *Bus) Publish(name string, data any) {
	ev := Event{Name: name, Data: data, Timestamp: time.Now().UnixMilli()}
	metrics.EventsPublishedTotal.WithLabelValues(name).Inc()

	b.mu.RLock()
	defer b.mu.RUnlock()

	for s := range b.subs {
		select {
		case s.ch <- ev:
		default:
			metrics.EventsDroppedTotal.WithLabelValues(name).Inc()
			logging.Debug("Dropping %s event for slow subscriber", name)
		}
	}
}

// Subscribers returns the number of active subscriptions.
func (b *Bus) Subscribers() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}
