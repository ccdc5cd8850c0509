package overlay

import (
	"sync"

	"github.com/1F47E/earthgrid/pkg/models"
)

// EventKind tells which map interaction ended.
type EventKind int

const (
	MoveEnd EventKind = iota
	ZoomEnd
)

func (k EventKind) String() string {
	switch k {
	case MoveEnd:
		return "moveend"
	case ZoomEnd:
		return "zoomend"
	default:
		return "unknown"
	}
}

// ViewportEvent is delivered to subscribers after the map settles.
type ViewportEvent struct {
	Kind     EventKind
	Viewport models.Viewport
}

// ViewportHandler handles one viewport change.
type ViewportHandler func(ViewportEvent)

// ViewportSource decouples the controller from any particular map widget.
type ViewportSource interface {
	OnViewportChange(h ViewportHandler) (cancel func())
	Viewport() models.Viewport
}

// Feed is an in-process ViewportSource. Publish records the new viewport and
// calls every subscriber synchronously in subscription order.
type Feed struct {
	mu       sync.RWMutex
	viewport models.Viewport
	nextID   int
	handlers map[int]ViewportHandler
	order    []int
}

// NewFeed creates a feed positioned at the initial viewport.
func NewFeed(initial models.Viewport) *Feed {
	return &Feed{viewport: initial, handlers: make(map[int]ViewportHandler)}
}

func (f *Feed) OnViewportChange(h ViewportHandler) func() {
	f.mu.Lock()
	id := f.nextID
	f.nextID++
	f.handlers[id] = h
	f.order = append(f.order, id)
	f.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			f.mu.Lock()
			defer f.mu.Unlock()
			delete(f.handlers, id)
			for i, o := range f.order {
				if o == id {
					f.order = append(f.order[:i], f.order[i+1:]...)
					break
				}
			}
		})
	}
}

func (f *Feed) Viewport() models.Viewport {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.viewport
}

// Publish sets the current viewport and notifies subscribers.
func (f *Feed) Publish(kind EventKind, vp models.Viewport) {
	f.mu.Lock()
	f.viewport = vp
	handlers := make([]ViewportHandler, 0, len(f.order))
	for _, id := range f.order {
		handlers = append(handlers, f.handlers[id])
	}
	f.mu.Unlock()

	ev := ViewportEvent{Kind: kind, Viewport: vp}
	for _, h := range handlers {
		h(ev)
	}
}
