package preview

import (
	"context"
	"sync"

	"pdfhistory/internal/domain"
)

// Tracker держит превью текущей цели. Результат устаревшей цели,
// пришедший после смены, отбрасывается.
type Tracker struct {
	resolver *Resolver

	mu         sync.Mutex
	generation uint64
	cancel     context.CancelFunc
	thumbnail  string
	ok         bool
}

func NewTracker(resolver *Resolver) *Tracker {
	return &Tracker{resolver: resolver}
}

// SetTarget переключает цель. Канал закрывается, когда разрешение
// для этой цели завершено или отменено.
func (t *Tracker) SetTarget(record *domain.FileVersionRecord) <-chan struct{} {
	var target *domain.FileVersionRecord
	if record != nil {
		copied := *record
		target = &copied
	}

	t.mu.Lock()
	if t.cancel != nil {
		t.cancel()
	}
	t.generation++
	generation := t.generation
	ctx, cancel := context.WithCancel(context.Background())
	t.cancel = cancel
	t.thumbnail, t.ok = "", false
	if target != nil && target.ThumbnailURL != "" {
		t.thumbnail, t.ok = target.ThumbnailURL, true
	}
	t.mu.Unlock()

	done := make(chan struct{})
	go func() {
		defer close(done)

		thumbnail, ok := t.resolver.Resolve(ctx, target)

		t.mu.Lock()
		defer t.mu.Unlock()
		if generation != t.generation || ctx.Err() != nil {
			return
		}
		t.thumbnail, t.ok = thumbnail, ok
	}()

	return done
}

func (t *Tracker) Thumbnail() (string, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.thumbnail, t.ok
}

// Close отменяет текущее разрешение
func (t *Tracker) Close() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.cancel != nil {
		t.cancel()
		t.cancel = nil
	}
	t.generation++
}
