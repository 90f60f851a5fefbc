package eventbus

import (
	"context"
	"sync"
	"sync/atomic"
)

// dropBelow приоритет, ниже которого события отбрасываются при полном буфере
const dropBelow = 5

type memorySub struct {
	id      int
	filter  Filter
	handler Handler
	ctx     context.Context
	cancel  context.CancelFunc
}

// memoryBus доставляет события в одной горутине в порядке публикации,
// подписчикам в порядке подписки
type memoryBus struct {
	// sendMu защищает буфер от закрытия во время отправки
	sendMu sync.RWMutex
	closed bool
	buffer chan *Envelope
	done   chan struct{}

	mu     sync.Mutex
	subs   []*memorySub
	nextID int

	published atomic.Uint64
	consumed  atomic.Uint64
	dropped   atomic.Uint64
}

// NewMemoryBus создаёт шину в памяти с буфером capacity событий
func NewMemoryBus(capacity int) EventBus {
	if capacity <= 0 {
		capacity = 64
	}
	mb := &memoryBus{
		buffer: make(chan *Envelope, capacity),
		done:   make(chan struct{}),
	}
	go mb.dispatch()
	return mb
}

func (mb *memoryBus) Publish(ctx context.Context, ev *Envelope) error {
	mb.sendMu.RLock()
	defer mb.sendMu.RUnlock()
	if mb.closed {
		return ErrClosed
	}

	select {
	case mb.buffer <- ev:
		mb.published.Add(1)
		return nil
	default:
	}
	if ev.Priority < dropBelow {
		mb.dropped.Add(1)
		return nil
	}
	select {
	case mb.buffer <- ev:
		mb.published.Add(1)
		return nil
	case <-ctx.Done():
		mb.dropped.Add(1)
		return ctx.Err()
	}
}

func (mb *memoryBus) Subscribe(ctx context.Context, f Filter, h Handler) (Subscription, error) {
	cctx, cancel := context.WithCancel(ctx)
	mb.mu.Lock()
	defer mb.mu.Unlock()
	sub := &memorySub{id: mb.nextID, filter: f, handler: h, ctx: cctx, cancel: cancel}
	mb.nextID++
	mb.subs = append(mb.subs, sub)
	return &memoryHandle{bus: mb, id: sub.id}, nil
}

func (mb *memoryBus) Metrics() Stats {
	return Stats{
		Published: mb.published.Load(),
		Consumed:  mb.consumed.Load(),
		Dropped:   mb.dropped.Load(),
		InFlight:  len(mb.buffer),
	}
}

// Close доставляет уже принятые события и останавливает рассылку
func (mb *memoryBus) Close() error {
	mb.sendMu.Lock()
	if mb.closed {
		mb.sendMu.Unlock()
		return nil
	}
	mb.closed = true
	close(mb.buffer)
	mb.sendMu.Unlock()

	<-mb.done
	return nil
}

func (mb *memoryBus) snapshot() []*memorySub {
	mb.mu.Lock()
	defer mb.mu.Unlock()
	return append([]*memorySub(nil), mb.subs...)
}

func (mb *memoryBus) dispatch() {
	defer close(mb.done)
	for ev := range mb.buffer {
		for _, sub := range mb.snapshot() {
			if sub.ctx.Err() != nil || !sub.filter.match(ev) {
				continue
			}
			sub.handler(sub.ctx, ev)
			mb.consumed.Add(1)
		}
	}
}

type memoryHandle struct {
	bus *memoryBus
	id  int
}

func (h *memoryHandle) Unsubscribe() {
	h.bus.mu.Lock()
	defer h.bus.mu.Unlock()
	for i, sub := range h.bus.subs {
		if sub.id == h.id {
			sub.cancel()
			h.bus.subs = append(h.bus.subs[:i], h.bus.subs[i+1:]...)
			return
		}
	}
}
