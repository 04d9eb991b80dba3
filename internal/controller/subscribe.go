package controller

import (
	"context"
	"fmt"
	"sync"
)

// subscriber delivers events through an unbounded queue drained by its own
// goroutine, so publishing never blocks the owner and never loses an event.
// Consecutive PluginsUpdated events are coalesced: only the newest view of
// the registry matters.
type subscriber struct {
	out  chan Event
	wake chan struct{}
	stop chan struct{}

	mu        sync.Mutex
	queue     []Event
	draining  bool
	coalesced int
	stopOnce  sync.Once
}

func newSubscriber(buffer int) *subscriber {
	return &subscriber{
		out:  make(chan Event, buffer),
		wake: make(chan struct{}, 1),
		stop: make(chan struct{}),
	}
}

// push queues ev. When ev replaced a queued PluginsUpdated it returns the
// running count of coalesced events, otherwise zero.
func (s *subscriber) push(ev Event) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := ev.(PluginsUpdated); ok {
		if n := len(s.queue); n > 0 {
			if _, ok := s.queue[n-1].(PluginsUpdated); ok {
				s.queue[n-1] = ev
				s.coalesced++
				return s.coalesced
			}
		}
	}
	s.queue = append(s.queue, ev)
	s.signal()
	return 0
}

func (s *subscriber) signal() {
	select {
	case s.wake <- struct{}{}:
	default:
	}
}

// drain lets the pump deliver what is queued and then close the channel.
func (s *subscriber) drain() {
	s.mu.Lock()
	s.draining = true
	s.mu.Unlock()
	s.signal()
}

// cancel stops the pump at once, discarding anything queued.
func (s *subscriber) cancel() {
	s.stopOnce.Do(func() { close(s.stop) })
}

func (s *subscriber) pump() {
	defer close(s.out)

	for {
		s.mu.Lock()
		if len(s.queue) == 0 {
			draining := s.draining
			s.mu.Unlock()
			if draining {
				return
			}
			select {
			case <-s.wake:
				continue
			case <-s.stop:
				return
			}
		}
		ev := s.queue[0]
		s.queue[0] = nil
		s.queue = s.queue[1:]
		s.mu.Unlock()

		select {
		case s.out <- ev:
		case <-s.stop:
			return
		}
	}
}

// Subscribe registers a new listener. Publishing never blocks the
// controller and every event is delivered in order, except that a run of
// PluginsUpdated events not yet read collapses into the latest one. The
// returned cancel function unregisters and closes the channel, dropping
// anything unread; it is safe to call more than once. When the controller
// stops, queued events are still delivered before the channel closes.
func (c *Controller) Subscribe(buffer int) (<-chan Event, func()) {
	if buffer < 1 {
		buffer = 1
	}

	c.subsMu.Lock()
	defer c.subsMu.Unlock()

	sub := newSubscriber(buffer)
	if c.subsClosed {
		close(sub.out)
		return sub.out, func() {}
	}
	go sub.pump()

	id := c.nextSub
	c.nextSub++
	c.subs[id] = sub

	return sub.out, func() {
		c.subsMu.Lock()
		delete(c.subs, id)
		c.subsMu.Unlock()
		sub.cancel()
	}
}

func (c *Controller) publish(ev Event) {
	c.subsMu.Lock()
	defer c.subsMu.Unlock()

	for id, sub := range c.subs {
		if n := sub.push(ev); n > 0 && n%100 == 0 {
			c.log.WithField("subscriber", id).
				WithField("coalesced", n).
				Debug("Subscriber is behind, coalescing plugin updates")
		}
	}
}

func (c *Controller) closeSubscribers() {
	c.subsMu.Lock()
	defer c.subsMu.Unlock()

	for id, sub := range c.subs {
		sub.drain()
		delete(c.subs, id)
	}
	c.subsClosed = true
}

// ScanOutcome is what AwaitScan collected for one scan generation.
type ScanOutcome struct {
	Changed WorkspaceChanged
	Corrupt []ManifestCorrupt
}

// AwaitScan reads events until the scan with the given generation finishes.
// The channel must have been subscribed before the scan was requested.
// Events belonging to other generations and unrelated events are skipped.
func AwaitScan(ctx context.Context, events <-chan Event, generation uint64) (*ScanOutcome, error) {
	out := &ScanOutcome{}

	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case ev, ok := <-events:
			if !ok {
				return nil, ErrClosed
			}

			switch e := ev.(type) {
			case ManifestCorrupt:
				if e.Generation == generation {
					out.Corrupt = append(out.Corrupt, e)
				}
			case WorkspaceChanged:
				if e.Generation == generation {
					out.Changed = e
					return out, nil
				}
				if e.Generation > generation {
					return nil, ErrSuperseded
				}
			case ScanFailed:
				if e.Generation == generation {
					return nil, fmt.Errorf("failed to scan %s: %w", e.Workspace, e.Err)
				}
				if e.Generation > generation {
					return nil, ErrSuperseded
				}
			}
		}
	}
}
