package lifecycle

import "sync"

// Observer delivers host foreground transitions to subscribers. The
// upload queue drains on every transition so work interrupted while the
// host was suspended resumes promptly.
type Observer interface {
	OnForeground(fn func()) (unsubscribe func())
}

type subscribers struct {
	mu   sync.Mutex
	subs map[int]func()
	next int
}

func newSubscribers() *subscribers {
	return &subscribers{subs: make(map[int]func())}
}

func (s *subscribers) add(fn func()) func() {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.next
	s.next++
	s.subs[id] = fn
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.subs, id)
	}
}

func (s *subscribers) notify() {
	s.mu.Lock()
	fns := make([]func(), 0, len(s.subs))
	for _, fn := range s.subs {
		fns = append(fns, fn)
	}
	s.mu.Unlock()

	for _, fn := range fns {
		fn()
	}
}

var _ Observer = (*ManualObserver)(nil)

// ManualObserver lets tests and embedding hosts raise foreground
// transitions explicitly.
type ManualObserver struct {
	subs *subscribers
}

func NewManualObserver() *ManualObserver {
	return &ManualObserver{subs: newSubscribers()}
}

func (o *ManualObserver) OnForeground(fn func()) func() {
	return o.subs.add(fn)
}

// Foreground notifies all subscribers of a transition
func (o *ManualObserver) Foreground() {
	o.subs.notify()
}
