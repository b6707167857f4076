package coordinator

import "sync"

// serializer runs tasks sharing a key one after another, in submission
// order. Tasks under different keys run concurrently.
type serializer struct {
	mu    sync.Mutex
	tails map[string]chan struct{}
}

func newSerializer() *serializer {
	return &serializer{tails: make(map[string]chan struct{})}
}

func (s *serializer) run(key string, fn func()) {
	done := make(chan struct{})

	s.mu.Lock()
	prev := s.tails[key]
	s.tails[key] = done
	s.mu.Unlock()

	go func() {
		if prev != nil {
			<-prev
		}
		fn()
		close(done)

		s.mu.Lock()
		if s.tails[key] == done {
			delete(s.tails, key)
		}
		s.mu.Unlock()
	}()
}
