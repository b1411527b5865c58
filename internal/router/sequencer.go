package router

import "sync"

// Sequencer runs submitted functions concurrently across keys but strictly
// in submission order within one key.
type Sequencer struct {
	mu    sync.Mutex
	tails map[int64]chan struct{}
	wg    sync.WaitGroup
}

func NewSequencer() *Sequencer {
	return &Sequencer{tails: make(map[int64]chan struct{})}
}

// Go schedules fn after every function previously submitted for key has
// returned. Submissions must come from a single goroutine to define the order.
func (s *Sequencer) Go(key int64, fn func()) {
	done := make(chan struct{})

	s.mu.Lock()
	prev := s.tails[key]
	s.tails[key] = done
	s.mu.Unlock()

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer func() {
			close(done)
			s.mu.Lock()
			if s.tails[key] == done {
				delete(s.tails, key)
			}
			s.mu.Unlock()
		}()

		if prev != nil {
			<-prev
		}
		fn()
	}()
}

// Wait blocks until every submitted function has returned.
func (s *Sequencer) Wait() {
	s.wg.Wait()
}

func (s *Sequencer) pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.tails)
}
