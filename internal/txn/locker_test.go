package txn

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLockerSerializes(t *testing.T) {
	l := NewLocker()

	var counter, max int
	var mu sync.Mutex
	var wg sync.WaitGroup

	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock := l.Lock("request-1")
			defer unlock()

			mu.Lock()
			counter++
			if counter > max {
				max = counter
			}
			mu.Unlock()

			mu.Lock()
			counter--
			mu.Unlock()
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, max, "at most one holder inside the critical section")
}

func TestLockerIndependentKeys(t *testing.T) {
	l := NewLocker()

	unlockA := l.Lock("request-a")
	// A different key must not block.
	done := make(chan struct{})
	go func() {
		unlockB := l.Lock("request-b")
		unlockB()
		close(done)
	}()
	<-done
	unlockA()
}

func TestLockerReleasesEntries(t *testing.T) {
	l := NewLocker()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock := l.Lock("shared")
			unlock()
		}()
	}
	wg.Wait()

	l.mu.Lock()
	defer l.mu.Unlock()
	assert.Empty(t, l.locks, "entries are removed once the last holder releases")
}

// Simulates competing accepts on one request: each goroutine takes the key
// lock, re-reads the offer status, and commits the transition only when the
// offer is still pending. Exactly one must win and the assignment must match
// the winner.
func TestConcurrentAcceptSingleWinner(t *testing.T) {
	l := NewLocker()

	type state struct {
		offerStatus map[string]string
		assignedTo  string
	}
	s := &state{offerStatus: map[string]string{}}
	offers := []string{"offer-1", "offer-2", "offer-3", "offer-4", "offer-5"}
	for _, id := range offers {
		s.offerStatus[id] = "pending"
	}

	accept := func(offerID string) bool {
		unlock := l.Lock("request-1")
		defer unlock()

		if s.offerStatus[offerID] != "pending" {
			return false
		}
		s.offerStatus[offerID] = "accepted"
		s.assignedTo = offerID
		for _, other := range offers {
			if other != offerID && s.offerStatus[other] == "pending" {
				s.offerStatus[other] = "rejected"
			}
		}
		return true
	}

	var wg sync.WaitGroup
	wins := make(chan string, len(offers))
	for _, id := range offers {
		for attempt := 0; attempt < 4; attempt++ {
			wg.Add(1)
			go func(offerID string) {
				defer wg.Done()
				if accept(offerID) {
					wins <- offerID
				}
			}(id)
		}
	}
	wg.Wait()
	close(wins)

	var winners []string
	for w := range wins {
		winners = append(winners, w)
	}
	require.Len(t, winners, 1, "exactly one accept succeeds")
	assert.Equal(t, winners[0], s.assignedTo)
	assert.Equal(t, "accepted", s.offerStatus[winners[0]])
	for _, id := range offers {
		if id != winners[0] {
			assert.Equal(t, "rejected", s.offerStatus[id], id)
		}
	}
}
