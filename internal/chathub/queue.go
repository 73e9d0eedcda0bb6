package chathub

import "sync"

// PairingQueue is the FIFO of users waiting for a random partner.
//
// The queue does not own its lock: the MatcherService hands in the mutex that
// also guards the keyword index and the session maps, so a compound operation
// sees all three in one consistent state. Exported methods take the lock,
// the unexported ones expect the caller to hold it.
type PairingQueue struct {
	mu    sync.Locker
	items []string
}

// NewPairingQueue creates a queue guarded by mu. A nil mu gets a private mutex.
func NewPairingQueue(mu sync.Locker) *PairingQueue {
	if mu == nil {
		mu = &sync.Mutex{}
	}
	return &PairingQueue{mu: mu}
}

// Enqueue appends userID unless it is already waiting.
func (q *PairingQueue) Enqueue(userID string) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.enqueue(userID)
}

// TryMatch pops the longest-waiting user other than userID.
// The caller is never added to the queue.
func (q *PairingQueue) TryMatch(userID string) (string, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.tryMatch(userID)
}

// Remove drops userID from the queue. Absent users are ignored.
func (q *PairingQueue) Remove(userID string) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.remove(userID)
}

func (q *PairingQueue) WaitingCount() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

func (q *PairingQueue) Contains(userID string) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.indexOf(userID) >= 0
}

func (q *PairingQueue) enqueue(userID string) bool {
	if q.indexOf(userID) >= 0 {
		return false
	}
	q.items = append(q.items, userID)
	return true
}

func (q *PairingQueue) tryMatch(userID string) (string, bool) {
	if len(q.items) == 0 {
		return "", false
	}

	head := q.pop()
	if head != userID {
		return head, true
	}

	// The caller was at the head: put it back at the tail and take the next one.
	q.items = append(q.items, head)
	if len(q.items) == 1 {
		return "", false
	}
	return q.pop(), true
}

func (q *PairingQueue) pop() string {
	head := q.items[0]
	q.items[0] = ""
	q.items = q.items[1:]
	if len(q.items) == 0 {
		q.items = nil
	}
	return head
}

func (q *PairingQueue) remove(userID string) bool {
	i := q.indexOf(userID)
	if i < 0 {
		return false
	}
	q.items = append(q.items[:i], q.items[i+1:]...)
	return true
}

func (q *PairingQueue) indexOf(userID string) int {
	for i, id := range q.items {
		if id == userID {
			return i
		}
	}
	return -1
}

func (q *PairingQueue) size() int {
	return len(q.items)
}
