package chathub

import (
	"sync"

	"pairchat/backend/internal/keywords"
	"pairchat/backend/internal/models"
)

// KeywordMatch is the result of a successful keyword lookup.
type KeywordMatch struct {
	UserID  string
	Profile models.Profile // profile of the matched user
	Score   float64
	Overlap int
}

// KeywordIndex maps keywords to the users waiting with them and keeps the
// profile each waiting user registered with. A user appears in a bucket only
// while its profile is stored.
type KeywordIndex struct {
	mu sync.Locker

	// MinSimilarity is the lowest Jaccard score TryKeywordMatch accepts.
	MinSimilarity float64

	buckets  map[string][]string
	profiles map[string]models.Profile
}

// NewKeywordIndex creates an index guarded by mu. A nil mu gets a private mutex.
func NewKeywordIndex(mu sync.Locker, minSimilarity float64) *KeywordIndex {
	if mu == nil {
		mu = &sync.Mutex{}
	}
	return &KeywordIndex{
		mu:            mu,
		MinSimilarity: minSimilarity,
		buckets:       make(map[string][]string),
		profiles:      make(map[string]models.Profile),
	}
}

// AddWithProfile stores profile for userID and files the user under each of its keywords.
// A previous registration of the same user is replaced.
func (ix *KeywordIndex) AddWithProfile(userID string, profile models.Profile) {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	ix.addWithProfile(userID, profile)
}

// TryKeywordMatch finds the waiting user sharing the most keywords with profile.
// On success both users are removed from the index.
func (ix *KeywordIndex) TryKeywordMatch(userID string, profile models.Profile) (KeywordMatch, bool) {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	return ix.tryKeywordMatch(userID, profile, ix.MinSimilarity)
}

// RemoveUser drops userID from every bucket and returns the profile it was stored with.
func (ix *KeywordIndex) RemoveUser(userID string) (models.Profile, bool) {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	return ix.removeUser(userID)
}

func (ix *KeywordIndex) Profile(userID string) (models.Profile, bool) {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	p, ok := ix.profiles[userID]
	return p, ok
}

// Len returns the number of users in the index.
func (ix *KeywordIndex) Len() int {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	return len(ix.profiles)
}

// Bucket returns a copy of the users filed under keyword.
func (ix *KeywordIndex) Bucket(keyword string) []string {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	return append([]string(nil), ix.buckets[keyword]...)
}

func (ix *KeywordIndex) BucketCount() int {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	return len(ix.buckets)
}

func (ix *KeywordIndex) addWithProfile(userID string, profile models.Profile) {
	ix.removeUser(userID)
	ix.profiles[userID] = profile
	for _, kw := range profile.Keywords {
		if !containsID(ix.buckets[kw], userID) {
			ix.buckets[kw] = append(ix.buckets[kw], userID)
		}
	}
}

func (ix *KeywordIndex) tryKeywordMatch(userID string, profile models.Profile, minSimilarity float64) (KeywordMatch, bool) {
	if len(profile.Keywords) == 0 {
		return KeywordMatch{}, false
	}

	// Tally shared keywords per candidate; order keeps first-seen for ties.
	tally := make(map[string]int)
	var order []string
	seen := make(map[string]struct{}, len(profile.Keywords))
	for _, kw := range profile.Keywords {
		if _, dup := seen[kw]; dup {
			continue
		}
		seen[kw] = struct{}{}
		for _, candidate := range ix.buckets[kw] {
			if candidate == userID {
				continue
			}
			if tally[candidate] == 0 {
				order = append(order, candidate)
			}
			tally[candidate]++
		}
	}
	if len(order) == 0 {
		return KeywordMatch{}, false
	}

	best := order[0]
	for _, candidate := range order[1:] {
		if tally[candidate] > tally[best] {
			best = candidate
		}
	}

	matched := ix.profiles[best]
	score := keywords.Score(profile.Keywords, matched.Keywords)
	if score < minSimilarity {
		return KeywordMatch{}, false
	}

	ix.removeUser(userID)
	ix.removeUser(best)

	return KeywordMatch{
		UserID:  best,
		Profile: matched,
		Score:   score,
		Overlap: tally[best],
	}, true
}

func (ix *KeywordIndex) removeUser(userID string) (models.Profile, bool) {
	profile, ok := ix.profiles[userID]
	if !ok {
		return models.Profile{}, false
	}
	delete(ix.profiles, userID)

	for _, kw := range profile.Keywords {
		bucket := ix.buckets[kw]
		for i, id := range bucket {
			if id == userID {
				bucket = append(bucket[:i], bucket[i+1:]...)
				break
			}
		}
		if len(bucket) == 0 {
			delete(ix.buckets, kw)
		} else {
			ix.buckets[kw] = bucket
		}
	}
	return profile, true
}

func (ix *KeywordIndex) contains(userID string) bool {
	_, ok := ix.profiles[userID]
	return ok
}

func containsID(ids []string, userID string) bool {
	for _, id := range ids {
		if id == userID {
			return true
		}
	}
	return false
}
