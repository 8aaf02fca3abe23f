// Package dedupe tracks content hashes across one run so the same
// bytes are kept at most as often as the duplicate policy allows.
package dedupe

import (
	"sort"
	"sync"

	"github.com/KJHJason/Kemono-Harvester-CLI/configs"
)

type Registry struct {
	mode  string
	limit int

	// legacy filename set, kept for log visibility only
	nameMu sync.Mutex
	names  map[string]bool

	hashMu     sync.Mutex
	hashCounts map[string]int
	hashes     map[string]struct{}
	keptPaths  map[string]struct{}
}

func NewRegistry(policy configs.DuplicatePolicy) *Registry {
	return &Registry{
		mode:       policy.Mode,
		limit:      policy.Limit,
		names:      make(map[string]bool),
		hashCounts: make(map[string]int),
		hashes:     make(map[string]struct{}),
		keptPaths:  make(map[string]struct{}),
	}
}

// SeedHashes marks hashes from a restored session as already kept so
// their content is never saved again.
func (r *Registry) SeedHashes(hashes []string) {
	r.hashMu.Lock()
	defer r.hashMu.Unlock()
	for _, h := range hashes {
		r.hashes[h] = struct{}{}
		if r.hashCounts[h] == 0 {
			r.hashCounts[h] = 1
		}
	}
}

// Reserve decides keep-or-skip for the given content hash and, on a
// keep decision, commits the count increment in the same critical
// section so concurrent workers with identical bytes serialize.
func (r *Registry) Reserve(md5Hash string) bool {
	r.hashMu.Lock()
	defer r.hashMu.Unlock()

	count := r.hashCounts[md5Hash]
	switch r.mode {
	case configs.DuplicateHash:
		if count >= 1 {
			return false
		}
	case configs.DuplicateKeepAll:
		if r.limit > 0 && count >= r.limit {
			return false
		}
	}

	r.hashCounts[md5Hash] = count + 1
	r.hashes[md5Hash] = struct{}{}
	return true
}

// Rollback undoes a Reserve whose save failed afterwards.
func (r *Registry) Rollback(md5Hash string) {
	r.hashMu.Lock()
	defer r.hashMu.Unlock()
	if r.hashCounts[md5Hash] > 0 {
		r.hashCounts[md5Hash]--
	}
	if r.hashCounts[md5Hash] == 0 {
		delete(r.hashes, md5Hash)
	}
}

// Count returns how many copies of the hash have been kept.
func (r *Registry) Count(md5Hash string) int {
	r.hashMu.Lock()
	defer r.hashMu.Unlock()
	return r.hashCounts[md5Hash]
}

// Hashes returns the sorted set of kept hashes for session snapshots.
func (r *Registry) Hashes() []string {
	r.hashMu.Lock()
	defer r.hashMu.Unlock()
	hashes := make([]string, 0, len(r.hashes))
	for h := range r.hashes {
		hashes = append(hashes, h)
	}
	sort.Strings(hashes)
	return hashes
}

// ClaimPath reserves a final on-disk path, returning false when another
// worker in this run already claimed it. Claiming before the rename
// keeps two workers with the same filename from resolving to the same
// destination.
func (r *Registry) ClaimPath(absPath string) bool {
	r.hashMu.Lock()
	defer r.hashMu.Unlock()
	if _, taken := r.keptPaths[absPath]; taken {
		return false
	}
	r.keptPaths[absPath] = struct{}{}
	return true
}

// MarkName records a downloaded filename, returning false if it was
// seen before in this run.
func (r *Registry) MarkName(name string) bool {
	r.nameMu.Lock()
	defer r.nameMu.Unlock()
	if r.names[name] {
		return false
	}
	r.names[name] = true
	return true
}
