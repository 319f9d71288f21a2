package ledger

import (
	"hash/fnv"
	"sync"
)

const lockShards = 64

type userLock struct {
	mu   sync.Mutex
	refs int // guarded by the owning shard's mu
}

type lockShard struct {
	mu    sync.Mutex
	locks map[string]*userLock
}

// userLocks serializes operations per user id. Users are spread across
// shards by FNV-1a hash so unrelated users never contend on the table
// itself, and idle entries are dropped once nobody holds or waits on them.
type userLocks struct {
	shards [lockShards]lockShard
}

func newUserLocks() *userLocks {
	l := &userLocks{}
	for i := range l.shards {
		l.shards[i].locks = make(map[string]*userLock)
	}
	return l
}

func (l *userLocks) shardOf(userID string) *lockShard {
	h := fnv.New32a()
	_, _ = h.Write([]byte(userID))
	return &l.shards[h.Sum32()%lockShards]
}

// lock blocks until userID is held and returns the matching unlock
func (l *userLocks) lock(userID string) (unlock func()) {
	sh := l.shardOf(userID)

	sh.mu.Lock()
	ul, ok := sh.locks[userID]
	if !ok {
		ul = &userLock{}
		sh.locks[userID] = ul
	}
	ul.refs++
	sh.mu.Unlock()

	ul.mu.Lock()

	return func() {
		ul.mu.Unlock()

		sh.mu.Lock()
		ul.refs--
		if ul.refs == 0 {
			delete(sh.locks, userID)
		}
		sh.mu.Unlock()
	}
}

// size returns the number of live entries, for tests
func (l *userLocks) size() int {
	n := 0
	for i := range l.shards {
		sh := &l.shards[i]
		sh.mu.Lock()
		n += len(sh.locks)
		sh.mu.Unlock()
	}
	return n
}
