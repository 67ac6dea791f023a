package core

import (
	"container/list"
	"fmt"
)

// DBIdempotencyChecker is the cold-path dedup lookup, backed by Postgres.
type DBIdempotencyChecker interface {
	IsDuplicate(opType string, idempotencyKey string) (bool, error)
}

// IdempotencyChecker deduplicates operations with a two-tier lookup: an
// in-memory LRU for recent keys and a database check behind it. A DB error
// conservatively reports "not duplicate" so a storage hiccup cannot stall
// the processor; the unique constraint on the event log is the final guard.
type IdempotencyChecker struct {
	lru       *IdempotencyLRU
	dbChecker DBIdempotencyChecker

	duplicatesLRU int64
	duplicatesDB  int64
	dbErrors      int64
}

func NewIdempotencyChecker(capacity int, dbChecker DBIdempotencyChecker) *IdempotencyChecker {
	return &IdempotencyChecker{
		lru:       NewIdempotencyLRU(capacity),
		dbChecker: dbChecker,
	}
}

func compositeKey(opType, idempotencyKey string) string {
	return fmt.Sprintf("%s:%s", opType, idempotencyKey)
}

// IsDuplicate reports whether the operation was already processed.
func (ic *IdempotencyChecker) IsDuplicate(opType, idempotencyKey string) bool {
	key := compositeKey(opType, idempotencyKey)

	if ic.lru.Contains(key) {
		ic.duplicatesLRU++
		return true
	}

	if ic.dbChecker != nil {
		isDup, err := ic.dbChecker.IsDuplicate(opType, idempotencyKey)
		if err != nil {
			ic.dbErrors++
			return false
		}
		if isDup {
			ic.duplicatesDB++
			ic.lru.Add(key)
			return true
		}
	}

	return false
}

// MarkProcessed records a key after the operation is applied.
func (ic *IdempotencyChecker) MarkProcessed(opType, idempotencyKey string) {
	ic.lru.Add(compositeKey(opType, idempotencyKey))
}

// Stats returns duplicate counts for monitoring.
func (ic *IdempotencyChecker) Stats() (lruHits, dbHits, dbErrors int64) {
	return ic.duplicatesLRU, ic.duplicatesDB, ic.dbErrors
}

// IdempotencyLRU is an LRU cache of processed operation keys.
// Not thread-safe — only accessed from the single-threaded processor.
type IdempotencyLRU struct {
	capacity int
	cache    map[string]*list.Element
	lruList  *list.List

	evictions int64
}

type lruEntry struct {
	key string
}

func NewIdempotencyLRU(capacity int) *IdempotencyLRU {
	return &IdempotencyLRU{
		capacity: capacity,
		cache:    make(map[string]*list.Element, capacity),
		lruList:  list.New(),
	}
}

// Contains reports whether key exists, promoting it to most recently used.
func (lru *IdempotencyLRU) Contains(key string) bool {
	if elem, exists := lru.cache[key]; exists {
		lru.lruList.MoveToFront(elem)
		return true
	}
	return false
}

// Add inserts a key, or promotes it if already present.
func (lru *IdempotencyLRU) Add(key string) {
	if elem, exists := lru.cache[key]; exists {
		lru.lruList.MoveToFront(elem)
		return
	}

	elem := lru.lruList.PushFront(&lruEntry{key: key})
	lru.cache[key] = elem

	if lru.lruList.Len() > lru.capacity {
		lru.evictOldest()
	}
}

func (lru *IdempotencyLRU) evictOldest() {
	elem := lru.lruList.Back()
	if elem != nil {
		lru.lruList.Remove(elem)
		delete(lru.cache, elem.Value.(*lruEntry).key)
		lru.evictions++
	}
}

// WarmFromKeys loads recent composite keys on restart so recently processed
// operations do not fall through to the database.
func (lru *IdempotencyLRU) WarmFromKeys(keys []string) {
	for _, key := range keys {
		if _, exists := lru.cache[key]; exists {
			continue
		}
		lru.cache[key] = lru.lruList.PushFront(&lruEntry{key: key})

		if lru.lruList.Len() > lru.capacity {
			lru.evictOldest()
		}
	}
}

// GetAllKeys returns every cached key, most recent first.
func (lru *IdempotencyLRU) GetAllKeys() []string {
	keys := make([]string, 0, lru.lruList.Len())
	for elem := lru.lruList.Front(); elem != nil; elem = elem.Next() {
		keys = append(keys, elem.Value.(*lruEntry).key)
	}
	return keys
}

// Size returns the current number of entries.
func (lru *IdempotencyLRU) Size() int {
	return lru.lruList.Len()
}

// Evictions returns the total eviction count.
func (lru *IdempotencyLRU) Evictions() int64 {
	return lru.evictions
}
