// internal/services/locks.go
package services

import (
	"sync"

	"github.com/google/uuid"
)

// AffiliateLocks serializes balance-touching operations per affiliate.
// Cross-affiliate operations stay independent. Locks are never released from
// the map; the affiliate population is small enough that this does not matter.
type AffiliateLocks struct {
	mtx   sync.Mutex
	locks map[uuid.UUID]*sync.Mutex
}

func NewAffiliateLocks() *AffiliateLocks {
	return &AffiliateLocks{locks: make(map[uuid.UUID]*sync.Mutex)}
}

func (l *AffiliateLocks) get(affiliateID uuid.UUID) *sync.Mutex {
	l.mtx.Lock()
	defer l.mtx.Unlock()

	m, exists := l.locks[affiliateID]
	if !exists {
		m = &sync.Mutex{}
		l.locks[affiliateID] = m
	}
	return m
}

// Lock acquires the per-affiliate mutex and returns the unlock function.
func (l *AffiliateLocks) Lock(affiliateID uuid.UUID) func() {
	m := l.get(affiliateID)
	m.Lock()
	return m.Unlock
}
