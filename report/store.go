package report

import (
	"sync"
	"sync/atomic"

	"github.com/syncwatch/syncwatch/types"
)

// Store keeps the most recent fleet report for readers while the next scan
// runs.
type Store struct {
	mtx      sync.RWMutex
	latest   *types.FleetReport
	scanning atomic.Bool
}

func NewStore() *Store {
	return &Store{}
}

func (s *Store) Set(r *types.FleetReport) {
	s.mtx.Lock()
	defer s.mtx.Unlock()
	s.latest = r
}

// Latest returns the last stored report, or false before the first scan
// has finished.
func (s *Store) Latest() (*types.FleetReport, bool) {
	s.mtx.RLock()
	defer s.mtx.RUnlock()
	return s.latest, s.latest != nil
}

func (s *Store) SetScanning(scanning bool) {
	s.scanning.Store(scanning)
}

func (s *Store) Scanning() bool {
	return s.scanning.Load()
}
