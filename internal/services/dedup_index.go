package services

import "sync"

// DedupIndex is the in-memory set of drive file ids already present in the catalog.
// It is loaded once per run. The catalog's unique constraint remains the authority.
type DedupIndex struct {
	mu       sync.Mutex
	synced   map[string]struct{}
	inFlight map[string]struct{}
}

// NewDedupIndex creates an index seeded with ids
func NewDedupIndex(ids []string) *DedupIndex {
	synced := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		synced[id] = struct{}{}
	}
	return &DedupIndex{
		synced:   synced,
		inFlight: make(map[string]struct{}),
	}
}

// Contains reports whether id has been synced
func (d *DedupIndex) Contains(id string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	_, ok := d.synced[id]
	return ok
}

// Reserve claims id for transfer. It returns false when id is already synced
// or another worker holds it.
func (d *DedupIndex) Reserve(id string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.synced[id]; ok {
		return false
	}
	if _, ok := d.inFlight[id]; ok {
		return false
	}
	d.inFlight[id] = struct{}{}
	return true
}

// Release drops a reservation after a failed transfer so a later run can retry
func (d *DedupIndex) Release(id string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.inFlight, id)
}

// Record marks id as synced and clears any reservation
func (d *DedupIndex) Record(id string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.inFlight, id)
	d.synced[id] = struct{}{}
}

// Len returns the number of synced ids
func (d *DedupIndex) Len() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.synced)
}
