package core

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/fxamacker/cbor/v2"
	"github.com/shopspring/decimal"
)

// entry is the registry's private, lockable slot for one auction.
// mu is held by the engine for the full duration of a transition on this id.
type entry struct {
	mu     sync.Mutex
	record AuctionRecord
	bids   bidLedger
}

// Registry is the durable mapping from auction id to record. It owns the id counter.
// Mutation happens only through the Engine.
type Registry struct {
	mu      sync.RWMutex
	entries map[uint64]*entry
	nextID  uint64
}

// NewRegistry returns an empty registry whose first id is 1.
func NewRegistry() *Registry {
	return &Registry{
		entries: make(map[uint64]*entry),
		nextID:  1,
	}
}

// create stores a new Open record and returns its id.
func (r *Registry) create(seller Account, asset AssetRef, createdAt, endTime time.Time, reserve Amount, description string) AuctionRecord {
	r.mu.Lock()
	defer r.mu.Unlock()

	id := r.nextID
	r.nextID++

	e := &entry{
		record: AuctionRecord{
			ID:           id,
			Seller:       seller,
			Asset:        asset,
			CreatedAt:    createdAt,
			EndTime:      endTime,
			ReservePrice: reserve,
			Description:  description,
			HighestBid:   decimal.Zero,
			Status:       StatusOpen,
		},
	}
	r.entries[id] = e
	return e.record
}

func (r *Registry) lookup(id uint64) (*entry, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.entries[id]
	return e, ok
}

// Get returns a copy of the record for id.
func (r *Registry) Get(id uint64) (AuctionRecord, error) {
	e, ok := r.lookup(id)
	if !ok {
		return AuctionRecord{}, newError(ReasonNotExists, "get", id, nil)
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.record, nil
}

// Bids returns the accepted bids for id in acceptance order.
func (r *Registry) Bids(id uint64) ([]BidEntry, error) {
	e, ok := r.lookup(id)
	if !ok {
		return nil, newError(ReasonNotExists, "bids", id, nil)
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.bids.entries(), nil
}

// List returns every record ordered by id.
func (r *Registry) List() []AuctionRecord {
	r.mu.RLock()
	ids := make([]uint64, 0, len(r.entries))
	for id := range r.entries {
		ids = append(ids, id)
	}
	r.mu.RUnlock()

	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	out := make([]AuctionRecord, 0, len(ids))
	for _, id := range ids {
		if rec, err := r.Get(id); err == nil {
			out = append(out, rec)
		}
	}
	return out
}

// close marks e terminal. The caller must hold e.mu.
func (r *Registry) close(e *entry, final Status) error {
	if e.record.Status.Closed() {
		return newError(ReasonAlreadyClosed, "close", e.record.ID, nil)
	}
	if !final.Closed() {
		return newError(ReasonInvalidInput, "close", e.record.ID, fmt.Errorf("status %q is not terminal", final))
	}
	e.record.Status = final
	return nil
}

// registrySnapshot is the persisted form of a Registry.
type registrySnapshot struct {
	NextID  uint64          `cbor:"next_id"`
	Records []AuctionRecord `cbor:"records"`
	Bids    [][]BidEntry    `cbor:"bids"`
}

var snapshotEncMode = func() cbor.EncMode {
	em, err := cbor.EncOptions{Time: cbor.TimeRFC3339Nano, Sort: cbor.SortCanonical}.EncMode()
	if err != nil {
		panic(fmt.Sprintf("cbor enc mode: %v", err))
	}
	return em
}()

// Snapshot encodes the full registry as CBOR.
func (r *Registry) Snapshot() ([]byte, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ids := make([]uint64, 0, len(r.entries))
	for id := range r.entries {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	snap := registrySnapshot{
		NextID:  r.nextID,
		Records: make([]AuctionRecord, 0, len(ids)),
		Bids:    make([][]BidEntry, 0, len(ids)),
	}
	for _, id := range ids {
		e := r.entries[id]
		e.mu.Lock()
		snap.Records = append(snap.Records, e.record)
		snap.Bids = append(snap.Bids, e.bids.entries())
		e.mu.Unlock()
	}

	data, err := snapshotEncMode.Marshal(snap)
	if err != nil {
		return nil, fmt.Errorf("failed to encode registry snapshot: %w", err)
	}
	return data, nil
}

// Restore replaces the registry contents with a snapshot. The id counter never moves
// backwards, neither below the snapshot's counter nor below the live one.
func (r *Registry) Restore(data []byte) error {
	var snap registrySnapshot
	if err := cbor.Unmarshal(data, &snap); err != nil {
		return fmt.Errorf("failed to decode registry snapshot: %w", err)
	}
	if len(snap.Bids) != len(snap.Records) {
		return fmt.Errorf("corrupt registry snapshot: %d records, %d bid histories", len(snap.Records), len(snap.Bids))
	}

	entries := make(map[uint64]*entry, len(snap.Records))
	next := snap.NextID
	if next == 0 {
		next = 1
	}
	for i, rec := range snap.Records {
		if _, dup := entries[rec.ID]; dup || rec.ID == 0 {
			return fmt.Errorf("corrupt registry snapshot: invalid or duplicate id %d", rec.ID)
		}
		e := &entry{record: rec}
		e.bids.history = snap.Bids[i]
		if rec.HighestBidder != "" {
			e.bids.bidder = rec.HighestBidder
			e.bids.highest = rec.HighestBid
		}
		entries[rec.ID] = e
		if rec.ID >= next {
			next = rec.ID + 1
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = entries
	if next > r.nextID {
		r.nextID = next
	}
	return nil
}
