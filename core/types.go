package core

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Account identifies a participant (seller, bidder, escrow). Identities are opaque and
// compared byte-for-byte.
type Account string

// Amount is an integral number of base units (18 decimals per whole unit).
type Amount = decimal.Decimal

// AssetRef identifies a single non-fungible item within a collection.
type AssetRef struct {
	Collection Account `json:"collection" cbor:"collection"`
	Item       uint64  `json:"item" cbor:"item"`
}

func (a AssetRef) String() string {
	return fmt.Sprintf("%s#%d", a.Collection, a.Item)
}

// Status is the stored lifecycle state of an auction record.
// Ended is never stored; see AuctionRecord.Phase.
type Status string

const (
	StatusOpen    Status = "Open"
	StatusEnded   Status = "Ended"
	StatusSettled Status = "Settled"
	StatusRevoked Status = "Revoked"
)

// Closed reports whether the status is terminal.
func (s Status) Closed() bool {
	return s == StatusSettled || s == StatusRevoked
}

// AuctionRecord is the durable state of one listing.
type AuctionRecord struct {
	ID            uint64    `json:"id" cbor:"id"`
	Seller        Account   `json:"seller" cbor:"seller"`
	Asset         AssetRef  `json:"asset" cbor:"asset"`
	CreatedAt     time.Time `json:"created_at" cbor:"created_at"`
	EndTime       time.Time `json:"end_time" cbor:"end_time"`
	ReservePrice  Amount    `json:"reserve_price" cbor:"reserve_price"`
	Description   string    `json:"description" cbor:"description"`
	HighestBid    Amount    `json:"highest_bid" cbor:"highest_bid"`
	HighestBidder Account   `json:"highest_bidder,omitempty" cbor:"highest_bidder,omitempty"`
	BidCount      int       `json:"bid_count" cbor:"bid_count"`
	Status        Status    `json:"status" cbor:"status"`
}

// HasBid reports whether at least one bid was accepted.
func (r AuctionRecord) HasBid() bool {
	return r.HighestBidder != "" && r.HighestBid.IsPositive()
}

// Ended reports whether bidding is closed at now. It is recomputed on every call.
func (r AuctionRecord) Ended(now time.Time) bool {
	return !now.Before(r.EndTime)
}

// Phase returns the effective state at now: the stored terminal status if closed,
// otherwise Open or Ended depending on the clock.
func (r AuctionRecord) Phase(now time.Time) Status {
	if r.Status.Closed() {
		return r.Status
	}
	if r.Ended(now) {
		return StatusEnded
	}
	return StatusOpen
}

// BidEntry is one accepted bid in acceptance order.
type BidEntry struct {
	Bidder   Account   `json:"bidder" cbor:"bidder"`
	Amount   Amount    `json:"amount" cbor:"amount"`
	PlacedAt time.Time `json:"placed_at" cbor:"placed_at"`
}

// Clock supplies the current time. Injected so tests can advance time deterministically.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now().UTC() }

// SystemClock is the wall clock used when no Clock is configured.
var SystemClock Clock = systemClock{}
