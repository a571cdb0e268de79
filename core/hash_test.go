package core

import (
	"crypto/sha256"
	"fmt"
	"testing"
	"time"

	"github.com/peterldowns/testy/check"
)

func TestComputeEventHash(t *testing.T) {
	ev := Event{
		Type:      EventBidAdd,
		AuctionID: 1,
		Bidder:    alice,
		Amount:    MustParseUnits("1.000000000000000001"),
		Timestamp: time.Unix(1700000000, 5),
	}

	hash := ComputeEventHash(ev)

	// Verify hash is 64 characters (SHA256 hex encoding)
	check.Equal(t, 64, len(hash))

	// Same inputs should produce same hash (deterministic)
	check.Equal(t, hash, ComputeEventHash(ev))

	// Verify exact hash calculation
	expectedData := fmt.Sprintf("BidAdd|1|0:|%d:%s|0:|0:|0|0|0|1000000000000000001|0:|%d", len(alice), alice, int64(1700000000000000005))
	check.Equal(t, fmt.Sprintf("%x", sha256.Sum256([]byte(expectedData))), hash)
}

func TestComputeEventHash_FieldSensitivity(t *testing.T) {
	base := Event{
		Type:         EventPutToAuction,
		AuctionID:    3,
		Seller:       testSeller,
		Collection:   collection,
		Item:         1,
		Duration:     oneDay,
		ReservePrice: Units(1),
		Description:  "Bored ape Non-Fungible Token",
		Timestamp:    time.Unix(1700000000, 0),
	}
	baseHash := ComputeEventHash(base)

	mutations := map[string]func(ev *Event){
		"auction id":  func(ev *Event) { ev.AuctionID = 4 },
		"seller":      func(ev *Event) { ev.Seller = alice },
		"item":        func(ev *Event) { ev.Item = 2 },
		"duration":    func(ev *Event) { ev.Duration = 2 * oneDay },
		"reserve":     func(ev *Event) { ev.ReservePrice = MustParseUnits("1.000000000000000001") },
		"description": func(ev *Event) { ev.Description = "other" },
		"timestamp":   func(ev *Event) { ev.Timestamp = ev.Timestamp.Add(time.Nanosecond) },
		"type":        func(ev *Event) { ev.Type = EventAuctionRevoked },
	}

	for name, mutate := range mutations {
		t.Run(name, func(t *testing.T) {
			ev := base
			mutate(&ev)
			check.NotEqual(t, baseHash, ComputeEventHash(ev))
		})
	}
}

func TestComputeEventHash_SeparatorInText(t *testing.T) {
	// Moving a "|" between adjacent text fields must not produce the same preimage
	ev1 := Event{Type: EventSettled, AuctionID: 1, Seller: "0xa|0xb", Bidder: "0xc"}
	ev2 := Event{Type: EventSettled, AuctionID: 1, Seller: "0xa", Bidder: "0xb|0xc"}
	check.NotEqual(t, ComputeEventHash(ev1), ComputeEventHash(ev2))

	ev3 := Event{Type: EventPutToAuction, AuctionID: 1, Collection: "0xc|1", Description: "ape"}
	ev4 := Event{Type: EventPutToAuction, AuctionID: 1, Collection: "0xc", Description: "1|ape"}
	check.NotEqual(t, ComputeEventHash(ev3), ComputeEventHash(ev4))
}

func TestComputeEventHash_AmountRepresentation(t *testing.T) {
	// The same value with different internal exponents hashes identically
	ev1 := Event{Type: EventBidAdd, AuctionID: 1, Amount: Units(2)}
	ev2 := Event{Type: EventBidAdd, AuctionID: 1, Amount: MustParseUnits("2.000")}

	check.Equal(t, ComputeEventHash(ev1), ComputeEventHash(ev2))
}

func TestComputeAssetHash(t *testing.T) {
	h1 := ComputeAssetHash(AssetRef{Collection: collection, Item: 1})
	h2 := ComputeAssetHash(AssetRef{Collection: collection, Item: 2})

	check.Equal(t, 64, len(h1))
	check.NotEqual(t, h1, h2)
	check.Equal(t, fmt.Sprintf("%x", sha256.Sum256([]byte(string(collection)+"|1"))), h1)
}
