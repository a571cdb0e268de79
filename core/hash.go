package core

import (
	"crypto/sha256"
	"fmt"
	"time"
)

// ComputeEventHash computes the canonical hash of an event.
// Used by the engine (to stamp events) and by receipt validation (to verify them).
//
// Formula: SHA256(type|auction_id|seller|bidder|winner|collection|item|duration_s|reserve|amount|description|unix_nanos)
//
// Accounts and the description are free text and are written as len:value, so a "|" inside
// them cannot shift content into a neighbouring field. Amounts are rendered as integer base
// units and the duration in whole seconds, so the hash does not depend on how decimals or
// durations are represented in memory.
func ComputeEventHash(ev Event) string {
	data := fmt.Sprintf("%s|%d|%s|%s|%s|%s|%d|%d|%s|%s|%s|%d",
		ev.Type,
		ev.AuctionID,
		lengthPrefixed(string(ev.Seller)),
		lengthPrefixed(string(ev.Bidder)),
		lengthPrefixed(string(ev.Winner)),
		lengthPrefixed(string(ev.Collection)),
		ev.Item,
		int64(ev.Duration/time.Second),
		ev.ReservePrice.StringFixed(0),
		ev.Amount.StringFixed(0),
		lengthPrefixed(ev.Description),
		ev.Timestamp.UnixNano(),
	)
	hash := sha256.Sum256([]byte(data))
	return fmt.Sprintf("%x", hash)
}

func lengthPrefixed(s string) string {
	return fmt.Sprintf("%d:%s", len(s), s)
}

// ComputeAssetHash computes a short, stable identifier for an asset reference.
//
// Formula: SHA256(collection + "|" + item). The item is numeric and last, so the split
// is unambiguous.
func ComputeAssetHash(asset AssetRef) string {
	data := fmt.Sprintf("%s|%d", asset.Collection, asset.Item)
	hash := sha256.Sum256([]byte(data))
	return fmt.Sprintf("%x", hash)
}
