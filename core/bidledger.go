package core

import "time"

// BidMeetsReserve returns true if the bid is at least the reserve price.
func BidMeetsReserve(bid, reserve Amount) bool {
	return bid.GreaterThanOrEqual(reserve)
}

// Outbids returns true if bid strictly exceeds the current highest bid.
func Outbids(bid, highest Amount) bool {
	return bid.GreaterThan(highest)
}

// bidLedger tracks the leading bid of one auction and the accepted history.
// It holds no lock of its own; the owning record's mutex serializes access.
type bidLedger struct {
	highest Amount
	bidder  Account
	history []BidEntry
}

// check validates amount against the ledger without changing it.
// The first bid must meet the reserve; later bids must strictly exceed the leader.
func (l *bidLedger) check(amount, reserve Amount) error {
	if l.bidder == "" {
		if !BidMeetsReserve(amount, reserve) {
			return ErrAmountError
		}
		return nil
	}
	if !Outbids(amount, l.highest) {
		return ErrAmountError
	}
	return nil
}

// outgoing returns the bidder and amount that must be refunded when a new bid is accepted.
func (l *bidLedger) outgoing() (Account, Amount, bool) {
	if l.bidder == "" {
		return "", Amount{}, false
	}
	return l.bidder, l.highest, true
}

func (l *bidLedger) accept(bidder Account, amount Amount, at time.Time) {
	l.highest = amount
	l.bidder = bidder
	l.history = append(l.history, BidEntry{Bidder: bidder, Amount: amount, PlacedAt: at})
}

func (l *bidLedger) entries() []BidEntry {
	out := make([]BidEntry, len(l.history))
	copy(out, l.history)
	return out
}
