package core

import (
	"log"
	"sync"
	"time"
)

// EventType names a notification emitted on a state change.
type EventType string

const (
	EventPutToAuction   EventType = "PutToAuction"
	EventBidAdd         EventType = "BidAdd"
	EventSettled        EventType = "Settled"
	EventAuctionRevoked EventType = "AuctionRevoked"
)

// Event is the notification contract for external observers (indexers, UIs).
// Fields not relevant to a given Type are left empty.
type Event struct {
	Type         EventType     `json:"type" cbor:"type"`
	AuctionID    uint64        `json:"auction_id" cbor:"auction_id"`
	Seller       Account       `json:"seller,omitempty" cbor:"seller,omitempty"`
	Bidder       Account       `json:"bidder,omitempty" cbor:"bidder,omitempty"`
	Winner       Account       `json:"winner,omitempty" cbor:"winner,omitempty"`
	Collection   Account       `json:"collection,omitempty" cbor:"collection,omitempty"`
	Item         uint64        `json:"item,omitempty" cbor:"item,omitempty"`
	Duration     time.Duration `json:"duration,omitempty" cbor:"duration,omitempty"`
	ReservePrice Amount        `json:"reserve_price" cbor:"reserve_price"`
	Description  string        `json:"description,omitempty" cbor:"description,omitempty"`
	Amount       Amount        `json:"amount" cbor:"amount"`
	Timestamp    time.Time     `json:"timestamp" cbor:"timestamp"`
	Hash         string        `json:"hash" cbor:"hash"`
}

// Notifier receives events after the transition that produced them has committed.
// Implementations must not call back into the Engine synchronously.
type Notifier interface {
	Notify(ev Event)
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(ev Event)

func (f NotifierFunc) Notify(ev Event) { f(ev) }

// MultiNotifier fans an event out to every notifier in order.
type MultiNotifier []Notifier

func (m MultiNotifier) Notify(ev Event) {
	for _, n := range m {
		if n != nil {
			n.Notify(ev)
		}
	}
}

// RecordingNotifier keeps every event in memory.
type RecordingNotifier struct {
	mu     sync.Mutex
	events []Event
}

func (r *RecordingNotifier) Notify(ev Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
}

// Events returns a copy of the recorded events, optionally filtered by auction id (0 = all).
func (r *RecordingNotifier) Events(auctionID uint64) []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Event, 0, len(r.events))
	for _, ev := range r.events {
		if auctionID == 0 || ev.AuctionID == auctionID {
			out = append(out, ev)
		}
	}
	return out
}

// Last returns the most recent event, if any.
func (r *RecordingNotifier) Last() (Event, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.events) == 0 {
		return Event{}, false
	}
	return r.events[len(r.events)-1], true
}

// LogNotifier writes one log line per event.
type LogNotifier struct{}

func (LogNotifier) Notify(ev Event) {
	switch ev.Type {
	case EventPutToAuction:
		log.Printf("INFO: PutToAuction id=%d seller=%s asset=%s#%d duration=%s reserve=%s",
			ev.AuctionID, ev.Seller, ev.Collection, ev.Item, ev.Duration, FormatUnits(ev.ReservePrice))
	case EventBidAdd:
		log.Printf("INFO: BidAdd id=%d bidder=%s amount=%s", ev.AuctionID, ev.Bidder, FormatUnits(ev.Amount))
	case EventSettled:
		log.Printf("INFO: Settled id=%d winner=%s seller=%s amount=%s", ev.AuctionID, ev.Winner, ev.Seller, FormatUnits(ev.Amount))
	case EventAuctionRevoked:
		log.Printf("INFO: AuctionRevoked id=%d seller=%s asset=%s#%d", ev.AuctionID, ev.Seller, ev.Collection, ev.Item)
	default:
		log.Printf("WARNING: Unknown event type %q for auction %d", ev.Type, ev.AuctionID)
	}
}
