package receipt

import (
	"log"
	"sync"

	"github.com/cloudx-io/escrowauction/auctionapi"
	"github.com/cloudx-io/escrowauction/core"
)

// Notifier is a core.Notifier that signs a receipt for every Settled and AuctionRevoked
// event and keeps it for retrieval by auction id.
type Notifier struct {
	signer *Signer

	mu       sync.RWMutex
	receipts map[uint64]auctionapi.ReceiptCOSE
}

// NewNotifier returns a Notifier signing with km.
func NewNotifier(km *KeyManager) *Notifier {
	return &Notifier{
		signer:   NewSigner(km),
		receipts: make(map[uint64]auctionapi.ReceiptCOSE),
	}
}

func (n *Notifier) Notify(ev core.Event) {
	if ev.Type != core.EventSettled && ev.Type != core.EventAuctionRevoked {
		return
	}

	receipt, err := n.signer.Sign(ev)
	if err != nil {
		log.Printf("ERROR: Failed to sign %s receipt for auction %d: %v", ev.Type, ev.AuctionID, err)
		return
	}

	n.mu.Lock()
	n.receipts[ev.AuctionID] = receipt
	n.mu.Unlock()

	log.Printf("INFO: Signed %s receipt for auction %d (%d bytes)", ev.Type, ev.AuctionID, len(receipt))
}

// Get returns the receipt of a closed auction.
func (n *Notifier) Get(auctionID uint64) (auctionapi.ReceiptCOSE, bool) {
	n.mu.RLock()
	defer n.mu.RUnlock()
	r, ok := n.receipts[auctionID]
	return r, ok
}
