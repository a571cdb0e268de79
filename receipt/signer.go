package receipt

import (
	"crypto/rand"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/veraison/go-cose"

	"github.com/cloudx-io/escrowauction/auctionapi"
	"github.com/cloudx-io/escrowauction/core"
)

// Signer turns events into signed receipts.
type Signer struct {
	keys *KeyManager
	now  func() time.Time
}

// NewSigner returns a Signer using the key held by km.
func NewSigner(km *KeyManager) *Signer {
	return &Signer{keys: km, now: func() time.Time { return time.Now().UTC() }}
}

// Sign builds the receipt payload for ev and signs it as a tagged COSE_Sign1 message.
// The event must already carry its hash.
func (s *Signer) Sign(ev core.Event) (auctionapi.ReceiptCOSE, error) {
	if ev.Hash == "" {
		return nil, fmt.Errorf("event for auction %d has no hash", ev.AuctionID)
	}

	payload := auctionapi.ReceiptPayload{
		ReceiptID: uuid.NewString(),
		Event:     ev,
		AssetHash: core.ComputeAssetHash(core.AssetRef{Collection: ev.Collection, Item: ev.Item}),
		IssuedAt:  s.now(),
	}
	payloadBytes, err := auctionapi.EncodeReceiptPayload(payload)
	if err != nil {
		return nil, err
	}

	signer, err := s.keys.signer()
	if err != nil {
		return nil, err
	}

	msg := cose.NewSign1Message()
	msg.Headers.Protected.SetAlgorithm(cose.AlgorithmES256)
	msg.Payload = payloadBytes
	if err := msg.Sign(rand.Reader, nil, signer); err != nil {
		return nil, fmt.Errorf("sign receipt: %w", err)
	}

	data, err := msg.MarshalCBOR()
	if err != nil {
		return nil, fmt.Errorf("marshal receipt: %w", err)
	}
	return auctionapi.ReceiptCOSE(data), nil
}
