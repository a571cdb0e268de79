package auctionapi

import (
	"time"

	"github.com/cloudx-io/escrowauction/core"
)

// Request types understood by the auction daemon.
const (
	TypePing          = "ping"
	TypeCreateAuction = "create_auction"
	TypePlaceBid      = "place_bid"
	TypeClaimBid      = "claim_bid"
	TypeRevokeAuction = "revoke_auction"
	TypeGetAuction    = "get_auction"
	TypeListAuctions  = "list_auctions"
	TypeGetBids       = "get_bids"
	TypeBalance       = "balance"
	TypeOwnerOf       = "owner_of"
	TypeMint          = "mint"
	TypeApprove       = "approve"
	TypeFund          = "fund"
	TypeDeposit       = "deposit"
	TypeKeyRequest    = "key_request"
	TypeGetReceipt    = "get_receipt"
)

// Request is the single JSON document a client writes per connection. Only the fields
// relevant to Type are read. Amounts are whole-unit decimal strings ("1.000000000000000001").
type Request struct {
	Type      string `json:"type"`
	RequestID string `json:"request_id,omitempty"`

	AuctionID uint64 `json:"auction_id,omitempty"`

	// Participants
	Seller   string `json:"seller,omitempty"`
	Bidder   string `json:"bidder,omitempty"`
	Caller   string `json:"caller,omitempty"`
	Account  string `json:"account,omitempty"`
	Owner    string `json:"owner,omitempty"`
	Operator string `json:"operator,omitempty"`

	// Asset
	Collection string `json:"collection,omitempty"`
	Item       uint64 `json:"item,omitempty"`

	// Listing terms
	DurationSeconds int64  `json:"duration_seconds,omitempty"`
	ReservePrice    string `json:"reserve_price,omitempty"`
	Description     string `json:"description,omitempty"`

	Amount string `json:"amount,omitempty"`
}

// AuctionView is the wire form of an auction record. Phase is computed at response time.
type AuctionView struct {
	ID            uint64    `json:"id"`
	Seller        string    `json:"seller"`
	Collection    string    `json:"collection"`
	Item          uint64    `json:"item"`
	CreatedAt     time.Time `json:"created_at"`
	EndTime       time.Time `json:"end_time"`
	ReservePrice  string    `json:"reserve_price"`
	Description   string    `json:"description"`
	HighestBid    string    `json:"highest_bid"`
	HighestBidder string    `json:"highest_bidder,omitempty"`
	BidCount      int       `json:"bid_count"`
	Phase         string    `json:"phase"`
}

// NewAuctionView converts a record for the wire, evaluating its phase at now.
func NewAuctionView(rec core.AuctionRecord, now time.Time) AuctionView {
	return AuctionView{
		ID:            rec.ID,
		Seller:        string(rec.Seller),
		Collection:    string(rec.Asset.Collection),
		Item:          rec.Asset.Item,
		CreatedAt:     rec.CreatedAt,
		EndTime:       rec.EndTime,
		ReservePrice:  core.FormatUnits(rec.ReservePrice),
		Description:   rec.Description,
		HighestBid:    core.FormatUnits(rec.HighestBid),
		HighestBidder: string(rec.HighestBidder),
		BidCount:      rec.BidCount,
		Phase:         string(rec.Phase(now)),
	}
}

// BidView is the wire form of an accepted bid.
type BidView struct {
	Bidder   string    `json:"bidder"`
	Amount   string    `json:"amount"`
	PlacedAt time.Time `json:"placed_at"`
}

// NewBidViews converts a bid history for the wire.
func NewBidViews(bids []core.BidEntry) []BidView {
	out := make([]BidView, 0, len(bids))
	for _, b := range bids {
		out = append(out, BidView{Bidder: string(b.Bidder), Amount: core.FormatUnits(b.Amount), PlacedAt: b.PlacedAt})
	}
	return out
}

// Response is returned for every request type except key_request.
// On failure Success is false and Reason carries the taxonomy name (e.g. "AmountError").
type Response struct {
	Type      string `json:"type"`
	RequestID string `json:"request_id,omitempty"`
	Success   bool   `json:"success"`
	Reason    string `json:"reason,omitempty"`
	Message   string `json:"message,omitempty"`

	AuctionID uint64        `json:"auction_id,omitempty"`
	Auction   *AuctionView  `json:"auction,omitempty"`
	Auctions  []AuctionView `json:"auctions,omitempty"`
	Bids      []BidView     `json:"bids,omitempty"`
	Balance   string        `json:"balance,omitempty"`
	Owner     string        `json:"owner,omitempty"`

	Receipt *ReceiptResponse `json:"receipt,omitempty"`
}

// ReceiptResponse carries a signed settlement or revocation receipt.
type ReceiptResponse struct {
	AuctionID         uint64            `json:"auction_id"`
	ReceiptCOSEBase64 ReceiptCOSEBase64 `json:"receipt_cose_base64"`
	PublicKey         string            `json:"public_key"` // PEM format
}

// KeyResponse represents the response to a key_request. AttestationCOSEBase64 is empty when
// the daemon runs outside a Nitro enclave.
type KeyResponse struct {
	Type                  string                `json:"type"`
	PublicKey             string                `json:"public_key"` // PEM format
	KeyAlgorithm          string                `json:"key_algorithm"`
	AttestationCOSEBase64 AttestationCOSEBase64 `json:"attestation_cose_base64,omitempty"`
}

// ReceiptPayload is the CBOR payload signed into a receipt.
type ReceiptPayload struct {
	ReceiptID string     `cbor:"receipt_id" json:"receipt_id"`
	Event     core.Event `cbor:"event" json:"event"`
	AssetHash string     `cbor:"asset_hash" json:"asset_hash"`
	IssuedAt  time.Time  `cbor:"issued_at" json:"issued_at"`
}

// PCRs represents the Platform Configuration Registers from AWS Nitro Enclaves
type PCRs struct {
	// PCR0: Hash of the Enclave Image File (EIF)
	ImageFileHash string `json:"0"`

	// PCR1: Hash of the Linux kernel and initial RAM data (initramfs)
	KernelHash string `json:"1"`

	// PCR2: Hash of user applications, excluding the boot ramfs
	ApplicationHash string `json:"2"`

	// PCR3: Hash of the IAM role assigned to the parent instance
	IAMRoleHash string `json:"3"`

	// PCR4: Hash of the parent instance's ID
	InstanceIDHash string `json:"4"`

	// PCR8: Hash of the enclave image file's signing certificate
	SigningCertHash string `json:"8,omitempty"`
}

// AttestationDoc is the decoded Nitro attestation document, with binary fields rendered
// as hex (PCRs) or base64 (certificates).
type AttestationDoc struct {
	ModuleID        string    `json:"module_id"`
	Timestamp       time.Time `json:"timestamp"`
	DigestAlgorithm string    `json:"digest"`
	PCRs            PCRs      `json:"pcrs"`
	Certificate     string    `json:"certificate"`
	CABundle        []string  `json:"cabundle"`
	PublicKey       string    `json:"public_key"`
	Nonce           string    `json:"nonce"`
}

// KeyAttestationDoc is an attestation over the receipt signing key.
type KeyAttestationDoc struct {
	AttestationDoc
	UserData *KeyAttestationUserData `json:"user_data"`
}

// KeyAttestationUserData is embedded in the attestation user data of a key_request.
type KeyAttestationUserData struct {
	KeyAlgorithm string `json:"key_algorithm"` // "ES256"
	PublicKey    string `json:"public_key"`    // PEM-encoded public key
	Escrow       string `json:"escrow"`        // escrow account the key signs receipts for
}
