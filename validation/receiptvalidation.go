package validation

import (
	"fmt"

	"github.com/cloudx-io/escrowauction/auctionapi"
	"github.com/cloudx-io/escrowauction/core"
	"github.com/cloudx-io/escrowauction/receipt"
)

// ReceiptValidationInput contains all inputs needed to validate a receipt
type ReceiptValidationInput struct {
	ReceiptCOSEBase64 auctionapi.ReceiptCOSEBase64
	PublicKey         string         // PEM receipt key, from a key_request
	AuctionID         uint64         // Expected auction id
	ExpectedType      core.EventType // Settled or AuctionRevoked
	Winner            string         // Expected winner for Settled receipts; empty skips the check
	Amount            string         // Expected whole-unit price for Settled receipts; empty skips the check
}

// ValidateReceipt verifies a settlement or revocation receipt:
// - Signature matches the receipt key
// - Event hash matches the signed event fields
// - Asset hash matches the signed asset
// - Auction id, outcome and amount match expectations
//
// Returns:
//   - ReceiptValidationResult with detailed results (call result.IsValid() to check overall status)
//   - error if validation cannot be performed (e.g., malformed input)
func ValidateReceipt(input *ReceiptValidationInput) (*ReceiptValidationResult, error) {
	receiptBytes, err := input.ReceiptCOSEBase64.Decode()
	if err != nil {
		return nil, err
	}

	publicKey, err := receipt.ParsePublicKeyPEM(input.PublicKey)
	if err != nil {
		return nil, fmt.Errorf("receipt public key: %w", err)
	}

	payload, err := receiptBytes.Payload()
	if err != nil {
		return nil, err
	}

	result := &ReceiptValidationResult{
		ValidationDetails: []string{},
	}

	if err := VerifyReceiptSignature(receiptBytes, publicKey); err != nil {
		result.ValidationDetails = append(result.ValidationDetails, fmt.Sprintf("Receipt signature verification failed: %v", err))
	} else {
		result.SignatureValid = true
		result.ValidationDetails = append(result.ValidationDetails, fmt.Sprintf("Receipt signature verified (receipt %s)", payload.ReceiptID))
	}

	result.EventHashValid = validateEventHash(payload, result)
	result.AssetHashValid = validateAssetHash(payload, result)
	result.AuctionIDValid = validateAuctionID(input, payload, result)
	result.OutcomeValid = validateOutcome(input, payload, result)
	result.AmountValid = validateAmount(input, payload, result)

	return result, nil
}

func validateEventHash(payload *auctionapi.ReceiptPayload, result *ReceiptValidationResult) bool {
	computed := core.ComputeEventHash(payload.Event)
	if computed == payload.Event.Hash {
		result.ValidationDetails = append(result.ValidationDetails, fmt.Sprintf("Event hash validation passed: %s", computed))
		return true
	}
	result.ValidationDetails = append(result.ValidationDetails, fmt.Sprintf("Event hash mismatch: computed %s, receipt has %s", computed, payload.Event.Hash))
	return false
}

func validateAssetHash(payload *auctionapi.ReceiptPayload, result *ReceiptValidationResult) bool {
	asset := core.AssetRef{Collection: payload.Event.Collection, Item: payload.Event.Item}
	computed := core.ComputeAssetHash(asset)
	if computed == payload.AssetHash {
		result.ValidationDetails = append(result.ValidationDetails, fmt.Sprintf("Asset hash validation passed for %s", asset))
		return true
	}
	result.ValidationDetails = append(result.ValidationDetails, fmt.Sprintf("Asset hash mismatch for %s", asset))
	return false
}

func validateAuctionID(input *ReceiptValidationInput, payload *auctionapi.ReceiptPayload, result *ReceiptValidationResult) bool {
	if input.AuctionID == payload.Event.AuctionID {
		result.ValidationDetails = append(result.ValidationDetails, fmt.Sprintf("Auction id validation passed: %d", input.AuctionID))
		return true
	}
	result.ValidationDetails = append(result.ValidationDetails, fmt.Sprintf("Auction id mismatch: expected %d, receipt has %d", input.AuctionID, payload.Event.AuctionID))
	return false
}

func validateOutcome(input *ReceiptValidationInput, payload *auctionapi.ReceiptPayload, result *ReceiptValidationResult) bool {
	ev := payload.Event
	if ev.Type != core.EventSettled && ev.Type != core.EventAuctionRevoked {
		result.ValidationDetails = append(result.ValidationDetails, fmt.Sprintf("Receipt event %s is not terminal", ev.Type))
		return false
	}
	if input.ExpectedType != "" && input.ExpectedType != ev.Type {
		result.ValidationDetails = append(result.ValidationDetails, fmt.Sprintf("Outcome mismatch: expected %s, receipt has %s", input.ExpectedType, ev.Type))
		return false
	}

	if ev.Type == core.EventAuctionRevoked {
		result.ValidationDetails = append(result.ValidationDetails, fmt.Sprintf("Outcome validation passed: revoked, asset returned to %s", ev.Seller))
		return true
	}

	if input.Winner != "" && input.Winner != string(ev.Winner) {
		result.ValidationDetails = append(result.ValidationDetails, fmt.Sprintf("Winner mismatch: expected %s, receipt has %s", input.Winner, ev.Winner))
		return false
	}
	result.ValidationDetails = append(result.ValidationDetails, fmt.Sprintf("Outcome validation passed: settled to %s", ev.Winner))
	return true
}

func validateAmount(input *ReceiptValidationInput, payload *auctionapi.ReceiptPayload, result *ReceiptValidationResult) bool {
	if input.Amount == "" || payload.Event.Type != core.EventSettled {
		return true
	}

	expected, err := core.ParseUnits(input.Amount)
	if err != nil {
		result.ValidationDetails = append(result.ValidationDetails, fmt.Sprintf("Expected amount invalid: %v", err))
		return false
	}
	if expected.Equal(payload.Event.Amount) {
		result.ValidationDetails = append(result.ValidationDetails, fmt.Sprintf("Amount validation passed: %s", core.FormatUnits(expected)))
		return true
	}
	result.ValidationDetails = append(result.ValidationDetails, fmt.Sprintf("Amount mismatch: expected %s, receipt has %s", core.FormatUnits(expected), core.FormatUnits(payload.Event.Amount)))
	return false
}
