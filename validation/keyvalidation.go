package validation

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/cloudx-io/escrowauction/auctionapi"
)

// KeyValidationInput contains the inputs for receipt key attestation validation
type KeyValidationInput struct {
	AttestationCOSEBase64 auctionapi.AttestationCOSEBase64 // From KeyResponse.AttestationCOSEBase64
	PublicKey             string                           // PEM, from KeyResponse.PublicKey
	Escrow                string                           // Expected escrow account; empty skips the check
	PCRConfigPath         string                           // Empty uses DefaultPCRConfigPath
}

// ValidateKeyAttestation validates the attestation of a receipt signing key.
//
// Returns:
//   - KeyValidationResult with detailed results (call result.IsValid() to check overall status)
//   - error if validation cannot be performed (e.g., malformed input, missing config)
func ValidateKeyAttestation(input *KeyValidationInput) (*KeyValidationResult, error) {
	coseBytes, err := input.AttestationCOSEBase64.Decode()
	if err != nil {
		return nil, fmt.Errorf("decode COSE bytes: %w", err)
	}

	baseResult, _, userDataBytes, err := validateCommonAttestation(coseBytes, input.PCRConfigPath)
	if err != nil {
		return nil, err
	}

	result := &KeyValidationResult{
		BaseValidationResult: *baseResult,
	}

	var userData auctionapi.KeyAttestationUserData
	if len(userDataBytes) > 0 {
		if err := json.Unmarshal(userDataBytes, &userData); err != nil {
			return nil, fmt.Errorf("parse user data: %w", err)
		}
	}

	if userData.PublicKey == "" {
		result.ValidationDetails = append(result.ValidationDetails, "Public key missing from attestation")
	} else if strings.TrimSpace(input.PublicKey) == strings.TrimSpace(userData.PublicKey) {
		// Trim whitespace from both keys (handles trailing newlines from PEM encoding)
		result.PublicKeyMatch = true
		result.ValidationDetails = append(result.ValidationDetails, fmt.Sprintf("Public key matches attestation (%s)", userData.KeyAlgorithm))
	} else {
		result.ValidationDetails = append(result.ValidationDetails, "Public key mismatch: provided key does not match attested key")
	}

	switch {
	case input.Escrow == "":
		result.EscrowMatch = true
	case input.Escrow == userData.Escrow:
		result.EscrowMatch = true
		result.ValidationDetails = append(result.ValidationDetails, fmt.Sprintf("Escrow account matches attestation: %s", userData.Escrow))
	default:
		result.ValidationDetails = append(result.ValidationDetails, fmt.Sprintf("Escrow mismatch: expected %s, attestation has %s", input.Escrow, userData.Escrow))
	}

	return result, nil
}
