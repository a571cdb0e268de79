package receipt

import (
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log"

	enclave "github.com/edgebitio/nitro-enclaves-sdk-go"

	"github.com/cloudx-io/escrowauction/auctionapi"
	"github.com/cloudx-io/escrowauction/core"
)

// Attester produces Nitro attestation documents. *enclave.EnclaveHandle implements it.
type Attester interface {
	Attest(options enclave.AttestationOptions) ([]byte, error)
}

// NitroAttester returns the NSM handle, or an error outside a Nitro enclave.
func NitroAttester() (Attester, error) {
	handle, err := enclave.GetOrInitializeHandle()
	if err != nil {
		return nil, fmt.Errorf("NSM not available: %w", err)
	}
	return handle, nil
}

func generateNonce() (string, error) {
	randomBytes := make([]byte, 32) // 256 bits of entropy
	if _, err := rand.Read(randomBytes); err != nil {
		return "", fmt.Errorf("failed to generate secure nonce - %w", err)
	}
	return hex.EncodeToString(randomBytes), nil
}

// GenerateKeyAttestation binds the receipt public key and escrow account into an attestation
// document, so verifiers can tie receipts to a measured enclave image.
func GenerateKeyAttestation(attester Attester, km *KeyManager, escrow core.Account) (auctionapi.AttestationCOSE, error) {
	if attester == nil {
		return nil, fmt.Errorf("enclave attester is nil")
	}

	publicKeyPEM, err := km.PublicKeyPEM()
	if err != nil {
		return nil, fmt.Errorf("failed to convert public key to PEM: %w", err)
	}

	userDataBytes, err := json.Marshal(&auctionapi.KeyAttestationUserData{
		KeyAlgorithm: KeyAlgorithm,
		PublicKey:    publicKeyPEM,
		Escrow:       string(escrow),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal key user data: %w", err)
	}

	nonce, err := generateNonce()
	if err != nil {
		return nil, fmt.Errorf("failed to generate attestation nonce: %w", err)
	}

	attestationCBOR, err := attester.Attest(enclave.AttestationOptions{
		UserData: userDataBytes,
		Nonce:    []byte(nonce),
	})
	if err != nil {
		log.Printf("ERROR: NSM key attestation failed: %v", err)
		return nil, fmt.Errorf("NSM key attestation failed: %w", err)
	}

	log.Printf("INFO: Key attestation generated: %d bytes", len(attestationCBOR))

	return auctionapi.AttestationCOSE(attestationCBOR), nil
}

// HandleKeyRequest returns the receipt public key, attested when an attester is available.
func HandleKeyRequest(attester Attester, km *KeyManager, escrow core.Account) (*auctionapi.KeyResponse, error) {
	publicKeyPEM, err := km.PublicKeyPEM()
	if err != nil {
		return nil, fmt.Errorf("failed to export public key: %w", err)
	}

	resp := &auctionapi.KeyResponse{
		Type:         "key_response",
		PublicKey:    publicKeyPEM,
		KeyAlgorithm: KeyAlgorithm,
	}
	if attester == nil {
		return resp, nil
	}

	attestation, err := GenerateKeyAttestation(attester, km, escrow)
	if err != nil {
		return nil, fmt.Errorf("failed to generate key attestation: %w", err)
	}
	resp.AttestationCOSEBase64 = attestation.EncodeBase64()
	return resp, nil
}
