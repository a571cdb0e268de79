package receipt

import (
	"fmt"
	"testing"
	"time"

	enclave "github.com/edgebitio/nitro-enclaves-sdk-go"
	"github.com/fxamacker/cbor/v2"

	"github.com/cloudx-io/escrowauction/core"
)

// MockEnclaveHandle implements the Attest method for testing
type MockEnclaveHandle struct {
	AttestFunc func(options enclave.AttestationOptions) ([]byte, error)
}

func (m *MockEnclaveHandle) Attest(options enclave.AttestationOptions) ([]byte, error) {
	if m.AttestFunc != nil {
		return m.AttestFunc(options)
	}
	return nil, fmt.Errorf("mock not configured")
}

// createMockEnclave returns a handle that wraps the requested user data and nonce in a
// minimal untagged COSE_Sign1 attestation document.
func createMockEnclave(t *testing.T) *MockEnclaveHandle {
	t.Helper()
	return &MockEnclaveHandle{
		AttestFunc: func(options enclave.AttestationOptions) ([]byte, error) {
			nestedDoc := map[string]any{
				"module_id":   "test-enclave-12345",
				"digest":      "SHA384",
				"timestamp":   uint64(1700000000000),
				"pcrs":        map[uint64][]byte{0: {0x01}, 1: {0x02}, 2: {0x03}},
				"certificate": []byte("test-certificate-data"),
				"cabundle":    [][]byte{[]byte("test-ca-cert")},
				"user_data":   options.UserData,
				"nonce":       options.Nonce,
			}
			nestedBytes, err := cbor.Marshal(nestedDoc)
			if err != nil {
				return nil, err
			}
			return cbor.Marshal([]any{
				[]byte{0x01, 0x02, 0x03}, // Header
				map[string]any{},         // Metadata
				nestedBytes,              // Nested attestation document
				[]byte{0x04, 0x05, 0x06}, // Signature
			})
		},
	}
}

func settledEvent() core.Event {
	ev := core.Event{
		Type:       core.EventSettled,
		AuctionID:  1,
		Seller:     "0xowner",
		Winner:     "0xbidder2",
		Collection: "0xminimalerc721",
		Item:       1,
		Amount:     core.MustParseUnits("1.000000000000000002"),
		Timestamp:  time.Date(2024, 1, 2, 0, 0, 0, 123456789, time.UTC),
	}
	ev.Hash = core.ComputeEventHash(ev)
	return ev
}
