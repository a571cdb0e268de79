package validation

import (
	"encoding/base64"
	"testing"

	"github.com/peterldowns/testy/assert"
	"github.com/peterldowns/testy/check"

	"github.com/cloudx-io/escrowauction/auctionapi"
	"github.com/cloudx-io/escrowauction/receipt"
)

func TestVerifyAttestationSignature(t *testing.T) {
	ca := newTestCA(t)
	attestation := ca.attest(t, []byte(`{}`))
	leaf := base64.StdEncoding.EncodeToString(ca.leaf.Raw)

	check.NoError(t, VerifyAttestationSignature(attestation, leaf))

	// Signed by a different key
	other := newTestCA(t)
	check.Error(t, VerifyAttestationSignature(attestation, base64.StdEncoding.EncodeToString(other.leaf.Raw)))

	// Tampered signature
	tampered := append(auctionapi.AttestationCOSE{}, attestation...)
	tampered[len(tampered)-1] ^= 0xff
	check.Error(t, VerifyAttestationSignature(tampered, leaf))

	check.Error(t, VerifyAttestationSignature(attestation, "not base64!"))
}

func TestVerifyReceiptSignature(t *testing.T) {
	km, err := receipt.NewKeyManager()
	assert.NoError(t, err)
	signed, err := receipt.NewSigner(km).Sign(testSettledEvent())
	assert.NoError(t, err)

	check.NoError(t, VerifyReceiptSignature(signed, km.PublicKey))

	other, _ := receipt.NewKeyManager()
	check.Error(t, VerifyReceiptSignature(signed, other.PublicKey))

	check.Error(t, VerifyReceiptSignature(auctionapi.ReceiptCOSE("garbage"), km.PublicKey))
}
