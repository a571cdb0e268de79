package validation

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/json"
	"math/big"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/fxamacker/cbor/v2"
	"github.com/peterldowns/testy/assert"
	"github.com/veraison/go-cose"

	"github.com/cloudx-io/escrowauction/auctionapi"
	"github.com/cloudx-io/escrowauction/auctionapi/parsing"
)

var testPCRs = map[uint64][]byte{
	0: {0x3b, 0x4c, 0xef},
	1: {0x4b, 0x4d, 0x5b},
	2: {0x2b, 0xdd, 0x28},
}

// testCA is a throwaway P-384 chain shaped like the Nitro one: root, intermediate, leaf.
type testCA struct {
	root         *x509.Certificate
	intermediate *x509.Certificate
	leaf         *x509.Certificate
	leafKey      *ecdsa.PrivateKey
	notBefore    time.Time
}

func newCertificate(t *testing.T, template, parent *x509.Certificate, pub *ecdsa.PublicKey, signer *ecdsa.PrivateKey) *x509.Certificate {
	t.Helper()
	der, err := x509.CreateCertificate(rand.Reader, template, parent, pub, signer)
	assert.NoError(t, err)
	cert, err := x509.ParseCertificate(der)
	assert.NoError(t, err)
	return cert
}

func newTestCA(t *testing.T) *testCA {
	t.Helper()
	notBefore := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	rootKey, err := ecdsa.GenerateKey(elliptic.P384(), rand.Reader)
	assert.NoError(t, err)
	rootTemplate := &x509.Certificate{
		SerialNumber:          big.NewInt(1),
		Subject:               pkix.Name{CommonName: "test-root"},
		NotBefore:             notBefore,
		NotAfter:              notBefore.AddDate(10, 0, 0),
		IsCA:                  true,
		BasicConstraintsValid: true,
		KeyUsage:              x509.KeyUsageCertSign,
	}
	root := newCertificate(t, rootTemplate, rootTemplate, &rootKey.PublicKey, rootKey)

	intKey, err := ecdsa.GenerateKey(elliptic.P384(), rand.Reader)
	assert.NoError(t, err)
	intermediate := newCertificate(t, &x509.Certificate{
		SerialNumber:          big.NewInt(2),
		Subject:               pkix.Name{CommonName: "test-intermediate"},
		NotBefore:             notBefore,
		NotAfter:              notBefore.AddDate(1, 0, 0),
		IsCA:                  true,
		BasicConstraintsValid: true,
		KeyUsage:              x509.KeyUsageCertSign,
	}, root, &intKey.PublicKey, rootKey)

	leafKey, err := ecdsa.GenerateKey(elliptic.P384(), rand.Reader)
	assert.NoError(t, err)
	leaf := newCertificate(t, &x509.Certificate{
		SerialNumber: big.NewInt(3),
		Subject:      pkix.Name{CommonName: "test-enclave"},
		NotBefore:    notBefore,
		NotAfter:     notBefore.Add(3 * time.Hour),
		KeyUsage:     x509.KeyUsageDigitalSignature,
	}, intermediate, &leafKey.PublicKey, intKey)

	return &testCA{root: root, intermediate: intermediate, leaf: leaf, leafKey: leafKey, notBefore: notBefore}
}

func (ca *testCA) roots() *x509.CertPool {
	pool := x509.NewCertPool()
	pool.AddCert(ca.root)
	return pool
}

// attest builds an untagged ES384 COSE_Sign1 attestation signed by the leaf key.
func (ca *testCA) attest(t *testing.T, userData []byte) auctionapi.AttestationCOSE {
	t.Helper()
	doc := map[string]any{
		"module_id":   "i-0123456789-enc0123456789",
		"digest":      "SHA384",
		"timestamp":   uint64(ca.notBefore.Add(time.Hour).UnixMilli()),
		"pcrs":        testPCRs,
		"certificate": ca.leaf.Raw,
		"cabundle":    [][]byte{ca.root.Raw, ca.intermediate.Raw},
		"user_data":   userData,
		"nonce":       []byte("nonce"),
	}
	payload, err := cbor.Marshal(doc)
	assert.NoError(t, err)

	protected, err := cbor.Marshal(map[int]int{1: -35}) // alg: ES384
	assert.NoError(t, err)

	msg := &parsing.COSESign1{Protected: protected, Payload: payload}
	sigStructure, err := msg.SigStructure(nil)
	assert.NoError(t, err)

	signer, err := cose.NewSigner(cose.AlgorithmES384, ca.leafKey)
	assert.NoError(t, err)
	signature, err := signer.Sign(rand.Reader, sigStructure)
	assert.NoError(t, err)

	data, err := cbor.Marshal([]any{protected, map[any]any{}, payload, signature})
	assert.NoError(t, err)
	return auctionapi.AttestationCOSE(data)
}

// writePCRConfig writes a PCR config matching testPCRs and returns its path.
func writePCRConfig(t *testing.T) string {
	t.Helper()
	config := PCRConfig{PCRSets: []PCRSet{
		{PCR0: "ffff", PCR1: "ffff", PCR2: "ffff", CommitHash: "old"},
		{PCR0: "3b4cef", PCR1: "4b4d5b", PCR2: "2bdd28", CommitHash: "abc123"},
	}}
	data, err := json.Marshal(config)
	assert.NoError(t, err)
	path := filepath.Join(t.TempDir(), "pcrs.json")
	assert.NoError(t, os.WriteFile(path, data, 0o600))
	return path
}
