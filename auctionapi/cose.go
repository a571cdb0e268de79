package auctionapi

import (
	"encoding/base64"
	"fmt"
	"strings"
	"time"

	"github.com/fxamacker/cbor/v2"

	"github.com/cloudx-io/escrowauction/auctionapi/parsing"
)

// ReceiptCOSE is a raw COSE_Sign1 receipt.
type ReceiptCOSE []byte

// ReceiptCOSEBase64 is a standard base64 receipt for JSON transport.
type ReceiptCOSEBase64 string

// ReceiptCOSEURLBase64 is an unpadded URL-safe receipt, suitable for links.
type ReceiptCOSEURLBase64 string

// EncodeBase64 encodes the receipt for JSON transport.
func (r ReceiptCOSE) EncodeBase64() ReceiptCOSEBase64 {
	return ReceiptCOSEBase64(base64.StdEncoding.EncodeToString(r))
}

// EncodeURLSafe encodes the receipt as unpadded base64url.
func (r ReceiptCOSE) EncodeURLSafe() ReceiptCOSEURLBase64 {
	return ReceiptCOSEURLBase64(base64.RawURLEncoding.EncodeToString(r))
}

var receiptEncMode = func() cbor.EncMode {
	em, err := cbor.EncOptions{Time: cbor.TimeRFC3339Nano, Sort: cbor.SortCanonical}.EncMode()
	if err != nil {
		panic(fmt.Sprintf("cbor enc mode: %v", err))
	}
	return em
}()

// EncodeReceiptPayload encodes a receipt payload deterministically. Timestamps keep
// nanosecond precision so event hashes can be recomputed from the decoded payload.
func EncodeReceiptPayload(p ReceiptPayload) ([]byte, error) {
	data, err := receiptEncMode.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("encode receipt payload: %w", err)
	}
	return data, nil
}

// Payload decodes the signed CBOR payload. The signature is not checked.
func (r ReceiptCOSE) Payload() (*ReceiptPayload, error) {
	raw, err := parsing.ExtractCOSEPayload(r)
	if err != nil {
		return nil, err
	}
	var payload ReceiptPayload
	if err := cbor.Unmarshal(raw, &payload); err != nil {
		return nil, fmt.Errorf("parse receipt payload: %w", err)
	}
	return &payload, nil
}

// Decode returns the raw receipt bytes.
func (r ReceiptCOSEBase64) Decode() (ReceiptCOSE, error) {
	data, err := base64.StdEncoding.DecodeString(string(r))
	if err != nil {
		return nil, fmt.Errorf("decode receipt base64: %w", err)
	}
	return ReceiptCOSE(data), nil
}

func (r ReceiptCOSEURLBase64) String() string { return string(r) }

// Decode accepts both padded and unpadded input.
func (r ReceiptCOSEURLBase64) Decode() (ReceiptCOSE, error) {
	s := strings.TrimRight(string(r), "=")
	data, err := base64.RawURLEncoding.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("decode receipt base64url: %w", err)
	}
	return ReceiptCOSE(data), nil
}

// AttestationCOSE is a raw Nitro attestation (untagged COSE_Sign1).
type AttestationCOSE []byte

// AttestationCOSEBase64 is a standard base64 attestation for JSON transport.
type AttestationCOSEBase64 string

// EncodeBase64 encodes the attestation for JSON transport.
func (a AttestationCOSE) EncodeBase64() AttestationCOSEBase64 {
	return AttestationCOSEBase64(base64.StdEncoding.EncodeToString(a))
}

// Decode returns the raw attestation bytes.
func (a AttestationCOSEBase64) Decode() (AttestationCOSE, error) {
	data, err := base64.StdEncoding.DecodeString(string(a))
	if err != nil {
		return nil, fmt.Errorf("decode COSE base64: %w", err)
	}
	return AttestationCOSE(data), nil
}

// ParseAttestationDoc decodes the attestation document and returns it together with the
// raw user data bytes.
func (a AttestationCOSE) ParseAttestationDoc() (AttestationDoc, []byte, error) {
	payload, err := parsing.ExtractCOSEPayload(a)
	if err != nil {
		return AttestationDoc{}, nil, err
	}
	raw, err := parsing.DecodeNitroDocument(payload)
	if err != nil {
		return AttestationDoc{}, nil, err
	}

	doc := AttestationDoc{
		ModuleID:        raw.ModuleID,
		Timestamp:       time.UnixMilli(int64(raw.Timestamp)).UTC(),
		DigestAlgorithm: raw.Digest,
		PCRs:            pcrsFromRaw(raw.PCRs),
		Certificate:     base64.StdEncoding.EncodeToString(raw.Certificate),
		CABundle:        parsing.EncodeCertificateBundle(raw.CABundle),
		PublicKey:       string(raw.PublicKey),
		Nonce:           string(raw.Nonce),
	}
	return doc, raw.UserData, nil
}

func pcrsFromRaw(raw map[uint64][]byte) PCRs {
	return PCRs{
		ImageFileHash:   parsing.FormatPCR(raw[0]),
		KernelHash:      parsing.FormatPCR(raw[1]),
		ApplicationHash: parsing.FormatPCR(raw[2]),
		IAMRoleHash:     parsing.FormatPCR(raw[3]),
		InstanceIDHash:  parsing.FormatPCR(raw[4]),
		SigningCertHash: parsing.FormatPCR(raw[8]),
	}
}
