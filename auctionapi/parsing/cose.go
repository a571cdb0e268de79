package parsing

import (
	"fmt"

	"github.com/fxamacker/cbor/v2"
)

// coseSign1Tag is the CBOR tag of a tagged COSE_Sign1 message.
const coseSign1Tag = 18

// COSESign1 holds the four elements of a COSE_Sign1 array.
type COSESign1 struct {
	Protected   []byte
	Unprotected map[any]any
	Payload     []byte
	Signature   []byte
}

// SplitCOSESign1 decodes a COSE_Sign1 message, tagged (receipts) or untagged (AWS Nitro).
// COSE_Sign1 structure: [protected, unprotected, payload, signature]
func SplitCOSESign1(coseBytes []byte) (*COSESign1, error) {
	var tagged cbor.RawTag
	if err := cbor.Unmarshal(coseBytes, &tagged); err == nil {
		if tagged.Number != coseSign1Tag {
			return nil, fmt.Errorf("unexpected CBOR tag %d, want %d", tagged.Number, coseSign1Tag)
		}
		coseBytes = tagged.Content
	}

	var coseArray []any
	if err := cbor.Unmarshal(coseBytes, &coseArray); err != nil {
		return nil, fmt.Errorf("parse COSE array: %w", err)
	}
	if len(coseArray) != 4 {
		return nil, fmt.Errorf("invalid COSE_Sign1 structure: expected 4 elements, got %d", len(coseArray))
	}

	msg := &COSESign1{}
	var ok bool
	if msg.Protected, ok = coseArray[0].([]byte); !ok {
		return nil, fmt.Errorf("invalid protected headers")
	}
	if coseArray[1] != nil {
		if msg.Unprotected, ok = coseArray[1].(map[any]any); !ok {
			return nil, fmt.Errorf("invalid unprotected headers")
		}
	}
	if msg.Payload, ok = coseArray[2].([]byte); !ok {
		return nil, fmt.Errorf("invalid payload in COSE structure")
	}
	if msg.Signature, ok = coseArray[3].([]byte); !ok {
		return nil, fmt.Errorf("invalid signature")
	}
	return msg, nil
}

// ExtractCOSEPayload returns the payload (element 2) of a COSE_Sign1 message.
func ExtractCOSEPayload(coseBytes []byte) ([]byte, error) {
	msg, err := SplitCOSESign1(coseBytes)
	if err != nil {
		return nil, err
	}
	return msg.Payload, nil
}

// SigStructure builds the Sig_structure a COSE_Sign1 signature covers:
// ["Signature1", protected, external_aad, payload]
func (m *COSESign1) SigStructure(externalAAD []byte) ([]byte, error) {
	if externalAAD == nil {
		externalAAD = []byte{}
	}
	data, err := cbor.Marshal([]any{"Signature1", m.Protected, externalAAD, m.Payload})
	if err != nil {
		return nil, fmt.Errorf("marshal Sig_structure: %w", err)
	}
	return data, nil
}
