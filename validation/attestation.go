package validation

import (
	"fmt"

	"github.com/cloudx-io/escrowauction/auctionapi"
)

// validateCommonAttestation checks PCRs, certificate chain and signature of a Nitro
// attestation. It also returns the parsed document and raw user data.
func validateCommonAttestation(coseBytes auctionapi.AttestationCOSE, pcrConfigPath string) (*BaseValidationResult, auctionapi.AttestationDoc, []byte, error) {
	attestationDoc, userData, err := coseBytes.ParseAttestationDoc()
	if err != nil {
		return nil, auctionapi.AttestationDoc{}, nil, fmt.Errorf("parse attestation document: %w", err)
	}

	if pcrConfigPath == "" {
		pcrConfigPath = DefaultPCRConfigPath()
	}
	knownPCRs, err := LoadPCRsFromFile(pcrConfigPath)
	if err != nil {
		return nil, auctionapi.AttestationDoc{}, nil, fmt.Errorf("failed to load PCR configuration: %w", err)
	}

	result := &BaseValidationResult{
		ValidationDetails: []string{},
	}

	pcrMatch, matchedSet := ValidatePCRs(attestationDoc.PCRs, knownPCRs)
	result.PCRsValid = pcrMatch
	if !pcrMatch {
		result.ValidationDetails = append(result.ValidationDetails, fmt.Sprintf("PCR0: %s (no match)", attestationDoc.PCRs.ImageFileHash))
		result.ValidationDetails = append(result.ValidationDetails, fmt.Sprintf("PCR1: %s (no match)", attestationDoc.PCRs.KernelHash))
		result.ValidationDetails = append(result.ValidationDetails, fmt.Sprintf("PCR2: %s (no match)", attestationDoc.PCRs.ApplicationHash))
	} else {
		result.ValidationDetails = append(result.ValidationDetails, "PCR measurements valid")
		result.ValidationDetails = append(result.ValidationDetails, fmt.Sprintf("Matched PCR set: #%d (commit: %s)",
			matchedSet, knownPCRs[matchedSet].CommitHash))
	}

	switch {
	case attestationDoc.Certificate == "":
		result.ValidationDetails = append(result.ValidationDetails, "Missing certificate")
	case len(attestationDoc.CABundle) == 0:
		result.ValidationDetails = append(result.ValidationDetails, "Missing CA bundle")
	default:
		if err := ValidateCertificateChain(attestationDoc.Certificate, attestationDoc.CABundle, attestationDoc.Timestamp); err != nil {
			result.ValidationDetails = append(result.ValidationDetails, fmt.Sprintf("Certificate chain validation failed: %v", err))
		} else {
			result.CertificateValid = true
			result.ValidationDetails = append(result.ValidationDetails, "Certificate chain verified")
		}
	}

	if err := VerifyAttestationSignature(coseBytes, attestationDoc.Certificate); err != nil {
		result.ValidationDetails = append(result.ValidationDetails, fmt.Sprintf("COSE signature verification failed: %v", err))
	} else {
		result.SignatureValid = true
		result.ValidationDetails = append(result.ValidationDetails, "COSE signature verified")
	}

	return result, attestationDoc, userData, nil
}
