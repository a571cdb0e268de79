// Command key-validator checks that a receipt signing key served by auctiond was
// attested by a known enclave image and is bound to the expected escrow account.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/cloudx-io/escrowauction/auctionapi"
	"github.com/cloudx-io/escrowauction/validation"
)

// plainTextHandler writes bare messages to stdout for CLI output.
type plainTextHandler struct{}

func (*plainTextHandler) Enabled(_ context.Context, _ slog.Level) bool {
	return true
}

func (*plainTextHandler) Handle(_ context.Context, r slog.Record) error {
	_, err := fmt.Fprintln(os.Stdout, r.Message)
	return err
}

func (h *plainTextHandler) WithAttrs(_ []slog.Attr) slog.Handler {
	return h
}

func (h *plainTextHandler) WithGroup(_ string) slog.Handler {
	return h
}

var logger = slog.New(&plainTextHandler{})

func main() {
	var (
		keyResponsePath = flag.String("attestation", "", "key_request response JSON written by auctionctl key (required)")
		publicKeyPath   = flag.String("public-key", "", "Receipt key PEM to compare (default: key in the response)")
		escrow          = flag.String("escrow", "", "Escrow account the key must be bound to")
		pcrConfig       = flag.String("pcr-config", "", "Known-good PCR sets (default: $"+validation.PCRConfigEnv+" or the bundled pcrs.json)")
		outputFormat    = flag.String("format", "text", "Output format: text or json")
	)
	flag.Usage = showUsage
	flag.Parse()

	if *keyResponsePath == "" {
		showUsage()
		os.Exit(2)
	}

	keyResponse, err := readKeyResponse(*keyResponsePath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error reading key response: %v\n", err)
		os.Exit(2)
	}

	publicKey := keyResponse.PublicKey
	if *publicKeyPath != "" {
		data, err := os.ReadFile(*publicKeyPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error reading public key: %v\n", err)
			os.Exit(2)
		}
		publicKey = string(data)
	}

	result, err := validation.ValidateKeyAttestation(&validation.KeyValidationInput{
		AttestationCOSEBase64: keyResponse.AttestationCOSEBase64,
		PublicKey:             publicKey,
		Escrow:                *escrow,
		PCRConfigPath:         *pcrConfig,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Validation error: %v\n", err)
		os.Exit(2)
	}

	if *outputFormat == "json" {
		data, err := json.MarshalIndent(jsonReport(result), "", "  ")
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error marshaling JSON: %v\n", err)
			os.Exit(2)
		}
		logger.Info(string(data))
	} else {
		for _, line := range textReport(result) {
			logger.Info(line)
		}
	}

	if !result.IsValid() {
		os.Exit(1)
	}
}

func showUsage() {
	logger.Info("Usage: key-validator --attestation <key_response.json> [--escrow <account>] [flags]")
	logger.Info("")
	logger.Info("Checks the Nitro attestation of the auctiond receipt key: PCRs, certificate chain,")
	logger.Info("COSE signature, attested public key and escrow account.")
	logger.Info("Exit codes: 0 valid, 1 invalid, 2 input or runtime error.")
	logger.Info("")
	flag.PrintDefaults()
}

// readKeyResponse loads a key_request response. Unattested responses cannot be validated.
func readKeyResponse(path string) (*auctionapi.KeyResponse, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}

	var keyResponse auctionapi.KeyResponse
	if err := json.Unmarshal(data, &keyResponse); err != nil {
		return nil, fmt.Errorf("failed to parse JSON: %w", err)
	}
	if keyResponse.AttestationCOSEBase64 == "" {
		return nil, fmt.Errorf("key response carries no attestation (auctiond is not running in an enclave)")
	}
	return &keyResponse, nil
}

type checkResult struct {
	name string
	ok   bool
}

func checks(result *validation.KeyValidationResult) []checkResult {
	return []checkResult{
		{"pcrs", result.PCRsValid},
		{"certificate", result.CertificateValid},
		{"signature", result.SignatureValid},
		{"public key", result.PublicKeyMatch},
		{"escrow", result.EscrowMatch},
	}
}

func textReport(result *validation.KeyValidationResult) []string {
	var lines []string
	for _, c := range checks(result) {
		mark := "ok"
		if !c.ok {
			mark = "FAIL"
		}
		lines = append(lines, fmt.Sprintf("%-12s %s", c.name, mark))
	}
	for _, detail := range result.ValidationDetails {
		lines = append(lines, "  "+detail)
	}
	if result.IsValid() {
		lines = append(lines, "receipt key attestation: PASSED")
	} else {
		lines = append(lines, "receipt key attestation: FAILED")
	}
	return lines
}

func jsonReport(result *validation.KeyValidationResult) map[string]any {
	report := map[string]any{
		"valid":   result.IsValid(),
		"details": result.ValidationDetails,
	}
	for _, c := range checks(result) {
		report[c.name] = c.ok
	}
	return report
}
