package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"github.com/cloudx-io/escrowauction/auctionapi"
	"github.com/cloudx-io/escrowauction/core"
	"github.com/cloudx-io/escrowauction/validation"
)

type options struct {
	receiptInput  string
	publicKeyPath string
	auctionID     uint64
	expect        string
	winner        string
	amount        string
	outputFormat  string
}

func main() {
	var opts options
	flag.StringVar(&opts.receiptInput, "receipt", "", "get_receipt response JSON (file path or inline JSON)")
	flag.StringVar(&opts.publicKeyPath, "public-key", "", "Path to receipt public key PEM (default: key embedded in the response)")
	flag.Uint64Var(&opts.auctionID, "auction-id", 0, "Expected auction id (default: id in the response)")
	flag.StringVar(&opts.expect, "expect", "", "Expected outcome: settled or revoked")
	flag.StringVar(&opts.winner, "winner", "", "Expected winner account (settled only)")
	flag.StringVar(&opts.amount, "amount", "", "Expected settlement price in whole units (settled only)")
	flag.StringVar(&opts.outputFormat, "format", "text", "Output format: text or json")
	help := flag.Bool("help", false, "Show usage information")

	flag.Parse()

	if *help {
		showUsage()
		os.Exit(0)
	}

	if opts.receiptInput == "" {
		showUsage()
		fmt.Fprintf(os.Stderr, "\nError: --receipt is required\n")
		os.Exit(1)
	}

	receiptJSON, err := readJSONInput(opts.receiptInput)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error reading receipt: %v\n", err)
		os.Exit(2)
	}

	var publicKey string
	if opts.publicKeyPath != "" {
		data, err := os.ReadFile(opts.publicKeyPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error reading public key: %v\n", err)
			os.Exit(2)
		}
		publicKey = string(data)
	}

	validationInput, err := extractValidationInput(receiptJSON, publicKey, opts)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error extracting validation data: %v\n", err)
		os.Exit(2)
	}

	result, err := validation.ValidateReceipt(validationInput)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Validation error: %v\n", err)
		os.Exit(2)
	}

	if opts.outputFormat == "json" {
		outputJSON(result)
	} else {
		outputText(result)
	}

	if !result.IsValid() {
		os.Exit(1)
	}
	os.Exit(0)
}

func showUsage() {
	fmt.Println("Auction Receipt Validator")
	fmt.Println()
	fmt.Println("Validates signed settlement and revocation receipts issued by auctiond.")
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  receipt-validator --receipt <json> [options]")
	fmt.Println()
	fmt.Println("Required Flags:")
	fmt.Println("  --receipt <json>                  get_receipt response (file path or inline JSON)")
	fmt.Println()
	fmt.Println("Optional Flags:")
	fmt.Println("  --public-key <path>               Receipt public key PEM (default: from response)")
	fmt.Println("  --auction-id <id>                 Expected auction id (default: from response)")
	fmt.Println("  --expect <settled|revoked>        Expected outcome")
	fmt.Println("  --winner <account>                Expected winner")
	fmt.Println("  --amount <units>                  Expected price, e.g. 1.000000000000000002")
	fmt.Println("  --format <text|json>              Output format (default: text)")
	fmt.Println("  --help                            Show this help message")
	fmt.Println()
	fmt.Println("Example:")
	fmt.Println("  auctionctl receipt -id 1 > receipt.json")
	fmt.Println("  receipt-validator --receipt receipt.json --expect settled --winner 0xbidder2 --amount 1.000000000000000002")
	fmt.Println()
	fmt.Println("Exit Codes:")
	fmt.Println("  0 - Validation passed")
	fmt.Println("  1 - Validation failed")
	fmt.Println("  2 - Invalid input or runtime error")
}

func readJSONInput(input string) ([]byte, error) {
	// Try reading as file first
	if data, err := os.ReadFile(input); err == nil {
		return data, nil
	}
	// Treat as inline JSON
	return []byte(input), nil
}

// extractValidationInput accepts either a full daemon response or a bare receipt object.
func extractValidationInput(receiptJSON []byte, publicKey string, opts options) (*validation.ReceiptValidationInput, error) {
	var resp auctionapi.Response
	if err := json.Unmarshal(receiptJSON, &resp); err != nil {
		return nil, fmt.Errorf("parse receipt response: %w", err)
	}

	rr := resp.Receipt
	if rr == nil {
		var bare auctionapi.ReceiptResponse
		if err := json.Unmarshal(receiptJSON, &bare); err != nil {
			return nil, fmt.Errorf("parse receipt: %w", err)
		}
		rr = &bare
	}
	if rr.ReceiptCOSEBase64 == "" {
		return nil, fmt.Errorf("missing receipt_cose_base64 in receipt")
	}

	if publicKey == "" {
		publicKey = rr.PublicKey
	}
	if publicKey == "" {
		return nil, fmt.Errorf("no public key in receipt and --public-key not given")
	}

	auctionID := opts.auctionID
	if auctionID == 0 {
		auctionID = rr.AuctionID
	}

	var expected core.EventType
	switch opts.expect {
	case "":
	case "settled":
		expected = core.EventSettled
	case "revoked":
		expected = core.EventAuctionRevoked
	default:
		return nil, fmt.Errorf("invalid --expect %q: must be settled or revoked", opts.expect)
	}

	return &validation.ReceiptValidationInput{
		ReceiptCOSEBase64: rr.ReceiptCOSEBase64,
		PublicKey:         publicKey,
		AuctionID:         auctionID,
		ExpectedType:      expected,
		Winner:            opts.winner,
		Amount:            opts.amount,
	}, nil
}

func outputText(result *validation.ReceiptValidationResult) {
	fmt.Println("Auction Receipt Validator")
	fmt.Println("=========================")
	fmt.Println()

	fmt.Println("Summary:")
	fmt.Printf("  Signature Valid:    %v\n", result.SignatureValid)
	fmt.Printf("  Event Hash Valid:   %v\n", result.EventHashValid)
	fmt.Printf("  Asset Hash Valid:   %v\n", result.AssetHashValid)
	fmt.Printf("  Auction ID Valid:   %v\n", result.AuctionIDValid)
	fmt.Printf("  Outcome Valid:      %v\n", result.OutcomeValid)
	fmt.Printf("  Amount Valid:       %v\n", result.AmountValid)

	fmt.Println()
	fmt.Println("Details:")
	for _, detail := range result.ValidationDetails {
		fmt.Printf("  - %s\n", detail)
	}

	fmt.Println()
	fmt.Println("=========================")
	if result.IsValid() {
		fmt.Println("VALIDATION: ✓ PASSED")
		fmt.Println("Exit Code: 0")
	} else {
		fmt.Println("VALIDATION: ✗ FAILED")
		fmt.Println("Exit Code: 1")
	}
}

func outputJSON(result *validation.ReceiptValidationResult) {
	output := map[string]any{
		"valid":            result.IsValid(),
		"signature_valid":  result.SignatureValid,
		"event_hash_valid": result.EventHashValid,
		"asset_hash_valid": result.AssetHashValid,
		"auction_id_valid": result.AuctionIDValid,
		"outcome_valid":    result.OutcomeValid,
		"amount_valid":     result.AmountValid,
		"details":          result.ValidationDetails,
	}

	data, err := json.MarshalIndent(output, "", "  ")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error marshaling JSON: %v\n", err)
		os.Exit(2)
	}
	fmt.Println(string(data))
}
