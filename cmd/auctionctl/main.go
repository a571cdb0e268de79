// Command auctionctl sends one request to auctiond and prints the JSON response.
package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net"
	"os"
	"time"

	"github.com/mdlayher/vsock"

	"github.com/cloudx-io/escrowauction/auctionapi"
)

const dialTimeout = 10 * time.Second

type connOptions struct {
	transport string
	addr      string
	cid       uint
	port      uint
}

func main() {
	var opts connOptions
	flag.StringVar(&opts.transport, "transport", "tcp", "Transport: tcp or vsock")
	flag.StringVar(&opts.addr, "addr", "127.0.0.1:5000", "auctiond address (tcp)")
	flag.UintVar(&opts.cid, "cid", 16, "Enclave CID (vsock)")
	flag.UintVar(&opts.port, "port", 5000, "auctiond port (vsock)")
	flag.Usage = showUsage
	flag.Parse()

	req, err := buildRequest(flag.Args())
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n\n", err)
		showUsage()
		os.Exit(2)
	}

	out, err := send(opts, req)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(2)
	}

	var pretty bytes.Buffer
	if err := json.Indent(&pretty, out, "", "  "); err != nil {
		fmt.Println(string(out))
	} else {
		fmt.Println(pretty.String())
	}

	var status struct {
		Type    string `json:"type"`
		Success *bool  `json:"success"`
	}
	if err := json.Unmarshal(out, &status); err == nil {
		if status.Type == "error" || (status.Success != nil && !*status.Success) {
			os.Exit(1)
		}
	}
}

func showUsage() {
	fmt.Fprintln(os.Stderr, "Usage: auctionctl [connection flags] <command> [flags]")
	fmt.Fprintln(os.Stderr)
	fmt.Fprintln(os.Stderr, "Commands:")
	fmt.Fprintln(os.Stderr, "  ping")
	fmt.Fprintln(os.Stderr, "  create   -seller -collection -item -duration -reserve [-description]")
	fmt.Fprintln(os.Stderr, "  bid      -id -bidder -amount")
	fmt.Fprintln(os.Stderr, "  claim    -id -caller")
	fmt.Fprintln(os.Stderr, "  revoke   -id -caller")
	fmt.Fprintln(os.Stderr, "  get      -id")
	fmt.Fprintln(os.Stderr, "  list")
	fmt.Fprintln(os.Stderr, "  bids     -id")
	fmt.Fprintln(os.Stderr, "  balance  -account")
	fmt.Fprintln(os.Stderr, "  owner    -collection -item")
	fmt.Fprintln(os.Stderr, "  mint     -collection -item -owner")
	fmt.Fprintln(os.Stderr, "  approve  -collection -item -owner -operator")
	fmt.Fprintln(os.Stderr, "  fund     -account -amount")
	fmt.Fprintln(os.Stderr, "  deposit  -account -amount")
	fmt.Fprintln(os.Stderr, "  key")
	fmt.Fprintln(os.Stderr, "  receipt  -id")
	fmt.Fprintln(os.Stderr)
	fmt.Fprintln(os.Stderr, "Amounts are whole units with up to 18 decimals, e.g. 1.000000000000000001.")
	fmt.Fprintln(os.Stderr)
	fmt.Fprintln(os.Stderr, "Connection flags:")
	flag.PrintDefaults()
}

var commandTypes = map[string]string{
	"ping":    auctionapi.TypePing,
	"create":  auctionapi.TypeCreateAuction,
	"bid":     auctionapi.TypePlaceBid,
	"claim":   auctionapi.TypeClaimBid,
	"revoke":  auctionapi.TypeRevokeAuction,
	"get":     auctionapi.TypeGetAuction,
	"list":    auctionapi.TypeListAuctions,
	"bids":    auctionapi.TypeGetBids,
	"balance": auctionapi.TypeBalance,
	"owner":   auctionapi.TypeOwnerOf,
	"mint":    auctionapi.TypeMint,
	"approve": auctionapi.TypeApprove,
	"fund":    auctionapi.TypeFund,
	"deposit": auctionapi.TypeDeposit,
	"key":     auctionapi.TypeKeyRequest,
	"receipt": auctionapi.TypeGetReceipt,
}

// buildRequest parses a subcommand and its flags into a request.
func buildRequest(args []string) (*auctionapi.Request, error) {
	if len(args) == 0 {
		return nil, fmt.Errorf("missing command")
	}
	reqType, ok := commandTypes[args[0]]
	if !ok {
		return nil, fmt.Errorf("unknown command %q", args[0])
	}

	req := &auctionapi.Request{Type: reqType}
	fs := flag.NewFlagSet(args[0], flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	fs.StringVar(&req.RequestID, "request-id", "", "Request id (default: assigned by auctiond)")

	var required []string
	need := func(names ...string) { required = append(required, names...) }

	switch reqType {
	case auctionapi.TypeCreateAuction:
		fs.StringVar(&req.Seller, "seller", "", "Seller account")
		fs.StringVar(&req.Collection, "collection", "", "Collection address")
		fs.Uint64Var(&req.Item, "item", 0, "Item id")
		fs.Int64Var(&req.DurationSeconds, "duration", 0, "Duration in seconds")
		fs.StringVar(&req.ReservePrice, "reserve", "", "Reserve price")
		fs.StringVar(&req.Description, "description", "", "Description")
		need("seller", "collection", "duration", "reserve")
	case auctionapi.TypePlaceBid:
		fs.Uint64Var(&req.AuctionID, "id", 0, "Auction id")
		fs.StringVar(&req.Bidder, "bidder", "", "Bidder account")
		fs.StringVar(&req.Amount, "amount", "", "Bid amount")
		need("id", "bidder", "amount")
	case auctionapi.TypeClaimBid, auctionapi.TypeRevokeAuction:
		fs.Uint64Var(&req.AuctionID, "id", 0, "Auction id")
		fs.StringVar(&req.Caller, "caller", "", "Calling account")
		need("id", "caller")
	case auctionapi.TypeGetAuction, auctionapi.TypeGetBids, auctionapi.TypeGetReceipt:
		fs.Uint64Var(&req.AuctionID, "id", 0, "Auction id")
		need("id")
	case auctionapi.TypeBalance:
		fs.StringVar(&req.Account, "account", "", "Account")
		need("account")
	case auctionapi.TypeOwnerOf:
		fs.StringVar(&req.Collection, "collection", "", "Collection address")
		fs.Uint64Var(&req.Item, "item", 0, "Item id")
		need("collection")
	case auctionapi.TypeMint:
		fs.StringVar(&req.Collection, "collection", "", "Collection address")
		fs.Uint64Var(&req.Item, "item", 0, "Item id")
		fs.StringVar(&req.Owner, "owner", "", "Owner account")
		need("collection", "owner")
	case auctionapi.TypeApprove:
		fs.StringVar(&req.Collection, "collection", "", "Collection address")
		fs.Uint64Var(&req.Item, "item", 0, "Item id")
		fs.StringVar(&req.Owner, "owner", "", "Owner account")
		fs.StringVar(&req.Operator, "operator", "", "Operator to approve")
		need("collection", "owner", "operator")
	case auctionapi.TypeFund, auctionapi.TypeDeposit:
		fs.StringVar(&req.Account, "account", "", "Account")
		fs.StringVar(&req.Amount, "amount", "", "Amount")
		need("account", "amount")
	}

	if err := fs.Parse(args[1:]); err != nil {
		return nil, fmt.Errorf("%s: %w", args[0], err)
	}
	if fs.NArg() > 0 {
		return nil, fmt.Errorf("%s: unexpected arguments %v", args[0], fs.Args())
	}

	set := make(map[string]bool)
	fs.Visit(func(f *flag.Flag) { set[f.Name] = true })
	for _, name := range required {
		if !set[name] {
			return nil, fmt.Errorf("%s: -%s is required", args[0], name)
		}
	}
	return req, nil
}

// halfCloser is implemented by *net.TCPConn and *vsock.Conn.
type halfCloser interface {
	CloseWrite() error
}

func dial(opts connOptions) (net.Conn, error) {
	switch opts.transport {
	case "tcp":
		return net.DialTimeout("tcp", opts.addr, dialTimeout)
	case "vsock":
		conn, err := vsock.Dial(uint32(opts.cid), uint32(opts.port), nil)
		if err != nil {
			return nil, err
		}
		return conn, nil
	default:
		return nil, fmt.Errorf("invalid transport %q: must be tcp or vsock", opts.transport)
	}
}

// send writes req, half-closes the connection so auctiond sees EOF and returns the raw response.
func send(opts connOptions, req *auctionapi.Request) ([]byte, error) {
	conn, err := dial(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to connect: %w", err)
	}
	defer conn.Close()

	_ = conn.SetDeadline(time.Now().Add(30 * time.Second))

	if err := json.NewEncoder(conn).Encode(req); err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	if hc, ok := conn.(halfCloser); ok {
		if err := hc.CloseWrite(); err != nil {
			return nil, fmt.Errorf("failed to close write side: %w", err)
		}
	}

	out, err := io.ReadAll(conn)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	if len(bytes.TrimSpace(out)) == 0 {
		return nil, fmt.Errorf("empty response (auctiond may be at capacity)")
	}
	return bytes.TrimSpace(out), nil
}
