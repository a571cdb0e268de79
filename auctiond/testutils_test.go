package main

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/peterldowns/testy/assert"

	"github.com/cloudx-io/escrowauction/auctionapi"
	"github.com/cloudx-io/escrowauction/receipt"
)

const (
	escrow     = "0xescrow"
	seller     = "0xowner"
	bidder1    = "0xbidder1"
	bidder2    = "0xbidder2"
	collection = "0xminimalerc721"
)

type stepClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *stepClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *stepClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newClock() *stepClock {
	return &stepClock{now: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
}

func testConfig(stateFile string) Config {
	return Config{
		Port:       5000,
		Transport:  TransportTCP,
		MaxWorkers: 4,
		StateFile:  stateFile,
		Escrow:     escrow,
	}
}

// newTestServer returns a server that never finds an NSM device.
func newTestServer(t *testing.T, cfg Config, clock *stepClock) *Server {
	t.Helper()
	s, err := NewServer(cfg, clock)
	assert.NoError(t, err)
	s.attester = func() (receipt.Attester, error) {
		return nil, fmt.Errorf("NSM not available")
	}
	return s
}

func do(t *testing.T, s *Server, req auctionapi.Request) *auctionapi.Response {
	t.Helper()
	data, err := json.Marshal(req)
	assert.NoError(t, err)
	resp, ok := s.handleRequest(context.Background(), data).(*auctionapi.Response)
	assert.True(t, ok)
	return resp
}

func mustSucceed(t *testing.T, s *Server, req auctionapi.Request) *auctionapi.Response {
	t.Helper()
	resp := do(t, s, req)
	if !resp.Success {
		t.Fatalf("%s failed: %s %s", req.Type, resp.Reason, resp.Message)
	}
	return resp
}

// listApe mints item 1 to the seller, funds both bidders with 5 units and opens a
// one-day auction with a reserve of one unit.
func listApe(t *testing.T, s *Server) uint64 {
	t.Helper()
	mustSucceed(t, s, auctionapi.Request{Type: auctionapi.TypeMint, Collection: collection, Item: 1, Owner: seller})
	mustSucceed(t, s, auctionapi.Request{Type: auctionapi.TypeFund, Account: bidder1, Amount: "5"})
	mustSucceed(t, s, auctionapi.Request{Type: auctionapi.TypeFund, Account: bidder2, Amount: "5"})
	mustSucceed(t, s, auctionapi.Request{Type: auctionapi.TypeApprove, Collection: collection, Item: 1, Owner: seller, Operator: escrow})
	resp := mustSucceed(t, s, auctionapi.Request{
		Type:            auctionapi.TypeCreateAuction,
		Seller:          seller,
		Collection:      collection,
		Item:            1,
		DurationSeconds: 86400,
		ReservePrice:    "1",
		Description:     "Bored ape Non-Fungible Token",
	})
	return resp.AuctionID
}
