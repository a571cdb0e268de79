package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"math"
	"time"

	"github.com/google/uuid"

	"github.com/cloudx-io/escrowauction/auctionapi"
	"github.com/cloudx-io/escrowauction/core"
	"github.com/cloudx-io/escrowauction/receipt"
)

// maxDurationSeconds is the longest duration representable as a time.Duration.
const maxDurationSeconds = math.MaxInt64 / int64(time.Second)

// handleRequest decodes one request and returns the value to encode as the response.
func (s *Server) handleRequest(ctx context.Context, data []byte) any {
	var req auctionapi.Request
	if err := json.Unmarshal(data, &req); err != nil {
		log.Printf("ERROR: Failed to decode request: %v", err)
		return &auctionapi.Response{
			Type:    "error",
			Reason:  string(core.ReasonInvalidInput),
			Message: fmt.Sprintf("Failed to decode request: %v", err),
		}
	}
	if req.RequestID == "" {
		req.RequestID = uuid.NewString()
	}

	log.Printf("INFO: Received request type: %s (request %s)", req.Type, req.RequestID)

	if req.Type == auctionapi.TypeKeyRequest {
		return s.handleKeyRequest()
	}

	resp := &auctionapi.Response{Type: req.Type, RequestID: req.RequestID}
	var err error

	switch req.Type {
	case auctionapi.TypePing:
		resp.Type = "pong"
		resp.Message = "auctiond is healthy"
	case auctionapi.TypeCreateAuction:
		err = s.mutate(func() error { return s.createAuction(ctx, &req, resp) })
	case auctionapi.TypePlaceBid:
		err = s.mutate(func() error { return s.placeBid(ctx, &req) })
	case auctionapi.TypeClaimBid:
		err = s.mutate(func() error {
			return s.engine.ClaimBid(ctx, req.AuctionID, core.Account(req.Caller))
		})
	case auctionapi.TypeRevokeAuction:
		err = s.mutate(func() error {
			return s.engine.RevokeAuction(ctx, req.AuctionID, core.Account(req.Caller))
		})
	case auctionapi.TypeGetAuction:
		err = s.getAuction(&req, resp)
	case auctionapi.TypeListAuctions:
		now := s.clock.Now()
		for _, rec := range s.engine.List() {
			resp.Auctions = append(resp.Auctions, auctionapi.NewAuctionView(rec, now))
		}
	case auctionapi.TypeGetBids:
		err = s.getBids(&req, resp)
	case auctionapi.TypeBalance:
		resp.Balance = core.FormatUnits(s.world.BalanceOf(core.Account(req.Account)))
	case auctionapi.TypeOwnerOf:
		err = s.ownerOf(&req, resp)
	case auctionapi.TypeMint:
		err = s.mutate(func() error {
			return invalidInput("mint", s.world.Mint(assetOf(&req), core.Account(req.Owner)))
		})
	case auctionapi.TypeApprove:
		err = s.mutate(func() error {
			return invalidInput("approve", s.world.Approve(assetOf(&req), core.Account(req.Owner), core.Account(req.Operator)))
		})
	case auctionapi.TypeFund:
		err = s.mutate(func() error { return s.fund(&req) })
	case auctionapi.TypeDeposit:
		err = s.deposit(ctx, &req)
	case auctionapi.TypeGetReceipt:
		err = s.getReceipt(&req, resp)
	default:
		resp.Type = "error"
		err = &core.AuctionError{Reason: core.ReasonInvalidInput, Err: fmt.Errorf("unknown request type: %s", req.Type)}
	}

	if err != nil {
		resp.Reason = string(core.ReasonOf(err))
		resp.Message = err.Error()
		log.Printf("ERROR: Request %s (%s) failed: %v", req.RequestID, req.Type, err)
		return resp
	}
	resp.Success = true
	return resp
}

// mutate runs fn and persists the resulting state. A failed save is reported to the
// caller: the change is live in memory but would be lost on restart.
func (s *Server) mutate(fn func() error) error {
	s.stateMu.RLock()
	err := fn()
	s.stateMu.RUnlock()
	if err != nil {
		return err
	}
	if err := s.saveState(); err != nil {
		return &core.AuctionError{Reason: core.ReasonTransferError, Op: "persist", Err: err}
	}
	return nil
}

func (s *Server) createAuction(ctx context.Context, req *auctionapi.Request, resp *auctionapi.Response) error {
	reserve, err := core.ParseUnits(req.ReservePrice)
	if err != nil {
		return invalidInput("createAuction", err)
	}
	if req.DurationSeconds <= 0 || req.DurationSeconds > maxDurationSeconds {
		return invalidInput("createAuction", fmt.Errorf("duration must be between 1 and %d seconds", maxDurationSeconds))
	}
	duration := time.Duration(req.DurationSeconds) * time.Second

	id, err := s.engine.PutOnAuction(ctx, core.Account(req.Seller), assetOf(req), duration, reserve, req.Description)
	if err != nil {
		return err
	}
	resp.AuctionID = id
	return nil
}

func (s *Server) placeBid(ctx context.Context, req *auctionapi.Request) error {
	amount, err := core.ParseUnits(req.Amount)
	if err != nil {
		return invalidInput("placeBid", err)
	}
	return s.engine.PlaceBid(ctx, req.AuctionID, core.Account(req.Bidder), amount)
}

func (s *Server) getAuction(req *auctionapi.Request, resp *auctionapi.Response) error {
	rec, err := s.engine.Get(req.AuctionID)
	if err != nil {
		return err
	}
	view := auctionapi.NewAuctionView(rec, s.clock.Now())
	resp.AuctionID = rec.ID
	resp.Auction = &view
	return nil
}

func (s *Server) getBids(req *auctionapi.Request, resp *auctionapi.Response) error {
	bids, err := s.engine.Bids(req.AuctionID)
	if err != nil {
		return err
	}
	resp.AuctionID = req.AuctionID
	resp.Bids = auctionapi.NewBidViews(bids)
	return nil
}

func (s *Server) ownerOf(req *auctionapi.Request, resp *auctionapi.Response) error {
	owner, err := s.world.OwnerOf(assetOf(req))
	if err != nil {
		return &core.AuctionError{Reason: core.ReasonNotExists, Op: "ownerOf", Err: err}
	}
	resp.Owner = string(owner)
	return nil
}

func (s *Server) fund(req *auctionapi.Request) error {
	amount, err := core.ParseUnits(req.Amount)
	if err != nil {
		return invalidInput("fund", err)
	}
	if req.Account == "" {
		return invalidInput("fund", fmt.Errorf("account is required"))
	}
	return invalidInput("fund", s.world.Fund(core.Account(req.Account), amount))
}

// deposit models value sent straight to the escrow account. The engine refuses it.
func (s *Server) deposit(ctx context.Context, req *auctionapi.Request) error {
	amount, err := core.ParseUnits(req.Amount)
	if err != nil {
		return invalidInput("deposit", err)
	}
	return s.engine.Receive(ctx, core.Account(req.Account), amount)
}

func (s *Server) getReceipt(req *auctionapi.Request, resp *auctionapi.Response) error {
	signed, ok := s.receipts.Get(req.AuctionID)
	if !ok {
		return &core.AuctionError{
			Reason:    core.ReasonNotExists,
			Op:        "getReceipt",
			AuctionID: req.AuctionID,
			Err:       fmt.Errorf("no receipt issued"),
		}
	}
	publicKey, err := s.keys.PublicKeyPEM()
	if err != nil {
		return fmt.Errorf("failed to export public key: %w", err)
	}
	resp.AuctionID = req.AuctionID
	resp.Receipt = &auctionapi.ReceiptResponse{
		AuctionID:         req.AuctionID,
		ReceiptCOSEBase64: signed.EncodeBase64(),
		PublicKey:         publicKey,
	}
	return nil
}

func (s *Server) handleKeyRequest() any {
	log.Printf("INFO: Processing key request")

	attester, err := s.attester()
	if err != nil {
		log.Printf("WARNING: Serving receipt key without attestation: %v", err)
		attester = nil
	}

	keyResp, err := receipt.HandleKeyRequest(attester, s.keys, s.cfg.Escrow)
	if err != nil {
		log.Printf("ERROR: Key request failed: %v", err)
		return map[string]any{
			"type":    "error",
			"message": fmt.Sprintf("Key request failed: %v", err),
		}
	}
	log.Printf("INFO: Key request processed successfully")
	return keyResp
}

func assetOf(req *auctionapi.Request) core.AssetRef {
	return core.AssetRef{Collection: core.Account(req.Collection), Item: req.Item}
}

// invalidInput tags a ledger or parse error with the InvalidInput reason.
func invalidInput(op string, err error) error {
	if err == nil {
		return nil
	}
	return &core.AuctionError{Reason: core.ReasonInvalidInput, Op: op, Err: err}
}
