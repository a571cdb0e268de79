package core

import (
	"context"
	"fmt"
	"log"
	"time"
)

// Config wires an Engine to its collaborators.
type Config struct {
	// Escrow is the account the engine holds assets and funds under.
	Escrow   Account
	Custody  AssetCustody
	Value    ValueTransfer
	Notifier Notifier
	Clock    Clock
	Registry *Registry
}

// Engine is the auction state machine. It is the single source of truth for the
// legality of a transition; all mutations of the registry go through it.
type Engine struct {
	escrow   Account
	custody  AssetCustody
	value    ValueTransfer
	txn      Transactor
	notifier Notifier
	clock    Clock
	registry *Registry
}

// NewEngine builds an Engine. Custody and Value are required.
// If the custody adapter also implements Transactor, every transition runs atomically
// against it.
func NewEngine(cfg Config) (*Engine, error) {
	if cfg.Escrow == "" {
		return nil, fmt.Errorf("escrow account is required")
	}
	if cfg.Custody == nil || cfg.Value == nil {
		return nil, fmt.Errorf("custody and value adapters are required")
	}

	e := &Engine{
		escrow:   cfg.Escrow,
		custody:  cfg.Custody,
		value:    cfg.Value,
		txn:      passthroughTransactor{},
		notifier: cfg.Notifier,
		clock:    cfg.Clock,
		registry: cfg.Registry,
	}
	if t, ok := cfg.Custody.(Transactor); ok {
		e.txn = t
	}
	if e.notifier == nil {
		e.notifier = MultiNotifier{}
	}
	if e.clock == nil {
		e.clock = SystemClock
	}
	if e.registry == nil {
		e.registry = NewRegistry()
	}
	return e, nil
}

// Escrow returns the custody account of this engine.
func (e *Engine) Escrow() Account { return e.escrow }

// Registry exposes the engine's registry for reads and snapshots.
func (e *Engine) Registry() *Registry { return e.registry }

// Get returns the record for id.
func (e *Engine) Get(id uint64) (AuctionRecord, error) { return e.registry.Get(id) }

// Bids returns the accepted bid history for id.
func (e *Engine) Bids(id uint64) ([]BidEntry, error) { return e.registry.Bids(id) }

// List returns all records ordered by id.
func (e *Engine) List() []AuctionRecord { return e.registry.List() }

// PutOnAuction pulls asset into escrow and opens a new auction for it.
//
// Guard order:
//  1. duration and reserve must be positive (InvalidInput)
//  2. seller must own the asset (NotOwner)
//  3. the escrow must be approved to move it (NotApproved)
func (e *Engine) PutOnAuction(ctx context.Context, seller Account, asset AssetRef, duration time.Duration, reserve Amount, description string) (uint64, error) {
	const op = "putOnAuction"

	if duration <= 0 || !validAmount(reserve) {
		return 0, newError(ReasonInvalidInput, op, 0, fmt.Errorf("duration and reserve price cannot be zero"))
	}
	if seller == "" || asset.Collection == "" {
		return 0, newError(ReasonInvalidInput, op, 0, fmt.Errorf("seller and collection are required"))
	}

	owner, err := e.custody.IsOwner(ctx, asset, seller)
	if err != nil {
		return 0, newError(ReasonTransferError, op, 0, fmt.Errorf("ownership check for %s: %w", asset, err))
	}
	if !owner {
		return 0, newError(ReasonNotOwner, op, 0, nil)
	}

	approved, err := e.custody.IsApprovedForTransfer(ctx, asset, e.escrow)
	if err != nil {
		return 0, newError(ReasonTransferError, op, 0, fmt.Errorf("approval check for %s: %w", asset, err))
	}
	if !approved {
		return 0, newError(ReasonNotApproved, op, 0, nil)
	}

	now := e.clock.Now()
	if err := e.custody.Transfer(ctx, asset, seller, e.escrow); err != nil {
		return 0, newError(ReasonTransferError, op, 0, fmt.Errorf("custody transfer of %s: %w", asset, err))
	}

	rec := e.registry.create(seller, asset, now, now.Add(duration), reserve, description)
	log.Printf("INFO: Auction %d opened for %s by %s, ends %s", rec.ID, asset, seller, rec.EndTime.Format(time.RFC3339))

	e.emit(Event{
		Type:         EventPutToAuction,
		AuctionID:    rec.ID,
		Seller:       seller,
		Collection:   asset.Collection,
		Item:         asset.Item,
		Duration:     duration,
		ReservePrice: reserve,
		Description:  description,
		Timestamp:    now,
	})
	return rec.ID, nil
}

// PlaceBid accepts amount from bidder as the new highest bid of auction id.
// The outgoing highest bidder is refunded in the same transition.
func (e *Engine) PlaceBid(ctx context.Context, id uint64, bidder Account, amount Amount) error {
	const op = "placeBid"

	if bidder == "" || !validAmount(amount) {
		return newError(ReasonInvalidInput, op, id, fmt.Errorf("bid amount must be a positive whole number of base units"))
	}

	ent, ok := e.registry.lookup(id)
	if !ok {
		return newError(ReasonNotExists, op, id, nil)
	}
	ent.mu.Lock()
	defer ent.mu.Unlock()

	now := e.clock.Now()
	if ent.record.Status.Closed() || ent.record.Ended(now) {
		return newError(ReasonNotExists, op, id, nil)
	}
	if err := ent.bids.check(amount, ent.record.ReservePrice); err != nil {
		return newError(ReasonAmountError, op, id, fmt.Errorf("bid %s does not beat %s", FormatUnits(amount), FormatUnits(ent.record.HighestBid)))
	}

	prevBidder, prevAmount, hasPrev := ent.bids.outgoing()
	err := e.txn.Atomic(ctx, func(ctx context.Context) error {
		if err := e.value.Collect(ctx, bidder, amount); err != nil {
			return fmt.Errorf("collect %s from %s: %w", FormatUnits(amount), bidder, err)
		}
		if !hasPrev {
			return nil
		}
		if err := e.value.Send(ctx, prevBidder, prevAmount); err != nil {
			refundErr := fmt.Errorf("refund %s to %s: %w", FormatUnits(prevAmount), prevBidder, err)
			if _, noRollback := e.txn.(passthroughTransactor); noRollback {
				// Nothing reverts for us; hand the new bidder's value back.
				if rerr := e.value.Send(ctx, bidder, amount); rerr != nil {
					log.Printf("ERROR: Auction %d: failed to return %s to %s after refund failure: %v", id, FormatUnits(amount), bidder, rerr)
				}
			}
			return refundErr
		}
		return nil
	})
	if err != nil {
		return newError(ReasonTransferError, op, id, err)
	}

	ent.bids.accept(bidder, amount, now)
	ent.record.HighestBid = amount
	ent.record.HighestBidder = bidder
	ent.record.BidCount++

	e.emit(Event{
		Type:      EventBidAdd,
		AuctionID: id,
		Bidder:    bidder,
		Amount:    amount,
		Timestamp: now,
	})
	return nil
}

// ClaimBid settles an ended auction: the asset goes to the highest bidder and the
// winning funds to the seller. Either of those two parties may trigger it.
func (e *Engine) ClaimBid(ctx context.Context, id uint64, caller Account) error {
	const op = "claimBid"

	ent, ok := e.registry.lookup(id)
	if !ok {
		return newError(ReasonNotExists, op, id, nil)
	}
	ent.mu.Lock()
	defer ent.mu.Unlock()

	rec := ent.record
	now := e.clock.Now()
	if rec.Status.Closed() {
		return newError(ReasonAlreadyClosed, op, id, nil)
	}
	if !rec.Ended(now) || !rec.HasBid() {
		return newError(ReasonNotExists, op, id, nil)
	}
	if caller != rec.HighestBidder && caller != rec.Seller {
		return newError(ReasonInvalidCall, op, id, nil)
	}

	err := e.txn.Atomic(ctx, func(ctx context.Context) error {
		if err := e.custody.Transfer(ctx, rec.Asset, e.escrow, rec.HighestBidder); err != nil {
			return fmt.Errorf("deliver %s to %s: %w", rec.Asset, rec.HighestBidder, err)
		}
		if err := e.value.Send(ctx, rec.Seller, rec.HighestBid); err != nil {
			payErr := fmt.Errorf("pay %s to %s: %w", FormatUnits(rec.HighestBid), rec.Seller, err)
			if _, noRollback := e.txn.(passthroughTransactor); noRollback {
				if rerr := e.custody.Transfer(ctx, rec.Asset, rec.HighestBidder, e.escrow); rerr != nil {
					log.Printf("ERROR: Auction %d: failed to return %s to escrow after payout failure: %v", id, rec.Asset, rerr)
				}
			}
			return payErr
		}
		return nil
	})
	if err != nil {
		return newError(ReasonTransferError, op, id, err)
	}

	if err := e.registry.close(ent, StatusSettled); err != nil {
		return err
	}
	log.Printf("INFO: Auction %d settled: %s won %s for %s", id, rec.HighestBidder, rec.Asset, FormatUnits(rec.HighestBid))

	e.emit(Event{
		Type:       EventSettled,
		AuctionID:  id,
		Winner:     rec.HighestBidder,
		Seller:     rec.Seller,
		Collection: rec.Asset.Collection,
		Item:       rec.Asset.Item,
		Amount:     rec.HighestBid,
		Timestamp:  now,
	})
	return nil
}

// RevokeAuction returns the asset of an ended, bidless auction to its seller.
// Cancelling before the end time is not supported.
func (e *Engine) RevokeAuction(ctx context.Context, id uint64, caller Account) error {
	const op = "revokeAuction"

	ent, ok := e.registry.lookup(id)
	if !ok {
		return newError(ReasonNotExists, op, id, nil)
	}
	ent.mu.Lock()
	defer ent.mu.Unlock()

	rec := ent.record
	now := e.clock.Now()
	if rec.Status.Closed() {
		return newError(ReasonNotExists, op, id, fmt.Errorf("auction already %s", rec.Status))
	}
	if !rec.Ended(now) || rec.HasBid() {
		return newError(ReasonNotExists, op, id, nil)
	}
	if caller != rec.Seller {
		return newError(ReasonInvalidCall, op, id, nil)
	}

	err := e.txn.Atomic(ctx, func(ctx context.Context) error {
		return e.custody.Transfer(ctx, rec.Asset, e.escrow, rec.Seller)
	})
	if err != nil {
		return newError(ReasonTransferError, op, id, fmt.Errorf("return %s to %s: %w", rec.Asset, rec.Seller, err))
	}

	if err := e.registry.close(ent, StatusRevoked); err != nil {
		return err
	}
	log.Printf("INFO: Auction %d revoked, %s returned to %s", id, rec.Asset, rec.Seller)

	e.emit(Event{
		Type:       EventAuctionRevoked,
		AuctionID:  id,
		Seller:     rec.Seller,
		Collection: rec.Asset.Collection,
		Item:       rec.Asset.Item,
		Timestamp:  now,
	})
	return nil
}

// Receive rejects value sent to the escrow outside of PlaceBid.
func (e *Engine) Receive(_ context.Context, from Account, amount Amount) error {
	log.Printf("WARNING: Rejected direct transfer of %s from %s", FormatUnits(amount), from)
	return newError(ReasonForceValueNotAccepted, "receive", 0, nil)
}

func (e *Engine) emit(ev Event) {
	ev.Hash = ComputeEventHash(ev)
	e.notifier.Notify(ev)
}
