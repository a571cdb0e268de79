// Package custody provides an in-memory ledger that plays both external collaborators of
// the auction engine: an ERC-721 style asset book and a native value ledger. It is the
// backend of the auction daemon and of the engine tests.
package custody

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/cloudx-io/escrowauction/core"
)

var (
	ErrUnknownCollection = errors.New("unknown collection")
	ErrUnknownAsset      = errors.New("asset does not exist")
	ErrAlreadyMinted     = errors.New("asset already minted")
	ErrNotAuthorized     = errors.New("operator not authorized for asset")
	ErrWrongOwner        = errors.New("from is not the asset owner")
	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrPaymentRejected   = errors.New("recipient rejects payments")
	ErrInvalidAmount     = errors.New("amount must be positive")
)

// World is the ledger state. The operator is the account on whose behalf Transfer is
// invoked (the auction escrow); it is also the source of Send and the sink of Collect.
type World struct {
	mu          sync.Mutex
	operator    core.Account
	collections map[core.Account]bool
	owners      map[core.AssetRef]core.Account
	approvals   map[core.AssetRef]core.Account
	operators   map[core.Account]map[core.Account]bool
	balances    map[core.Account]decimal.Decimal
	rejecting   map[core.Account]bool
}

// NewWorld returns an empty ledger operated by operator.
func NewWorld(operator core.Account) *World {
	return &World{
		operator:    operator,
		collections: make(map[core.Account]bool),
		owners:      make(map[core.AssetRef]core.Account),
		approvals:   make(map[core.AssetRef]core.Account),
		operators:   make(map[core.Account]map[core.Account]bool),
		balances:    make(map[core.Account]decimal.Decimal),
		rejecting:   make(map[core.Account]bool),
	}
}

// Operator returns the account the ledger moves assets and value on behalf of.
func (w *World) Operator() core.Account { return w.operator }

// AddCollection registers a collection so assets can be minted into it.
func (w *World) AddCollection(collection core.Account) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.collections[collection] = true
}

// Mint creates asset and assigns it to owner. The collection is registered on first use.
func (w *World) Mint(asset core.AssetRef, owner core.Account) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if _, exists := w.owners[asset]; exists {
		return fmt.Errorf("mint %s: %w", asset, ErrAlreadyMinted)
	}
	w.collections[asset.Collection] = true
	w.owners[asset] = owner
	return nil
}

// Approve lets operator move a single asset. Only the current owner may approve.
func (w *World) Approve(asset core.AssetRef, owner, operator core.Account) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	current, err := w.ownerLocked(asset)
	if err != nil {
		return err
	}
	if current != owner {
		return fmt.Errorf("approve %s: %w", asset, ErrWrongOwner)
	}
	w.approvals[asset] = operator
	return nil
}

// SetApprovalForAll lets operator move every asset of owner.
func (w *World) SetApprovalForAll(owner, operator core.Account, approved bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.operators[owner] == nil {
		w.operators[owner] = make(map[core.Account]bool)
	}
	w.operators[owner][operator] = approved
}

// OwnerOf returns the current owner of asset.
func (w *World) OwnerOf(asset core.AssetRef) (core.Account, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.ownerLocked(asset)
}

// Fund credits amount to account.
func (w *World) Fund(account core.Account, amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return ErrInvalidAmount
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	w.balances[account] = w.balanceLocked(account).Add(amount)
	return nil
}

// BalanceOf returns the native balance of account.
func (w *World) BalanceOf(account core.Account) decimal.Decimal {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.balanceLocked(account)
}

// RejectPayments makes every Send to account fail, the way a contract without a payable
// fallback refuses value.
func (w *World) RejectPayments(account core.Account, reject bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.rejecting[account] = reject
}

// IsOwner implements core.AssetCustody.
func (w *World) IsOwner(_ context.Context, asset core.AssetRef, account core.Account) (bool, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	owner, err := w.ownerLocked(asset)
	if err != nil {
		if errors.Is(err, ErrUnknownAsset) {
			return false, nil
		}
		return false, err
	}
	return owner == account, nil
}

// IsApprovedForTransfer implements core.AssetCustody.
func (w *World) IsApprovedForTransfer(_ context.Context, asset core.AssetRef, operator core.Account) (bool, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	owner, err := w.ownerLocked(asset)
	if err != nil {
		if errors.Is(err, ErrUnknownAsset) {
			return false, nil
		}
		return false, err
	}
	return w.authorizedLocked(asset, owner, operator), nil
}

// Transfer implements core.AssetCustody. The ledger operator must own the asset or be
// approved by its owner. Any single-asset approval is cleared.
func (w *World) Transfer(ctx context.Context, asset core.AssetRef, from, to core.Account) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	owner, err := w.ownerLocked(asset)
	if err != nil {
		return err
	}
	if owner != from {
		return fmt.Errorf("transfer %s from %s: %w", asset, from, ErrWrongOwner)
	}
	if !w.authorizedLocked(asset, owner, w.operator) {
		return fmt.Errorf("transfer %s by %s: %w", asset, w.operator, ErrNotAuthorized)
	}

	prevApproval, hadApproval := w.approvals[asset]
	w.owners[asset] = to
	delete(w.approvals, asset)

	w.record(ctx, func() {
		w.owners[asset] = owner
		if hadApproval {
			w.approvals[asset] = prevApproval
		}
	})
	return nil
}

// Send implements core.ValueTransfer: pays amount from the operator's balance.
func (w *World) Send(ctx context.Context, to core.Account, amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return ErrInvalidAmount
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.rejecting[to] {
		return fmt.Errorf("send to %s: %w", to, ErrPaymentRejected)
	}
	return w.moveLocked(ctx, w.operator, to, amount)
}

// Collect implements core.ValueTransfer: pulls amount from an account into the operator's balance.
func (w *World) Collect(ctx context.Context, from core.Account, amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return ErrInvalidAmount
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.moveLocked(ctx, from, w.operator, amount)
}

func (w *World) moveLocked(ctx context.Context, from, to core.Account, amount decimal.Decimal) error {
	fromBalance := w.balanceLocked(from)
	if fromBalance.LessThan(amount) {
		return fmt.Errorf("move %s from %s: %w", core.FormatUnits(amount), from, ErrInsufficientFunds)
	}
	w.balances[from] = fromBalance.Sub(amount)
	w.balances[to] = w.balanceLocked(to).Add(amount)

	w.record(ctx, func() {
		w.balances[to] = w.balances[to].Sub(amount)
		w.balances[from] = w.balances[from].Add(amount)
	})
	return nil
}

func (w *World) ownerLocked(asset core.AssetRef) (core.Account, error) {
	if !w.collections[asset.Collection] {
		return "", fmt.Errorf("%s: %w", asset.Collection, ErrUnknownCollection)
	}
	owner, ok := w.owners[asset]
	if !ok {
		return "", fmt.Errorf("%s: %w", asset, ErrUnknownAsset)
	}
	return owner, nil
}

func (w *World) authorizedLocked(asset core.AssetRef, owner, operator core.Account) bool {
	return owner == operator || w.approvals[asset] == operator || w.operators[owner][operator]
}

func (w *World) balanceLocked(account core.Account) decimal.Decimal {
	if b, ok := w.balances[account]; ok {
		return b
	}
	return decimal.Zero
}
