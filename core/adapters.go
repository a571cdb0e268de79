package core

import "context"

// AssetCustody verifies and moves non-fungible assets. The engine never implements
// asset semantics itself.
type AssetCustody interface {
	IsOwner(ctx context.Context, asset AssetRef, account Account) (bool, error)
	IsApprovedForTransfer(ctx context.Context, asset AssetRef, operator Account) (bool, error)
	Transfer(ctx context.Context, asset AssetRef, from, to Account) error
}

// ValueTransfer moves native value between accounts and the escrow.
// Implementations must report failure rather than drop funds.
type ValueTransfer interface {
	// Send pays amount out of escrow to the given account.
	Send(ctx context.Context, to Account, amount Amount) error
	// Collect pulls the value attached to a bid from the bidder into escrow.
	Collect(ctx context.Context, from Account, amount Amount) error
}

// Transactor is implemented by backends that can group adapter calls so that either all
// of them take effect or none do. Adapter calls made with the context passed to fn belong
// to the group; when fn returns an error they are all reverted.
type Transactor interface {
	Atomic(ctx context.Context, fn func(ctx context.Context) error) error
}

type passthroughTransactor struct{}

func (passthroughTransactor) Atomic(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}
