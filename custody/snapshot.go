package custody

import (
	"fmt"
	"sort"

	"github.com/fxamacker/cbor/v2"
	"github.com/shopspring/decimal"

	"github.com/cloudx-io/escrowauction/core"
)

type assetState struct {
	Asset    core.AssetRef `cbor:"asset"`
	Owner    core.Account  `cbor:"owner"`
	Approved core.Account  `cbor:"approved,omitempty"`
}

type balanceState struct {
	Account core.Account    `cbor:"account"`
	Amount  decimal.Decimal `cbor:"amount"`
}

type operatorState struct {
	Owner    core.Account `cbor:"owner"`
	Operator core.Account `cbor:"operator"`
}

type worldSnapshot struct {
	Operator    core.Account    `cbor:"operator"`
	Collections []core.Account  `cbor:"collections"`
	Assets      []assetState    `cbor:"assets"`
	Balances    []balanceState  `cbor:"balances"`
	Operators   []operatorState `cbor:"operators"`
	Rejecting   []core.Account  `cbor:"rejecting"`
}

// Snapshot encodes the ledger as CBOR. Output is deterministic for a given state.
func (w *World) Snapshot() ([]byte, error) {
	w.mu.Lock()
	snap := worldSnapshot{Operator: w.operator}
	for c := range w.collections {
		snap.Collections = append(snap.Collections, c)
	}
	for asset, owner := range w.owners {
		snap.Assets = append(snap.Assets, assetState{Asset: asset, Owner: owner, Approved: w.approvals[asset]})
	}
	for account, amount := range w.balances {
		snap.Balances = append(snap.Balances, balanceState{Account: account, Amount: amount})
	}
	for owner, ops := range w.operators {
		for op, ok := range ops {
			if ok {
				snap.Operators = append(snap.Operators, operatorState{Owner: owner, Operator: op})
			}
		}
	}
	for account, ok := range w.rejecting {
		if ok {
			snap.Rejecting = append(snap.Rejecting, account)
		}
	}
	w.mu.Unlock()

	sort.Slice(snap.Collections, func(i, j int) bool { return snap.Collections[i] < snap.Collections[j] })
	sort.Slice(snap.Assets, func(i, j int) bool {
		a, b := snap.Assets[i].Asset, snap.Assets[j].Asset
		if a.Collection != b.Collection {
			return a.Collection < b.Collection
		}
		return a.Item < b.Item
	})
	sort.Slice(snap.Balances, func(i, j int) bool { return snap.Balances[i].Account < snap.Balances[j].Account })
	sort.Slice(snap.Operators, func(i, j int) bool {
		if snap.Operators[i].Owner != snap.Operators[j].Owner {
			return snap.Operators[i].Owner < snap.Operators[j].Owner
		}
		return snap.Operators[i].Operator < snap.Operators[j].Operator
	})
	sort.Slice(snap.Rejecting, func(i, j int) bool { return snap.Rejecting[i] < snap.Rejecting[j] })

	data, err := cbor.Marshal(snap)
	if err != nil {
		return nil, fmt.Errorf("failed to encode ledger snapshot: %w", err)
	}
	return data, nil
}

// Restore replaces the ledger state with a snapshot taken by Snapshot.
// The snapshot must have been taken from a ledger with the same operator.
func (w *World) Restore(data []byte) error {
	var snap worldSnapshot
	if err := cbor.Unmarshal(data, &snap); err != nil {
		return fmt.Errorf("failed to decode ledger snapshot: %w", err)
	}
	if snap.Operator != w.operator {
		return fmt.Errorf("ledger snapshot operator %s does not match %s", snap.Operator, w.operator)
	}

	restored := NewWorld(w.operator)
	for _, c := range snap.Collections {
		restored.collections[c] = true
	}
	for _, a := range snap.Assets {
		restored.owners[a.Asset] = a.Owner
		if a.Approved != "" {
			restored.approvals[a.Asset] = a.Approved
		}
	}
	for _, b := range snap.Balances {
		restored.balances[b.Account] = b.Amount
	}
	for _, o := range snap.Operators {
		if restored.operators[o.Owner] == nil {
			restored.operators[o.Owner] = make(map[core.Account]bool)
		}
		restored.operators[o.Owner][o.Operator] = true
	}
	for _, a := range snap.Rejecting {
		restored.rejecting[a] = true
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	w.collections = restored.collections
	w.owners = restored.owners
	w.approvals = restored.approvals
	w.operators = restored.operators
	w.balances = restored.balances
	w.rejecting = restored.rejecting
	return nil
}
