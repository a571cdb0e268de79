package core

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

const (
	testEscrow Account = "0xescrow"
	testSeller Account = "0xowner"
	alice      Account = "0xalice"
	bob        Account = "0xbob"
	carol      Account = "0xcarol"
	collection Account = "0xminimalerc721"
	oneDay             = 86400 * time.Second
)

var testAsset = AssetRef{Collection: collection, Item: 1}

// fakeClock is a settable Clock.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type transferCall struct {
	Asset    AssetRef
	From, To Account
}

// mockCustody is an asset book with optional failure hooks.
type mockCustody struct {
	mu           sync.Mutex
	owners       map[AssetRef]Account
	approved     map[AssetRef]Account
	transfers    []transferCall
	IsOwnerFunc  func(asset AssetRef, account Account) (bool, error)
	TransferFunc func(asset AssetRef, from, to Account) error
}

func newMockCustody() *mockCustody {
	return &mockCustody{
		owners:   map[AssetRef]Account{testAsset: testSeller},
		approved: map[AssetRef]Account{},
	}
}

func (m *mockCustody) approve(asset AssetRef, operator Account) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.approved[asset] = operator
}

func (m *mockCustody) ownerOf(asset AssetRef) Account {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.owners[asset]
}

func (m *mockCustody) IsOwner(_ context.Context, asset AssetRef, account Account) (bool, error) {
	if m.IsOwnerFunc != nil {
		return m.IsOwnerFunc(asset, account)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.owners[asset] == account, nil
}

func (m *mockCustody) IsApprovedForTransfer(_ context.Context, asset AssetRef, operator Account) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.approved[asset] == operator, nil
}

func (m *mockCustody) Transfer(_ context.Context, asset AssetRef, from, to Account) error {
	if m.TransferFunc != nil {
		if err := m.TransferFunc(asset, from, to); err != nil {
			return err
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.owners[asset] != from {
		return fmt.Errorf("%s does not own %s", from, asset)
	}
	m.owners[asset] = to
	delete(m.approved, asset)
	m.transfers = append(m.transfers, transferCall{Asset: asset, From: from, To: to})
	return nil
}

type valueCall struct {
	Account Account
	Amount  string
}

// mockValue is a balance sheet with optional failure hooks. The escrow balance is
// tracked like any other account.
type mockValue struct {
	mu       sync.Mutex
	balances map[Account]decimal.Decimal
	sends    []valueCall
	collects []valueCall
	SendFunc func(to Account, amount Amount) error
}

func newMockValue() *mockValue {
	return &mockValue{balances: map[Account]decimal.Decimal{
		alice: Units(100),
		bob:   Units(100),
		carol: Units(100),
	}}
}

func (m *mockValue) balance(a Account) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return FormatUnits(m.balances[a])
}

func (m *mockValue) Send(_ context.Context, to Account, amount Amount) error {
	if m.SendFunc != nil {
		if err := m.SendFunc(to, amount); err != nil {
			return err
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.balances[testEscrow].LessThan(amount) {
		return fmt.Errorf("escrow underfunded")
	}
	m.balances[testEscrow] = m.balances[testEscrow].Sub(amount)
	m.balances[to] = m.balances[to].Add(amount)
	m.sends = append(m.sends, valueCall{Account: to, Amount: FormatUnits(amount)})
	return nil
}

func (m *mockValue) Collect(_ context.Context, from Account, amount Amount) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.balances[from].LessThan(amount) {
		return fmt.Errorf("insufficient funds")
	}
	m.balances[from] = m.balances[from].Sub(amount)
	m.balances[testEscrow] = m.balances[testEscrow].Add(amount)
	m.collects = append(m.collects, valueCall{Account: from, Amount: FormatUnits(amount)})
	return nil
}

type testEnv struct {
	engine  *Engine
	custody *mockCustody
	value   *mockValue
	clock   *fakeClock
	events  *RecordingNotifier
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	env := &testEnv{
		custody: newMockCustody(),
		value:   newMockValue(),
		clock:   newFakeClock(),
		events:  &RecordingNotifier{},
	}
	engine, err := NewEngine(Config{
		Escrow:   testEscrow,
		Custody:  env.custody,
		Value:    env.value,
		Notifier: env.events,
		Clock:    env.clock,
	})
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}
	env.engine = engine
	return env
}

// openAuction approves the escrow and lists testAsset for one day with a reserve of one unit.
func (env *testEnv) openAuction(t *testing.T) uint64 {
	t.Helper()
	env.custody.approve(testAsset, testEscrow)
	id, err := env.engine.PutOnAuction(context.Background(), testSeller, testAsset, oneDay, Units(1), "Bored ape Non-Fungible Token")
	if err != nil {
		t.Fatalf("PutOnAuction: %v", err)
	}
	return id
}
