// Package funds is the registry's port to the caller's money. The engine
// withdraws exactly the quoted cost and deposits it back if the operation
// fails after the withdrawal, keeping payment and record mutation atomic as
// a unit. Production backends live outside this repository; the in-memory
// ledger serves tests and development.
package funds

import (
	"context"
	"errors"
	"sync"

	"registrar/pkg/domain"
)

// ErrInsufficientFunds is returned when a source cannot cover a withdrawal.
var ErrInsufficientFunds = errors.New("insufficient funds")

// Source moves value out of and back into an owner's balance.
type Source interface {
	// Withdraw removes amount from the owner's balance, or fails with
	// ErrInsufficientFunds leaving the balance untouched.
	Withdraw(ctx context.Context, owner domain.OwnerAddress, amount domain.Amount) error
	// Deposit returns amount to the owner's balance. Used for rollback;
	// must not fail for amounts previously withdrawn.
	Deposit(ctx context.Context, owner domain.OwnerAddress, amount domain.Amount) error
}

// InMemoryLedger is a Source backed by a balance map.
type InMemoryLedger struct {
	mu       sync.Mutex
	balances map[domain.OwnerAddress]domain.Amount
}

func NewInMemoryLedger() *InMemoryLedger {
	return &InMemoryLedger{balances: make(map[domain.OwnerAddress]domain.Amount)}
}

// Credit funds an owner's balance. Test and development seeding only.
func (l *InMemoryLedger) Credit(owner domain.OwnerAddress, amount domain.Amount) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.balances[owner] += amount
}

// Balance reports the owner's current balance.
func (l *InMemoryLedger) Balance(owner domain.OwnerAddress) domain.Amount {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.balances[owner]
}

func (l *InMemoryLedger) Withdraw(_ context.Context, owner domain.OwnerAddress, amount domain.Amount) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	balance := l.balances[owner]
	if balance.Cmp(amount) < 0 {
		return ErrInsufficientFunds
	}
	l.balances[owner] = balance - amount
	return nil
}

func (l *InMemoryLedger) Deposit(_ context.Context, owner domain.OwnerAddress, amount domain.Amount) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.balances[owner] += amount
	return nil
}
