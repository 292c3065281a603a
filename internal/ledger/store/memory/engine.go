package memory

import (
	"context"
	"sync"

	"cac/pkg/domain"
	dErrors "cac/pkg/domain-errors"
)

// InMemoryEngine keeps all accounting state behind one RWMutex. Mutating
// calls serialize through the write lock, so each operation commits in full
// before the next is observed; reads serve the last-committed state.
type InMemoryEngine struct {
	mu          sync.RWMutex
	balances    map[domain.Address]int64
	allowances  map[domain.Address]map[domain.Address]int64
	quotas      map[domain.Address]int64
	totalSupply int64
}

func New() *InMemoryEngine {
	return &InMemoryEngine{
		balances:   make(map[domain.Address]int64),
		allowances: make(map[domain.Address]map[domain.Address]int64),
		quotas:     make(map[domain.Address]int64),
	}
}

func (e *InMemoryEngine) Mint(_ context.Context, account domain.Address, amount int64) error {
	if amount <= 0 {
		return dErrors.New(dErrors.CodeInvalidAmount, "mint amount must be positive")
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	e.balances[account] += amount
	e.totalSupply += amount
	return nil
}

func (e *InMemoryEngine) MintFromQuota(_ context.Context, account domain.Address, amount int64) error {
	if amount <= 0 {
		return dErrors.New(dErrors.CodeInvalidAmount, "mint amount must be positive")
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.quotas[account] < amount {
		return dErrors.New(dErrors.CodeQuotaExceeded, "amount exceeds remaining quota")
	}
	e.quotas[account] -= amount
	e.balances[account] += amount
	e.totalSupply += amount
	return nil
}

func (e *InMemoryEngine) SetQuota(_ context.Context, account domain.Address, remaining int64) error {
	if remaining < 0 {
		return dErrors.New(dErrors.CodeInvalidAmount, "quota cannot be negative")
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	e.quotas[account] = remaining
	return nil
}

func (e *InMemoryEngine) Transfer(_ context.Context, from, to domain.Address, amount int64) error {
	if amount <= 0 {
		return dErrors.New(dErrors.CodeInvalidAmount, "transfer amount must be positive")
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	return e.move(from, to, amount)
}

func (e *InMemoryEngine) Approve(_ context.Context, owner, spender domain.Address, amount int64) error {
	if amount < 0 {
		return dErrors.New(dErrors.CodeInvalidAmount, "allowance cannot be negative")
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.allowances[owner] == nil {
		e.allowances[owner] = make(map[domain.Address]int64)
	}
	e.allowances[owner][spender] = amount
	return nil
}

func (e *InMemoryEngine) TransferFrom(_ context.Context, spender, from, to domain.Address, amount int64) error {
	if amount <= 0 {
		return dErrors.New(dErrors.CodeInvalidAmount, "transfer amount must be positive")
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.allowances[from][spender] < amount {
		return dErrors.New(dErrors.CodeInsufficientAllowance, "allowance does not cover amount")
	}
	if err := e.move(from, to, amount); err != nil {
		return err
	}
	e.allowances[from][spender] -= amount
	return nil
}

func (e *InMemoryEngine) Burn(_ context.Context, account domain.Address, amount int64) error {
	if amount <= 0 {
		return dErrors.New(dErrors.CodeInvalidAmount, "burn amount must be positive")
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.balances[account] < amount {
		return dErrors.New(dErrors.CodeInsufficientBalance, "balance does not cover amount")
	}
	e.balances[account] -= amount
	e.totalSupply -= amount
	return nil
}

func (e *InMemoryEngine) BalanceOf(_ context.Context, account domain.Address) (int64, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.balances[account], nil
}

func (e *InMemoryEngine) Allowance(_ context.Context, owner, spender domain.Address) (int64, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.allowances[owner][spender], nil
}

func (e *InMemoryEngine) QuotaOf(_ context.Context, account domain.Address) (int64, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.quotas[account], nil
}

func (e *InMemoryEngine) TotalSupply(_ context.Context) (int64, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.totalSupply, nil
}

// move is the single balance mutation path. Callers hold the write lock.
func (e *InMemoryEngine) move(from, to domain.Address, amount int64) error {
	if e.balances[from] < amount {
		return dErrors.New(dErrors.CodeInsufficientBalance, "balance does not cover amount")
	}
	e.balances[from] -= amount
	e.balances[to] += amount
	return nil
}
