package bank

import (
	"context"
	"errors"
	"time"
)

var ErrProviderNotSupported = errors.New("bank provider is not supported")

const (
	MutationTypeCredit = "CR"
	MutationTypeDebit  = "DB"
)

// Mutation is one ledger line item as reported by the aggregator.
type Mutation struct {
	MutationID    string
	BankID        string
	AccountNumber string
	Date          time.Time
	Amount        int64
	Description   string
	Type          string
	Raw           string
}

// Provider lists ledger mutations from one external bank aggregator.
// Fetch failure means "no mutations observed this cycle", never a payment
// rejection; callers skip the cycle and rely on the next attempt.
type Provider interface {
	Name() string
	ListMutations(ctx context.Context, start, end time.Time, bankID string) ([]Mutation, error)
}

type Registry struct {
	providers map[string]Provider
}

func NewRegistry(providers ...Provider) *Registry {
	items := make(map[string]Provider, len(providers))
	for _, p := range providers {
		items[p.Name()] = p
	}
	return &Registry{providers: items}
}

func (r *Registry) Get(name string) (Provider, error) {
	provider, ok := r.providers[name]
	if !ok {
		return nil, ErrProviderNotSupported
	}
	return provider, nil
}
