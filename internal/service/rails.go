package service

import (
	"context"
	"fmt"
	"strings"

	"finance-service/internal/domain"
	"finance-service/internal/xerrors"
)

// RailProvider executes a withdrawal on one external money rail.
// Execute returns the rail's reference for the transfer; an error means
// the transfer did not happen and the reservation must be released.
type RailProvider interface {
	Method() domain.WithdrawalMethod
	Execute(ctx context.Context, tx *domain.Transaction) (string, error)
}

// RailRegistry resolves providers by withdrawal method
type RailRegistry struct {
	providers map[domain.WithdrawalMethod]RailProvider
}

// NewRailRegistry registers the supported rails
func NewRailRegistry() *RailRegistry {
	r := &RailRegistry{providers: make(map[domain.WithdrawalMethod]RailProvider)}
	r.Register(&bankTransferRail{})
	r.Register(&paypalRail{})
	r.Register(&wiseRail{})
	r.Register(&cryptoRail{})
	r.Register(&platformBalanceRail{})
	return r
}

// Register adds a provider to the registry
func (r *RailRegistry) Register(p RailProvider) {
	r.providers[p.Method()] = p
}

// Provider returns the rail for a withdrawal method
func (r *RailRegistry) Provider(method domain.WithdrawalMethod) (RailProvider, error) {
	p, ok := r.providers[method]
	if !ok {
		return nil, fmt.Errorf("%w: %s", xerrors.ErrUnknownWithdrawalMethod, method)
	}
	return p, nil
}

// Execute runs the transaction's withdrawal on its rail
func (r *RailRegistry) Execute(ctx context.Context, tx *domain.Transaction) (string, error) {
	if tx.WithdrawalMethod == nil {
		return "", xerrors.ErrNoWithdrawalMethod
	}
	p, err := r.Provider(*tx.WithdrawalMethod)
	if err != nil {
		return "", err
	}
	return p.Execute(ctx, tx)
}

// ===============================
// RAIL IMPLEMENTATIONS
// ===============================

// The rails below stand in for the real transfer integrations; each
// validates the destination and issues a reference carrying the rail
// prefix and the transaction id, which downstream systems route on.

type bankTransferRail struct{}

func (b *bankTransferRail) Method() domain.WithdrawalMethod { return domain.WithdrawalMethodBankTransfer }

func (b *bankTransferRail) Execute(ctx context.Context, tx *domain.Transaction) (string, error) {
	dest := destination(tx)
	if dest == "" {
		return "", fmt.Errorf("bank transfer requires an account number")
	}
	return fmt.Sprintf("BANK-%s", tx.ID), nil
}

type paypalRail struct{}

func (p *paypalRail) Method() domain.WithdrawalMethod { return domain.WithdrawalMethodPayPal }

func (p *paypalRail) Execute(ctx context.Context, tx *domain.Transaction) (string, error) {
	dest := destination(tx)
	if !strings.Contains(dest, "@") {
		return "", fmt.Errorf("invalid paypal destination: %q", dest)
	}
	return fmt.Sprintf("PP-%s", tx.ID), nil
}

type wiseRail struct{}

func (w *wiseRail) Method() domain.WithdrawalMethod { return domain.WithdrawalMethodWise }

func (w *wiseRail) Execute(ctx context.Context, tx *domain.Transaction) (string, error) {
	dest := destination(tx)
	if dest == "" {
		return "", fmt.Errorf("wise requires an account id")
	}
	return fmt.Sprintf("WISE-%s", tx.ID), nil
}

type cryptoRail struct{}

func (c *cryptoRail) Method() domain.WithdrawalMethod { return domain.WithdrawalMethodCrypto }

func (c *cryptoRail) Execute(ctx context.Context, tx *domain.Transaction) (string, error) {
	dest := destination(tx)
	if len(dest) < 20 {
		return "", fmt.Errorf("invalid crypto address: %q", dest)
	}
	return fmt.Sprintf("CRYPTO-%s", tx.ID), nil
}

// platformBalanceRail keeps funds inside the platform; no external
// movement happens, the transfer completes immediately.
type platformBalanceRail struct{}

func (p *platformBalanceRail) Method() domain.WithdrawalMethod {
	return domain.WithdrawalMethodPlatformBalance
}

func (p *platformBalanceRail) Execute(ctx context.Context, tx *domain.Transaction) (string, error) {
	return fmt.Sprintf("INT-%s", tx.ID), nil
}

func destination(tx *domain.Transaction) string {
	if tx.WithdrawalDestination == nil {
		return ""
	}
	return strings.TrimSpace(*tx.WithdrawalDestination)
}
