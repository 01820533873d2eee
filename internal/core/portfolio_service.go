package core

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"

	"omnix.dev/omnix-bot/internal/store"
)

// PortfolioStore is the persistence the portfolio service needs.
type PortfolioStore interface {
	GetOrCreatePortfolio(ctx context.Context, userID string) (*store.Portfolio, error)
}

type PortfolioService struct {
	store PortfolioStore
}

func NewPortfolioService(s PortfolioStore) *PortfolioService {
	return &PortfolioService{store: s}
}

// Get never fails: a storage error is logged and the default portfolio returned.
func (s *PortfolioService) Get(ctx context.Context, userID string) *store.Portfolio {
	if s.store == nil {
		return store.NewDefaultPortfolio(userID)
	}
	p, err := s.store.GetOrCreatePortfolio(ctx, userID)
	if err != nil {
		log.Warn().Err(err).Str("user_id", userID).Msg("Portfolio read failed, returning defaults")
		return store.NewDefaultPortfolio(userID)
	}
	return p
}

// Summary renders the portfolio for chat delivery.
func Summary(p *store.Portfolio, formatUSD func(float64) string) string {
	var b strings.Builder
	balance, _ := p.Balance.Float64()
	b.WriteString("💼 Tu Portfolio OMNIX\n\n")
	fmt.Fprintf(&b, "💰 Balance: %s USD\n", formatUSD(balance))
	for _, asset := range store.TrackedAssets {
		fmt.Fprintf(&b, "• %s: %s\n", strings.ToUpper(asset[:1])+asset[1:], p.Holdings[asset].String())
	}
	fmt.Fprintf(&b, "📊 Trades realizados: %d\n", p.Trades)
	b.WriteString("🎯 ¡Listo para trading virtual!")
	return b.String()
}
