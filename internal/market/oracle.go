package market

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Rhymond/go-money"
	"github.com/piquette/finance-go/quote"
	"github.com/rs/zerolog/log"
)

type Source string

const (
	SourceLive   Source = "live"
	SourceStatic Source = "static"
	SourceNone   Source = "none"
)

var ErrUnknownSymbol = errors.New("unknown symbol")

// Asset is a tracked coin and the market pair used to price it.
type Asset struct {
	ID   string
	Name string
	Pair string
}

// Assets in menu order.
var Assets = []Asset{
	{ID: "bitcoin", Name: "Bitcoin", Pair: "BTC-USD"},
	{ID: "ethereum", Name: "Ethereum", Pair: "ETH-USD"},
	{ID: "solana", Name: "Solana", Pair: "SOL-USD"},
	{ID: "cardano", Name: "Cardano", Pair: "ADA-USD"},
	{ID: "xrp", Name: "XRP", Pair: "XRP-USD"},
}

var aliases = map[string]string{
	"btc": "bitcoin", "bitcoin": "bitcoin", "xbt": "bitcoin",
	"eth": "ethereum", "ethereum": "ethereum", "ether": "ethereum",
	"sol": "solana", "solana": "solana",
	"ada": "cardano", "cardano": "cardano",
	"xrp": "xrp", "ripple": "xrp",
}

// StaticPrices are illustrative last-known prices in USD.
var StaticPrices = map[string]float64{
	"bitcoin":  102000,
	"ethereum": 2650,
	"solana":   154,
	"cardano":  0.57,
	"xrp":      2.30,
}

type Quote struct {
	Symbol    string  `json:"symbol"`
	Pair      string  `json:"pair,omitempty"`
	Price     float64 `json:"price"`
	Source    Source  `json:"source"`
	Available bool    `json:"available"`
}

// Display renders the price as USD, or a neutral line when unavailable.
func (q Quote) Display() string {
	if !q.Available {
		return "precio no disponible"
	}
	return FormatUSD(q.Price)
}

func FormatUSD(amount float64) string {
	return money.NewFromFloat(amount, money.USD).Display()
}

// Quoter fetches the latest price for a market pair such as "BTC-USD".
type Quoter interface {
	LastPrice(ctx context.Context, pair string) (float64, error)
}

// Lookup resolves a user-supplied symbol to a tracked asset.
func Lookup(symbol string) (Asset, error) {
	id, ok := aliases[strings.ToLower(strings.TrimSpace(symbol))]
	if !ok {
		return Asset{}, fmt.Errorf("%q: %w", symbol, ErrUnknownSymbol)
	}
	for _, a := range Assets {
		if a.ID == id {
			return a, nil
		}
	}
	return Asset{}, fmt.Errorf("%q: %w", symbol, ErrUnknownSymbol)
}

type Oracle struct {
	live    Quoter // nil in the static profile
	timeout time.Duration
}

// NewOracle builds an oracle. A nil quoter selects the static-table profile.
func NewOracle(live Quoter, timeout time.Duration) *Oracle {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Oracle{live: live, timeout: timeout}
}

// Price never returns a stale or zero price as a valid result: failures
// degrade to the static table and unknown symbols are reported unavailable.
func (o *Oracle) Price(ctx context.Context, symbol string) Quote {
	asset, err := Lookup(symbol)
	if err != nil {
		log.Debug().Str("symbol", symbol).Msg("Unknown symbol requested")
		return Quote{Symbol: strings.ToLower(strings.TrimSpace(symbol)), Source: SourceNone}
	}

	if o.live != nil {
		price, err := o.lookupLive(ctx, asset.Pair)
		if err == nil {
			return Quote{Symbol: asset.ID, Pair: asset.Pair, Price: price, Source: SourceLive, Available: true}
		}
		log.Warn().Err(err).Str("symbol", asset.ID).Msg("Live price lookup failed, using static table")
	}

	if price, ok := StaticPrices[asset.ID]; ok && price > 0 {
		return Quote{Symbol: asset.ID, Pair: asset.Pair, Price: price, Source: SourceStatic, Available: true}
	}
	return Quote{Symbol: asset.ID, Pair: asset.Pair, Source: SourceNone}
}

// Prices quotes every tracked asset sequentially, in menu order.
func (o *Oracle) Prices(ctx context.Context) []Quote {
	quotes := make([]Quote, 0, len(Assets))
	for _, a := range Assets {
		quotes = append(quotes, o.Price(ctx, a.ID))
	}
	return quotes
}

func (o *Oracle) lookupLive(ctx context.Context, pair string) (float64, error) {
	ctx, cancel := context.WithTimeout(ctx, o.timeout)
	defer cancel()

	price, err := o.live.LastPrice(ctx, pair)
	if err != nil {
		return 0, err
	}
	if price <= 0 {
		return 0, fmt.Errorf("non-positive price %v for %s", price, pair)
	}
	return price, nil
}

// YahooQuoter queries Yahoo Finance through finance-go. The library has no
// context support, so the call runs in a goroutine and is abandoned when the
// context expires.
type YahooQuoter struct{}

func (YahooQuoter) LastPrice(ctx context.Context, pair string) (float64, error) {
	type result struct {
		price float64
		err   error
	}
	done := make(chan result, 1)

	go func() {
		q, err := quote.Get(pair)
		if err != nil {
			done <- result{err: fmt.Errorf("failed to get quote for %s: %w", pair, err)}
			return
		}
		if q == nil {
			done <- result{err: fmt.Errorf("no quote returned for %s", pair)}
			return
		}
		done <- result{price: q.RegularMarketPrice}
	}()

	select {
	case r := <-done:
		return r.price, r.err
	case <-ctx.Done():
		return 0, fmt.Errorf("quote for %s: %w", pair, ctx.Err())
	}
}
