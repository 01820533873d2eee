package store

import (
	"time"

	"github.com/shopspring/decimal"
)

// DefaultBalance is the virtual USD every new portfolio starts with.
var DefaultBalance = decimal.NewFromInt(10000)

// Asset identifiers tracked in a portfolio, in display order.
const (
	AssetBitcoin  = "bitcoin"
	AssetEthereum = "ethereum"
	AssetSolana   = "solana"
)

var TrackedAssets = []string{AssetBitcoin, AssetEthereum, AssetSolana}

// Chat types recorded alongside a conversation.
const (
	ChatTypeText  = "text"
	ChatTypeVoice = "voice"
	ChatTypeAPI   = "api"
)

type Portfolio struct {
	UserID    string                     `json:"user_id"`
	Balance   decimal.Decimal            `json:"balance"`
	Holdings  map[string]decimal.Decimal `json:"holdings"`
	Trades    int                        `json:"trades"`
	LastTrade *time.Time                 `json:"last_trade,omitempty"`
	CreatedAt time.Time                  `json:"created_at"`
}

// NewDefaultPortfolio returns the values a freshly created row holds.
func NewDefaultPortfolio(userID string) *Portfolio {
	holdings := make(map[string]decimal.Decimal, len(TrackedAssets))
	for _, asset := range TrackedAssets {
		holdings[asset] = decimal.Zero
	}
	return &Portfolio{
		UserID:   userID,
		Balance:  DefaultBalance,
		Holdings: holdings,
	}
}

type Conversation struct {
	ID        int64     `json:"id"`
	UserID    string    `json:"user_id"`
	Username  *string   `json:"username"` // Nullable
	Question  string    `json:"question"`
	Answer    string    `json:"answer"`
	Source    string    `json:"source"`
	ChatType  string    `json:"chat_type"`
	Timestamp time.Time `json:"timestamp"`
}
