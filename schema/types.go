package schema

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// ChainProvider describes one configured ledger endpoint.
// Identity is the chain id; a provider is never mutated after it is loaded.
type ChainProvider struct {
	ChainID    string `json:"chainId"`
	Name       string `json:"name"`
	RPCURL     string `json:"rpcUrl"`
	HistoryURL string `json:"historyUrl"`
	CoreSymbol string `json:"coreSymbol"`
}

func (p ChainProvider) ID() string { return p.ChainID }

type Permission struct {
	Name      string   `json:"name"` // e.g. "owner", "active"
	Threshold int      `json:"threshold"`
	Keys      []string `json:"keys"`
}

// Account is a named identity on one chain. Permissions are refreshed from
// the chain, never invented locally.
type Account struct {
	ChainID     string       `json:"chainId"`
	Name        string       `json:"name"`
	Permissions []Permission `json:"permissions"`
	Avatar      string       `json:"avatar"`
	Nickname    string       `json:"nickname"`
	Verified    bool         `json:"verified"`
}

func (a Account) ID() string {
	return a.ChainID + ":" + a.Name
}

// PublicKey returns the first key bound to the named permission, "" if none.
func (a Account) PublicKey(permission string) string {
	for _, p := range a.Permissions {
		if p.Name == permission && len(p.Keys) > 0 {
			return p.Keys[0]
		}
	}
	return ""
}

type TokenContract struct {
	ChainID     string          `json:"chainId"`
	Contract    string          `json:"contract"`
	Symbol      string          `json:"symbol"`
	Precision   int32           `json:"precision"`
	Supply      decimal.Decimal `json:"supply"`
	Rate        decimal.Decimal `json:"rate"` // fiat rate, cached locally, survives merges
	Blacklisted bool            `json:"blacklisted"`
}

func (t TokenContract) ID() string {
	return t.ChainID + ":" + t.Contract + ":" + t.Symbol
}

type TokenBalance struct {
	AccountID string          `json:"accountId"` // chainId:name
	Contract  string          `json:"contract"`
	Symbol    string          `json:"symbol"`
	Precision int32           `json:"precision"`
	Amount    decimal.Decimal `json:"amount"`
}

func (b TokenBalance) ID() string {
	return b.AccountID + ":" + b.Contract + ":" + b.Symbol
}

// Quantity renders the amount in on-chain asset form, e.g. "1.0000 TOK".
func (b TokenBalance) Quantity() string {
	return fmt.Sprintf("%s %s", b.Amount.StringFixed(b.Precision), b.Symbol)
}

// TokenTransferAction is one historical transfer event, immutable once recorded.
type TokenTransferAction struct {
	ChainID        string          `json:"chainId" gorm:"index:idx_acct"`
	AccountID      string          `json:"accountId" gorm:"index:idx_acct"`
	TokenBalanceID string          `json:"tokenBalanceId" gorm:"index"`
	From           string          `json:"from"`
	To             string          `json:"to"`
	Amount         decimal.Decimal `json:"amount" gorm:"type:decimal(32,8)"`
	Symbol         string          `json:"symbol"`
	Memo           string          `json:"memo"`
	TxID           string          `json:"txId" gorm:"index:idx_tx,unique"`
	ActionSeq      uint64          `json:"actionSeq" gorm:"index:idx_tx,unique"`
	Date           time.Time       `json:"date"`
	Sent           bool            `json:"sent"`
}

func (a TokenTransferAction) ID() string {
	return fmt.Sprintf("%s:%d", a.TxID, a.ActionSeq)
}

// Other returns the counterparty account name.
func (a TokenTransferAction) Other() string {
	if a.Sent {
		return a.To
	}
	return a.From
}

// Contact is a counterparty derived from transfer history; never fetched on
// its own.
type Contact struct {
	Name     string `json:"name"`
	Avatar   string `json:"avatar"`
	Nickname string `json:"nickname"`
	Verified bool   `json:"verified"`
}

func (c Contact) ID() string { return c.Name }

// Session is a durable grant created by accepting an identity request. It
// lives until explicitly revoked.
type Session struct {
	SID       string    `json:"sid"`
	Requester string    `json:"requester"`
	Signer    string    `json:"signer"`
	ChainID   string    `json:"chainId"`
	Callback  string    `json:"callback"`
	Token     string    `json:"token"` // revocation token
	CreatedAt time.Time `json:"createdAt"`
}

func (s Session) ID() string { return s.SID }
