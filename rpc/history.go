package rpc

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/tidwall/gjson"
	"gopkg.in/h2non/gentleman.v2"
	"gopkg.in/h2non/gentleman.v2/plugins/body"

	"github.com/lynxwallet/walletcore/schema"
)

var ErrBadHistoryResp = errors.New("bad_history_response")

// HistoryClient speaks the provider's history service, which indexes actions
// and token holdings the chain API itself cannot query.
type HistoryClient struct {
	cli *gentleman.Client
}

func NewHistoryClient(historyURL string) *HistoryClient {
	return &HistoryClient{
		cli: gentleman.New().URL(historyURL),
	}
}

// GetKeyAccounts returns account names bound to a public key. Names
// containing "." are reserved system names and are filtered out.
func (h *HistoryClient) GetKeyAccounts(publicKey string) ([]string, error) {
	res, err := h.post("/v1/history/get_key_accounts", map[string]string{"public_key": publicKey})
	if err != nil {
		return nil, err
	}
	names := make([]string, 0)
	for _, n := range res.Get("account_names").Array() {
		name := n.String()
		if strings.Contains(name, ".") {
			continue
		}
		names = append(names, name)
	}
	return names, nil
}

type TokenHolding struct {
	Contract  string
	Symbol    string
	Precision int32
	Amount    decimal.Decimal
}

// GetTokens returns every token holding the history service knows for an
// account.
func (h *HistoryClient) GetTokens(account string) ([]TokenHolding, error) {
	res, err := h.post("/v2/state/get_tokens", map[string]string{"account": account})
	if err != nil {
		return nil, err
	}
	tokens := res.Get("tokens")
	if !tokens.IsArray() {
		return nil, ErrBadHistoryResp
	}
	out := make([]TokenHolding, 0, len(tokens.Array()))
	for _, t := range tokens.Array() {
		out = append(out, TokenHolding{
			Contract:  t.Get("contract").String(),
			Symbol:    t.Get("symbol").String(),
			Precision: int32(t.Get("precision").Int()),
			Amount:    decimal.NewFromFloat(t.Get("amount").Float()),
		})
	}
	return out, nil
}

// GetTransferActions returns the transfer history between an account and one
// token contract/symbol, newest first.
func (h *HistoryClient) GetTransferActions(account, contract, symbol string, limit int) ([]schema.TokenTransferAction, error) {
	if limit == 0 {
		limit = 100
	}
	res, err := h.post("/v2/history/get_actions", map[string]interface{}{
		"account": account,
		"filter":  fmt.Sprintf("%s:transfer", contract),
		"limit":   limit,
		"sort":    "desc",
	})
	if err != nil {
		return nil, err
	}
	actions := make([]schema.TokenTransferAction, 0)
	for _, a := range res.Get("actions").Array() {
		data := a.Get("act.data")
		if !strings.HasSuffix(data.Get("quantity").String(), " "+symbol) {
			continue
		}
		amount, _, ok := ParseQuantity(data.Get("quantity").String())
		if !ok {
			continue
		}
		date, err := time.Parse(headBlockTimeLayout, a.Get("timestamp").String())
		if err != nil {
			continue
		}
		actions = append(actions, schema.TokenTransferAction{
			From:      data.Get("from").String(),
			To:        data.Get("to").String(),
			Amount:    amount,
			Symbol:    symbol,
			Memo:      data.Get("memo").String(),
			TxID:      a.Get("trx_id").String(),
			ActionSeq: a.Get("global_sequence").Uint(),
			Date:      date,
			Sent:      data.Get("from").String() == account,
		})
	}
	return actions, nil
}

// ParseQuantity splits an asset string such as "1.0042 TOK" into its decimal
// amount and precision.
func ParseQuantity(quantity string) (amount decimal.Decimal, precision int32, ok bool) {
	parts := strings.SplitN(strings.TrimSpace(quantity), " ", 2)
	if len(parts) != 2 {
		return decimal.Zero, 0, false
	}
	amount, err := decimal.NewFromString(parts[0])
	if err != nil {
		return decimal.Zero, 0, false
	}
	if idx := strings.IndexByte(parts[0], '.'); idx >= 0 {
		precision = int32(len(parts[0]) - idx - 1)
	}
	return amount, precision, true
}

// QuantitySymbol returns the symbol half of an asset string, "" when malformed.
func QuantitySymbol(quantity string) string {
	parts := strings.SplitN(strings.TrimSpace(quantity), " ", 2)
	if len(parts) != 2 {
		return ""
	}
	return parts[1]
}

func (h *HistoryClient) post(path string, payload interface{}) (gjson.Result, error) {
	req := h.cli.Post()
	req.AddPath(path)
	if payload != nil {
		req.Use(body.JSON(payload))
	}
	resp, err := req.Send()
	if err != nil {
		return gjson.Result{}, err
	}
	defer resp.Close()
	raw := resp.String()
	if !resp.Ok {
		return gjson.Result{}, fmt.Errorf("history rpc %s: status %d: %s", path, resp.StatusCode, raw)
	}
	if !gjson.Valid(raw) {
		return gjson.Result{}, ErrBadHistoryResp
	}
	return gjson.Parse(raw), nil
}
