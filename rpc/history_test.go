package rpc

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func newHistoryServer(t *testing.T, routes map[string]string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, ok := routes[r.URL.Path]
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, body)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestGetKeyAccountsFiltersSystemNames(t *testing.T) {
	srv := newHistoryServer(t, map[string]string{
		"/v1/history/get_key_accounts": `{"account_names": ["alice", "eosio.token", "bob", "a.b.c"]}`,
	})
	names, err := NewHistoryClient(srv.URL).GetKeyAccounts("PUB_K1_x")
	assert.NoError(t, err)
	assert.Equal(t, []string{"alice", "bob"}, names)
}

func TestGetTokens(t *testing.T) {
	srv := newHistoryServer(t, map[string]string{
		"/v2/state/get_tokens": `{"account": "alice", "tokens": [
			{"contract": "lynx.token", "symbol": "LYNX", "precision": 4, "amount": 100.5},
			{"contract": "other.token", "symbol": "OTH", "precision": 8, "amount": 0.00000001}
		]}`,
	})
	tokens, err := NewHistoryClient(srv.URL).GetTokens("alice")
	assert.NoError(t, err)
	assert.Len(t, tokens, 2)
	assert.Equal(t, "lynx.token", tokens[0].Contract)
	assert.Equal(t, int32(4), tokens[0].Precision)
	assert.True(t, tokens[0].Amount.Equal(decimal.RequireFromString("100.5")))
}

func TestGetTokensBadResponse(t *testing.T) {
	srv := newHistoryServer(t, map[string]string{
		"/v2/state/get_tokens": `{"account": "alice"}`,
	})
	_, err := NewHistoryClient(srv.URL).GetTokens("alice")
	assert.ErrorIs(t, err, ErrBadHistoryResp)
}

func TestGetTransferActions(t *testing.T) {
	srv := newHistoryServer(t, map[string]string{
		"/v2/history/get_actions": `{"actions": [
			{
				"trx_id": "aaa", "global_sequence": 7, "timestamp": "2024-05-01T11:00:00.000",
				"act": {"name": "transfer", "data": {"from": "alice", "to": "bob", "quantity": "1.5000 LYNX", "memo": "hi"}}
			},
			{
				"trx_id": "bbb", "global_sequence": 8, "timestamp": "2024-05-01T11:01:00.000",
				"act": {"name": "transfer", "data": {"from": "carol", "to": "alice", "quantity": "2.0000 WRONG", "memo": ""}}
			},
			{
				"trx_id": "ccc", "global_sequence": 9, "timestamp": "2024-05-01T11:02:00.000",
				"act": {"name": "transfer", "data": {"from": "carol", "to": "alice", "quantity": "0.2500 LYNX", "memo": ""}}
			}
		]}`,
	})
	actions, err := NewHistoryClient(srv.URL).GetTransferActions("alice", "lynx.token", "LYNX", 0)
	assert.NoError(t, err)
	assert.Len(t, actions, 2, "foreign symbols are dropped")

	assert.Equal(t, "aaa", actions[0].TxID)
	assert.Equal(t, uint64(7), actions[0].ActionSeq)
	assert.True(t, actions[0].Sent)
	assert.True(t, actions[0].Amount.Equal(decimal.RequireFromString("1.5")))

	assert.False(t, actions[1].Sent)
	assert.Equal(t, "carol", actions[1].Other())
}

func TestParseQuantity(t *testing.T) {
	amount, precision, ok := ParseQuantity("1.0042 TOK")
	assert.True(t, ok)
	assert.Equal(t, int32(4), precision)
	assert.True(t, amount.Equal(decimal.RequireFromString("1.0042")))

	amount, precision, ok = ParseQuantity("12 TOK")
	assert.True(t, ok)
	assert.Equal(t, int32(0), precision)
	assert.True(t, amount.Equal(decimal.NewFromInt(12)))

	_, _, ok = ParseQuantity("1.0042")
	assert.False(t, ok)
	_, _, ok = ParseQuantity("abc TOK")
	assert.False(t, ok)

	assert.Equal(t, "TOK", QuantitySymbol("1.0042 TOK"))
	assert.Empty(t, QuantitySymbol("1.0042"))
}
