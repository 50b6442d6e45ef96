package walletcore

import (
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/tidwall/gjson"

	"github.com/lynxwallet/walletcore/config"
	"github.com/lynxwallet/walletcore/schema"
)

const (
	testChainID = "cf057bbfb72640471fd910bcb67639c22df9f92470936cddc1ade0e2f2e7dc4f"
	// block num 0x01020304, prefix little-endian from bytes 8..12
	testHeadBlockID   = "0102030400000000aabbccdd000000000000000000000000000000000000000000"
	testHeadBlockTime = "2024-05-01T12:00:00.000"
	testTokenContract = "lynx.token"
	testTokenSymbol   = "LYNX"
)

var testTokenABI = `{
	"actions": [{"name": "transfer", "type": "transfer"}, {"name": "stake", "type": "stake"}],
	"structs": [
		{"name": "transfer", "fields": [{"name": "from"}, {"name": "to"}, {"name": "quantity"}, {"name": "memo"}]},
		{"name": "stake", "fields": [{"name": "owner"}, {"name": "quantity"}]}
	]
}`

// chainFixture serves both the chain and history APIs for tests. Handlers
// can be overridden per test; unset routes fall back to sane defaults.
type chainFixture struct {
	t *testing.T

	locker   sync.Mutex
	handlers map[string]func(body gjson.Result) (int, string)
	requests []string

	server *httptest.Server
}

func newChainFixture(t *testing.T) *chainFixture {
	f := &chainFixture{
		t:        t,
		handlers: make(map[string]func(body gjson.Result) (int, string)),
	}
	f.server = httptest.NewServer(http.HandlerFunc(func(rw http.ResponseWriter, r *http.Request) {
		raw, _ := io.ReadAll(r.Body)
		body := gjson.ParseBytes(raw)

		f.locker.Lock()
		f.requests = append(f.requests, r.URL.Path)
		handler := f.handlers[r.URL.Path]
		f.locker.Unlock()

		if handler == nil {
			handler = f.defaultHandler(r.URL.Path)
		}
		if handler == nil {
			rw.WriteHeader(http.StatusNotFound)
			return
		}
		status, resp := handler(body)
		rw.Header().Set("Content-Type", "application/json")
		rw.WriteHeader(status)
		fmt.Fprint(rw, resp)
	}))
	t.Cleanup(f.server.Close)
	return f
}

func (f *chainFixture) URL() string { return f.server.URL }

func (f *chainFixture) Handle(path string, h func(body gjson.Result) (int, string)) {
	f.locker.Lock()
	defer f.locker.Unlock()
	f.handlers[path] = h
}

func (f *chainFixture) Requests(path string) int {
	f.locker.Lock()
	defer f.locker.Unlock()
	count := 0
	for _, p := range f.requests {
		if p == path {
			count++
		}
	}
	return count
}

func (f *chainFixture) defaultHandler(path string) func(body gjson.Result) (int, string) {
	switch path {
	case "/v1/chain/get_info":
		return func(gjson.Result) (int, string) {
			return 200, fmt.Sprintf(`{"chain_id":%q,"head_block_num":16909060,"head_block_id":%q,"head_block_time":%q}`,
				testChainID, testHeadBlockID, testHeadBlockTime)
		}
	case "/v1/chain/get_account":
		return func(body gjson.Result) (int, string) {
			return 200, fmt.Sprintf(`{"account_name":%q,"permissions":[]}`, body.Get("account_name").String())
		}
	case "/v1/chain/get_table_rows":
		return func(gjson.Result) (int, string) {
			return 200, `{"rows":[]}`
		}
	case "/v1/chain/get_abi":
		return func(body gjson.Result) (int, string) {
			if body.Get("account_name").String() == testTokenContract {
				return 200, fmt.Sprintf(`{"account_name":%q,"abi":%s}`, testTokenContract, testTokenABI)
			}
			return 200, fmt.Sprintf(`{"account_name":%q}`, body.Get("account_name").String())
		}
	case "/v1/chain/push_transaction":
		return func(gjson.Result) (int, string) {
			return 200, `{"transaction_id":"feedface","processed":{"block_num":16909061}}`
		}
	case "/v2/state/get_tokens":
		return func(gjson.Result) (int, string) {
			return 200, `{"tokens":[]}`
		}
	case "/v2/history/get_actions":
		return func(gjson.Result) (int, string) {
			return 200, `{"actions":[]}`
		}
	case "/v1/history/get_key_accounts":
		return func(gjson.Result) (int, string) {
			return 200, `{"account_names":[]}`
		}
	}
	return nil
}

// newTestWallet builds a Wallet against temp storage and one fixture-backed
// chain provider.
func newTestWallet(t *testing.T, fixture *chainFixture) *Wallet {
	cfg := config.Default()
	cfg.DbDir = t.TempDir()
	cfg.VaultDir = t.TempDir()
	cfg.SqliteDir = t.TempDir()
	cfg.Providers = []schema.ChainProvider{{
		ChainID:    testChainID,
		Name:       "testnet",
		RPCURL:     fixture.URL(),
		HistoryURL: fixture.URL(),
		CoreSymbol: testTokenSymbol,
	}}
	w := New(cfg)
	t.Cleanup(func() {
		w.scheduler.Close()
		w.wdb.Close()
		w.secrets.Close()
		w.store.Close()
	})
	return w
}

// seedAccount installs an account with a vault-backed active key.
func seedAccount(t *testing.T, w *Wallet, name string) schema.Account {
	pair, err := w.CreateKeyPair()
	if err != nil {
		t.Fatal(err)
	}
	acc := schema.Account{
		ChainID: testChainID,
		Name:    name,
		Permissions: []schema.Permission{
			{Name: schema.PermissionActive, Threshold: 1, Keys: []string{pair.Public}},
		},
	}
	w.Accounts.Upsert(acc)
	if err := w.SetActiveAccount(acc.ID()); err != nil {
		t.Fatal(err)
	}
	return acc
}

func seedToken(w *Wallet, acc schema.Account, amount string, rate string) schema.TokenBalance {
	amt, _ := decimal.NewFromString(amount)
	r, _ := decimal.NewFromString(rate)
	w.Contracts.MergeIn([]schema.TokenContract{{
		ChainID:   testChainID,
		Contract:  testTokenContract,
		Symbol:    testTokenSymbol,
		Precision: 4,
		Rate:      r,
	}})
	balance := schema.TokenBalance{
		AccountID: acc.ID(),
		Contract:  testTokenContract,
		Symbol:    testTokenSymbol,
		Precision: 4,
		Amount:    amt,
	}
	w.Balances.MergeIn([]schema.TokenBalance{balance})
	return balance
}
