package walletcore

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/tidwall/gjson"

	"github.com/lynxwallet/walletcore/rpc"
	"github.com/lynxwallet/walletcore/schema"
)

func TestImportAccount(t *testing.T) {
	fixture := newChainFixture(t)
	w := newTestWallet(t, fixture)

	pair, err := rpc.NewKeyPair()
	assert.NoError(t, err)

	fixture.Handle("/v1/history/get_key_accounts", func(body gjson.Result) (int, string) {
		assert.Equal(t, pair.Public, body.Get("public_key").String())
		return 200, `{"account_names":["alice","eosio.token","alicealt"]}`
	})
	fixture.Handle("/v1/chain/get_account", func(body gjson.Result) (int, string) {
		name := body.Get("account_name").String()
		return 200, fmt.Sprintf(`{
			"account_name": %q,
			"permissions": [{"perm_name": "active", "required_auth": {"threshold": 1, "keys": [{"key": %q}]}}]
		}`, name, pair.Public)
	})

	accounts, err := w.ImportAccount(testChainID, pair.Private)
	assert.NoError(t, err)
	assert.Len(t, accounts, 2, "system names with dots are skipped")
	assert.Equal(t, "alice", accounts[0].Name)
	assert.Equal(t, pair.Public, accounts[0].PublicKey(schema.PermissionActive))

	// the first imported account becomes active when none was set
	active, err := w.ActiveAccount()
	assert.NoError(t, err)
	assert.Equal(t, accounts[0].ID(), active.ID())

	// the private key is retrievable by its public key
	stored, err := w.secrets.Get(pair.Public)
	assert.NoError(t, err)
	assert.Equal(t, pair.Private, stored)
}

func TestImportAccountKeepsExistingActive(t *testing.T) {
	fixture := newChainFixture(t)
	w := newTestWallet(t, fixture)
	existing := seedAccount(t, w, "existing")

	pair, err := rpc.NewKeyPair()
	assert.NoError(t, err)
	fixture.Handle("/v1/history/get_key_accounts", func(gjson.Result) (int, string) {
		return 200, `{"account_names":["newcomer"]}`
	})

	_, err = w.ImportAccount(testChainID, pair.Private)
	assert.NoError(t, err)

	active, err := w.ActiveAccount()
	assert.NoError(t, err)
	assert.Equal(t, existing.ID(), active.ID())
}

func TestImportAccountNoKeyAccounts(t *testing.T) {
	fixture := newChainFixture(t)
	w := newTestWallet(t, fixture)

	pair, err := rpc.NewKeyPair()
	assert.NoError(t, err)

	_, err = w.ImportAccount(testChainID, pair.Private)
	assert.True(t, IsKind(err, KindValidation))
	assert.ErrorIs(t, err, schema.ErrKeyAccountsEmpty)
}

func TestImportAccountBadPrivateKey(t *testing.T) {
	fixture := newChainFixture(t)
	w := newTestWallet(t, fixture)

	_, err := w.ImportAccount(testChainID, "not a private key")
	assert.True(t, IsKind(err, KindValidation))
}

func TestImportAccountUnknownChain(t *testing.T) {
	fixture := newChainFixture(t)
	w := newTestWallet(t, fixture)

	pair, err := rpc.NewKeyPair()
	assert.NoError(t, err)

	_, err = w.ImportAccount("ffffffff", pair.Private)
	assert.ErrorIs(t, err, schema.ErrNoChainProvider)
}

func TestCreateKeyPairStoresPrivateHalf(t *testing.T) {
	fixture := newChainFixture(t)
	w := newTestWallet(t, fixture)

	pair, err := w.CreateKeyPair()
	assert.NoError(t, err)

	stored, err := w.secrets.Get(pair.Public)
	assert.NoError(t, err)
	assert.Equal(t, pair.Private, stored)
}
