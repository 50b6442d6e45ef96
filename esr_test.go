package walletcore

import (
	"encoding/json"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/tidwall/gjson"

	"github.com/lynxwallet/walletcore/rpc"
	"github.com/lynxwallet/walletcore/schema"
)

func transferRequest(callbackURL string, background, broadcast bool) schema.SigningRequest {
	data, _ := json.Marshal(map[string]string{
		"from": "alice", "to": "bob", "quantity": "1.5000 LYNX", "memo": "lunch",
	})
	return schema.SigningRequest{
		ChainID:   testChainID,
		Requester: "someapp",
		SID:       "abc123",
		Actions: []schema.ESRAction{{
			Account: testTokenContract,
			Name:    "transfer",
			Authorization: []schema.ESRAuthorization{
				{Actor: schema.PlaceholderName, Permission: schema.PlaceholderPermission},
			},
			Data: data,
		}},
		Callback:  schema.ESRCallback{URL: callbackURL, Background: background},
		Broadcast: broadcast,
	}
}

func TestParseEncodeRoundTrip(t *testing.T) {
	for _, compress := range []bool{false, true} {
		req := transferRequest("https://host/cb?s={{sid}}", true, true)
		uri, err := EncodeRequest(req, compress)
		assert.NoError(t, err)
		assert.Contains(t, uri, "esr://")

		parsed, err := ParseRequest(uri)
		assert.NoError(t, err)
		assert.Equal(t, req, parsed)
	}
}

func TestParseRejectsBadURIs(t *testing.T) {
	for _, uri := range []string{
		"",
		"https://not-a-request",
		"esr://",
		"esr://!!!not-base64!!!",
		"esr://AA", // wrong version header
	} {
		_, err := ParseRequest(uri)
		assert.Error(t, err, "uri %q", uri)
	}
}

func TestHandleActionRequestResolvesTransfer(t *testing.T) {
	fixture := newChainFixture(t)
	w := newTestWallet(t, fixture)
	acc := seedAccount(t, w, "alice")
	seedToken(w, acc, "100.0000", "2")

	req := transferRequest("", false, false)
	// a second action the ABI knows but cannot decode as a transfer, plus
	// one on an unknown contract that must be dropped
	stakeData, _ := json.Marshal(map[string]string{"owner": "alice", "quantity": "1.0000 LYNX"})
	req.Actions = append(req.Actions,
		schema.ESRAction{Account: testTokenContract, Name: "stake", Data: stakeData},
		schema.ESRAction{Account: "unknown.acct", Name: "doit", Data: []byte(`{}`)},
	)
	uri, err := EncodeRequest(req, true)
	assert.NoError(t, err)

	resolved, err := w.HandleRequest(uri, "")
	assert.NoError(t, err)
	assert.Equal(t, acc.ID(), resolved.Signer)
	assert.NotNil(t, w.InflightRequest())

	// dropped unknown-contract action, kept the two the ABI defines
	assert.Len(t, resolved.Tx.Actions, 2)
	assert.Len(t, resolved.Display, 2)

	// the resolved transfer matches the original request exactly
	data := gjson.ParseBytes(resolved.Tx.Actions[0].Data)
	assert.Equal(t, "bob", data.Get("to").String())
	assert.Equal(t, "1.5000 LYNX", data.Get("quantity").String())
	assert.Equal(t, "lunch", data.Get("memo").String())

	// placeholder authorization bound to the signer's active permission
	auth := resolved.Tx.Actions[0].Authorization[0]
	assert.Equal(t, "alice", auth.Actor)
	assert.Equal(t, schema.PermissionActive, auth.Permission)

	// fiat conversion from the cached rate: 1.5 * 2 = 3.00
	assert.Contains(t, resolved.Display[0].Summary, "1.5000 LYNX")
	assert.Contains(t, resolved.Display[0].Summary, "3.00 USD")
	assert.Contains(t, resolved.Display[0].Summary, "bob")
	assert.Equal(t, fmt.Sprintf("%s::stake", testTokenContract), resolved.Display[1].Summary)

	// 60s expiration window from fresh head time
	assert.Equal(t, "2024-05-01T12:01:00.000", resolved.Tx.Expiration)
	assert.Equal(t, uint32(0x0304), resolved.Tx.RefBlockNum)
	assert.Equal(t, uint32(0xddccbbaa), resolved.Tx.RefBlockPrefix)
}

func TestEmptyResolutionIsHardFailure(t *testing.T) {
	fixture := newChainFixture(t)
	w := newTestWallet(t, fixture)
	seedAccount(t, w, "alice")

	req := transferRequest("", false, false)
	req.Actions = []schema.ESRAction{{Account: "unknown.acct", Name: "doit", Data: []byte(`{}`)}}
	uri, _ := EncodeRequest(req, false)

	_, err := w.HandleRequest(uri, "")
	assert.True(t, IsKind(err, KindSigningRequest))
	assert.Nil(t, w.InflightRequest())
}

func TestHandleRequestChainMismatch(t *testing.T) {
	fixture := newChainFixture(t)
	w := newTestWallet(t, fixture)
	seedAccount(t, w, "alice")

	req := transferRequest("", false, false)
	req.ChainID = "f00d" + testChainID[4:]
	uri, _ := EncodeRequest(req, false)

	_, err := w.HandleRequest(uri, "")
	assert.True(t, IsKind(err, KindSigningRequest))
}

func TestAcceptBroadcastWithBackgroundCallback(t *testing.T) {
	fixture := newChainFixture(t)
	var callbackBody gjson.Result
	fixture.Handle("/cb", func(body gjson.Result) (int, string) {
		callbackBody = body
		return 200, `{}`
	})

	w := newTestWallet(t, fixture)
	acc := seedAccount(t, w, "alice")
	seedToken(w, acc, "100.0000", "2")

	req := transferRequest(fixture.URL()+"/cb?s={{sid}}", true, true)
	uri, _ := EncodeRequest(req, true)
	resolved, err := w.HandleRequest(uri, "")
	assert.NoError(t, err)

	result, err := w.Accept()
	assert.NoError(t, err)
	assert.Equal(t, "abc123", result.SID)
	assert.Equal(t, "feedface", result.TxID)
	assert.Equal(t, uint32(16909061), result.BlockNum)
	assert.Empty(t, result.CallbackURL, "background callbacks are posted, not returned")
	assert.Nil(t, w.InflightRequest())

	assert.Equal(t, 1, fixture.Requests("/v1/chain/push_transaction"))
	assert.Equal(t, 1, fixture.Requests("/cb"))
	assert.Equal(t, "abc123", callbackBody.Get("sid").String())
	assert.Equal(t, "feedface", callbackBody.Get("tx").String())

	// the posted signature verifies against the signer's active key
	packed, err := json.Marshal(resolved.Tx)
	assert.NoError(t, err)
	pub := acc.PublicKey(schema.PermissionActive)
	sig := callbackBody.Get("sig").String()
	assert.True(t, rpc.VerifyDigest(pub, sig, rpc.SigningDigest(testChainID, packed)))
}

func TestAcceptForegroundCallbackSubstitutesSID(t *testing.T) {
	fixture := newChainFixture(t)
	w := newTestWallet(t, fixture)
	acc := seedAccount(t, w, "alice")
	seedToken(w, acc, "100.0000", "2")

	req := transferRequest("https://host/cb?s={{sid}}", false, false)
	uri, _ := EncodeRequest(req, false)
	_, err := w.HandleRequest(uri, "")
	assert.NoError(t, err)

	result, err := w.Accept()
	assert.NoError(t, err)
	assert.Equal(t, "https://host/cb?s=abc123", result.CallbackURL)
	// non-broadcast request: straight to callback dispatch
	assert.Equal(t, 0, fixture.Requests("/v1/chain/push_transaction"))
}

func TestAuthGateFailureClearsWithoutSigning(t *testing.T) {
	fixture := newChainFixture(t)
	w := newTestWallet(t, fixture)
	acc := seedAccount(t, w, "alice")
	seedToken(w, acc, "100.0000", "2")
	w.Authenticate = func() bool { return false }

	uri, _ := EncodeRequest(transferRequest("", true, true), false)
	_, err := w.HandleRequest(uri, "")
	assert.NoError(t, err)

	_, err = w.Accept()
	assert.True(t, IsKind(err, KindValidation))
	assert.Nil(t, w.InflightRequest())
	assert.Equal(t, 0, fixture.Requests("/v1/chain/push_transaction"))
}

func TestAcceptWithoutRequest(t *testing.T) {
	fixture := newChainFixture(t)
	w := newTestWallet(t, fixture)

	_, err := w.Accept()
	assert.True(t, IsKind(err, KindSigningRequest))
	assert.True(t, IsKind(w.Decline(), KindSigningRequest))
}
