package walletcore

import (
	"bytes"
	"compress/flate"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"gopkg.in/h2non/gentleman.v2"
	"gopkg.in/h2non/gentleman.v2/plugins/body"

	"github.com/lynxwallet/walletcore/rpc"
	"github.com/lynxwallet/walletcore/schema"
)

const txExpireWindow = 60 * time.Second

const txTimeLayout = "2006-01-02T15:04:05.000"

// ParseRequest decodes an esr:// URI into a SigningRequest. The payload is
// base64url: one header byte (version, high bit = DEFLATE) followed by the
// request body.
func ParseRequest(uri string) (schema.SigningRequest, error) {
	req := schema.SigningRequest{}
	trimmed := strings.TrimPrefix(strings.TrimPrefix(uri, schema.ESRScheme+"://"), schema.ESRScheme+":")
	if trimmed == uri || trimmed == "" {
		return req, schema.ErrBadRequestURI
	}
	raw, err := base64.RawURLEncoding.DecodeString(trimmed)
	if err != nil || len(raw) < 2 {
		return req, schema.ErrBadRequestURI
	}
	header, payload := raw[0], raw[1:]
	if header&0x7f != schema.ESRVersion {
		return req, schema.ErrBadRequestURI
	}
	if header&schema.ESRFlagFlate != 0 {
		payload, err = io.ReadAll(flate.NewReader(bytes.NewReader(payload)))
		if err != nil {
			return req, schema.ErrBadRequestURI
		}
	}
	if err := json.Unmarshal(payload, &req); err != nil {
		return req, schema.ErrBadRequestURI
	}
	if req.ChainID == "" || req.SID == "" {
		return req, schema.ErrBadRequestURI
	}
	if !req.Identity && len(req.Actions) == 0 {
		return req, schema.ErrBadRequestURI
	}
	return req, nil
}

// EncodeRequest is the inverse of ParseRequest, used by tests and by
// requester-side tooling.
func EncodeRequest(req schema.SigningRequest, compress bool) (string, error) {
	payload, err := json.Marshal(req)
	if err != nil {
		return "", err
	}
	header := schema.ESRVersion
	if compress {
		var buf bytes.Buffer
		fw, err := flate.NewWriter(&buf, flate.DefaultCompression)
		if err != nil {
			return "", err
		}
		if _, err := fw.Write(payload); err != nil {
			return "", err
		}
		if err := fw.Close(); err != nil {
			return "", err
		}
		payload = buf.Bytes()
		header |= schema.ESRFlagFlate
	}
	return schema.ESRScheme + "://" + base64.RawURLEncoding.EncodeToString(append([]byte{header}, payload...)), nil
}

// HandleRequest parses and resolves an inbound signing request and parks it
// as the single in-flight request, pending Accept or Decline. The signer
// account id is optional; the active account is used when empty.
func (w *Wallet) HandleRequest(uri, signerID string) (*schema.ResolvedRequest, error) {
	req, err := ParseRequest(uri)
	if err != nil {
		return nil, errKind(KindSigningRequest, "esr.parse", err)
	}

	signer, err := w.requestSigner(req.ChainID, signerID)
	if err != nil {
		return nil, err
	}

	resolved, err := w.resolve(req, signer)
	if err != nil {
		return nil, err
	}

	w.reqLocker.Lock()
	w.inflight = resolved
	w.reqLocker.Unlock()
	w.bus.didChange(ColActiveRequest, resolved)
	metricRequests.Inc()
	return resolved, nil
}

// requestSigner picks the local account that will sign a request for the
// given chain. Fails when no local account lives on that chain.
func (w *Wallet) requestSigner(chainID, signerID string) (schema.Account, error) {
	if signerID != "" {
		acc, ok := w.Accounts.Get(signerID)
		if !ok || acc.ChainID != chainID {
			return schema.Account{}, &Error{Kind: KindSigningRequest, Op: "esr.signer", Err: schema.ErrChainMismatch, ChainID: chainID}
		}
		return acc, nil
	}
	if acc, err := w.ActiveAccount(); err == nil && acc.ChainID == chainID {
		return acc, nil
	}
	for _, acc := range w.Accounts.Items() {
		if acc.ChainID == chainID {
			return acc, nil
		}
	}
	return schema.Account{}, &Error{Kind: KindSigningRequest, Op: "esr.signer", Err: schema.ErrChainMismatch, ChainID: chainID}
}

func (w *Wallet) resolve(req schema.SigningRequest, signer schema.Account) (*schema.ResolvedRequest, error) {
	cli, err := w.chainClient(req.ChainID)
	if err != nil {
		return nil, err
	}

	var display []schema.DisplayAction
	var actions []schema.ESRAction
	if req.Identity {
		// proof of identity: no ABI resolution, zero actions
		requester, err := fetchProfile(cli, req.Requester)
		if err != nil {
			log.Warn("requester profile fetch failed", "requester", req.Requester, "err", err)
			requester = schema.Contact{Name: req.Requester}
		}
		display = []schema.DisplayAction{{
			Name:    "identity",
			Summary: fmt.Sprintf("prove your identity to %s", displayName(requester)),
		}}
	} else {
		display, actions, err = w.resolveActions(cli, req, signer)
		if err != nil {
			return nil, err
		}
	}

	// chain head is fetched fresh, never from cache: the expiration window
	// starts at head time
	header, err := w.freshHeader(cli, "esr.resolve", req.ChainID)
	if err != nil {
		return nil, err
	}
	tx := schema.Transaction{TransactionHeader: header, Actions: actions}

	return &schema.ResolvedRequest{
		Request:  req,
		Signer:   signer.ID(),
		Tx:       tx,
		Display:  display,
		Callback: req.Callback,
	}, nil
}

// resolveActions fetches the distinct target ABIs concurrently and builds
// the display list. Actions whose ABI never arrives, or that the ABI does
// not define, are dropped; an empty result fails the whole resolution.
func (w *Wallet) resolveActions(cli *rpc.Client, req schema.SigningRequest, signer schema.Account) ([]schema.DisplayAction, []schema.ESRAction, error) {
	targets := make([]string, 0)
	seen := make(map[string]bool)
	for _, a := range req.Actions {
		if !seen[a.Account] {
			seen[a.Account] = true
			targets = append(targets, a.Account)
		}
	}

	abis := make(map[string]rpc.ABI, len(targets))
	raws := make([]string, len(targets))
	ops := make([]Op, 0, len(targets))
	for i, target := range targets {
		i, target := i, target
		if cached, ok := w.abiCache.GetABI(req.ChainID, target); ok {
			raws[i] = cached
			continue
		}
		ops = append(ops, func() (e error) {
			raws[i], e = cli.GetRawABI(target)
			return
		})
	}
	for _, err := range w.scheduler.Join(ops) {
		if err != nil {
			log.Warn("abi fetch failed", "err", err, "chainId", req.ChainID)
		}
	}
	for i, target := range targets {
		abi, ok := rpc.ParseABI(raws[i])
		if !ok {
			continue
		}
		abis[target] = abi
		_ = w.abiCache.SetABI(req.ChainID, target, raws[i])
	}

	display := make([]schema.DisplayAction, 0, len(req.Actions))
	actions := make([]schema.ESRAction, 0, len(req.Actions))
	for _, action := range req.Actions {
		abi, ok := abis[action.Account]
		if !ok || abi.ActionType(action.Name) == "" {
			continue
		}
		resolvedAction := substituteAuth(action, signer)
		if abi.IsTransfer(action.Name) {
			transfer, ok := rpc.DecodeTransfer(resolvedAction)
			if !ok {
				continue
			}
			contract, known := w.Contracts.Get(req.ChainID + ":" + action.Account + ":" + transfer.Symbol)
			if !known {
				continue
			}
			display = append(display, schema.DisplayAction{
				Contract: action.Account,
				Name:     action.Name,
				Summary:  transferSummary(transfer, contract, w.config.FiatSymbol),
			})
		} else {
			display = append(display, schema.DisplayAction{
				Contract: action.Account,
				Name:     action.Name,
				Summary:  fmt.Sprintf("%s::%s", action.Account, action.Name),
			})
		}
		actions = append(actions, resolvedAction)
	}
	if len(display) == 0 {
		return nil, nil, &Error{Kind: KindSigningRequest, Op: "esr.resolve", Err: schema.ErrEmptyResolution, ChainID: req.ChainID, SID: req.SID}
	}
	return display, actions, nil
}

// substituteAuth binds placeholder authorizations to the signer's active
// permission.
func substituteAuth(action schema.ESRAction, signer schema.Account) schema.ESRAction {
	auth := make([]schema.ESRAuthorization, 0, len(action.Authorization))
	if len(action.Authorization) == 0 {
		auth = append(auth, schema.ESRAuthorization{Actor: signer.Name, Permission: schema.PermissionActive})
	}
	for _, a := range action.Authorization {
		if a.Actor == schema.PlaceholderName || a.Actor == "" {
			a.Actor = signer.Name
		}
		if a.Permission == schema.PlaceholderPermission || a.Permission == "" {
			a.Permission = schema.PermissionActive
		}
		auth = append(auth, a)
	}
	action.Authorization = auth
	return action
}

func transferSummary(t rpc.TransferData, contract schema.TokenContract, fiatSymbol string) string {
	if contract.Rate.IsZero() {
		return fmt.Sprintf("transfer %s to %s", t.Quantity, t.To)
	}
	fiat := t.Amount.Mul(contract.Rate).Round(2)
	return fmt.Sprintf("transfer %s (%s %s) to %s", t.Quantity, fiat.StringFixed(2), fiatSymbol, t.To)
}

func displayName(c schema.Contact) string {
	if c.Nickname != "" {
		return c.Nickname
	}
	return c.Name
}

// AcceptResult is what Accept hands back to the caller.
type AcceptResult struct {
	SID         string
	TxID        string
	BlockNum    uint32
	CallbackURL string // foreground callbacks only
}

// Accept signs the in-flight request and dispatches it: broadcast first when
// the request asks for it, then the callback, split background/foreground.
// The device authentication gate runs before anything is signed; a failed
// gate clears the request without signing.
func (w *Wallet) Accept() (*AcceptResult, error) {
	w.reqLocker.Lock()
	resolved := w.inflight
	w.reqLocker.Unlock()
	if resolved == nil {
		return nil, errKind(KindSigningRequest, "esr.accept", schema.ErrNoRequest)
	}

	if !w.Authenticate() {
		w.clearRequest()
		return nil, errKind(KindValidation, "esr.accept", schema.ErrAuthFailed)
	}

	signer, ok := w.Accounts.Get(resolved.Signer)
	if !ok {
		w.clearRequest()
		return nil, errKind(KindSigningRequest, "esr.accept", schema.ErrNotExist)
	}

	signature, err := w.signTransaction(signer, resolved.Tx)
	if err != nil {
		w.clearRequest()
		return nil, err
	}

	req := resolved.Request
	payload := schema.CallbackPayload{SID: req.SID, Signature: signature}

	if req.Broadcast && !req.Identity {
		cli, err := w.chainClient(req.ChainID)
		if err != nil {
			w.clearRequest()
			return nil, err
		}
		var pushed rpc.PushResult
		if err := <-w.scheduler.Sequential(func() (e error) {
			pushed, e = cli.PushTransaction(resolved.Tx, signature)
			return
		}); err != nil {
			w.clearRequest()
			return nil, &Error{Kind: KindChain, Op: "esr.broadcast", Err: err, ChainID: req.ChainID, SID: req.SID}
		}
		payload.TxID = pushed.TxID
		payload.BlockNum = pushed.BlockNum
	}

	// the cryptographic commitment stands once signed, so the session is
	// recorded before the callback gets a chance to fail
	if req.Identity {
		w.recordSession(req, signer)
	}

	result := &AcceptResult{SID: req.SID, TxID: payload.TxID, BlockNum: payload.BlockNum}
	callbackURL := strings.ReplaceAll(resolved.Callback.URL, schema.SIDPlaceholder, req.SID)
	if callbackURL != "" {
		if resolved.Callback.Background {
			if err := postCallback(callbackURL, payload); err != nil {
				log.Warn("background callback failed", "url", callbackURL, "err", err)
			}
		} else {
			result.CallbackURL = callbackURL
		}
	}

	w.clearRequest()
	return result, nil
}

// Decline drops the in-flight request without signing.
func (w *Wallet) Decline() error {
	w.reqLocker.Lock()
	inflight := w.inflight
	w.reqLocker.Unlock()
	if inflight == nil {
		return errKind(KindSigningRequest, "esr.decline", schema.ErrNoRequest)
	}
	w.clearRequest()
	return nil
}

func (w *Wallet) clearRequest() {
	w.reqLocker.Lock()
	w.inflight = nil
	w.reqLocker.Unlock()
	w.bus.didChange(ColActiveRequest, nil)
}

// InflightRequest returns the current in-flight request, nil when none.
func (w *Wallet) InflightRequest() *schema.ResolvedRequest {
	w.reqLocker.Lock()
	defer w.reqLocker.Unlock()
	return w.inflight
}

// signTransaction packs the transaction, binds it to the chain and signs the
// digest with the signer's active key straight out of the vault.
func (w *Wallet) signTransaction(signer schema.Account, tx schema.Transaction) (string, error) {
	pub := signer.PublicKey(schema.PermissionActive)
	if pub == "" {
		return "", &Error{Kind: KindValidation, Op: "esr.sign", Err: schema.ErrNoActiveKey, Account: signer.Name}
	}
	wif, err := w.secrets.Get(pub)
	if err != nil {
		return "", &Error{Kind: KindSecretStore, Op: "esr.sign", Err: err, Account: signer.Name}
	}
	packed, err := json.Marshal(tx)
	if err != nil {
		return "", errKind(KindSigningRequest, "esr.sign", err)
	}
	signature, err := rpc.SignDigest(wif, rpc.SigningDigest(signer.ChainID, packed))
	if err != nil {
		return "", errKind(KindSigningRequest, "esr.sign", err)
	}
	return signature, nil
}

func postCallback(url string, payload schema.CallbackPayload) error {
	req := gentleman.New().URL(url).Post()
	req.Use(body.JSON(payload))
	resp, err := req.Send()
	if err != nil {
		return err
	}
	defer resp.Close()
	if !resp.Ok {
		return fmt.Errorf("callback status %d", resp.StatusCode)
	}
	return nil
}
