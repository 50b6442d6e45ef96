package rpc

import (
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/tidwall/gjson"
	"gopkg.in/h2non/gentleman.v2"
	"gopkg.in/h2non/gentleman.v2/plugins/body"

	"github.com/lynxwallet/walletcore/schema"
)

const headBlockTimeLayout = "2006-01-02T15:04:05.000"

var ErrBadChainResp = errors.New("bad_chain_response")

// Client speaks the chain provider's RPC API. It is stateless; every call is
// one HTTP round trip.
type Client struct {
	cli *gentleman.Client
}

func NewClient(rpcURL string) *Client {
	return &Client{
		cli: gentleman.New().URL(rpcURL),
	}
}

type ChainInfo struct {
	ChainID       string    `json:"chain_id"`
	HeadBlockNum  uint32    `json:"head_block_num"`
	HeadBlockID   string    `json:"head_block_id"`
	HeadBlockTime time.Time `json:"head_block_time"`
}

// RefBlock derives the TaPoS reference fields from the head block id.
func (i ChainInfo) RefBlock() (num uint32, prefix uint32) {
	raw, err := hex.DecodeString(i.HeadBlockID)
	if err != nil || len(raw) < 12 {
		return uint32(i.HeadBlockNum) & 0xffff, 0
	}
	num = binary.BigEndian.Uint32(raw[:4]) & 0xffff
	prefix = binary.LittleEndian.Uint32(raw[8:12])
	return
}

func (c *Client) GetInfo() (ChainInfo, error) {
	res, err := c.post("/v1/chain/get_info", nil)
	if err != nil {
		return ChainInfo{}, err
	}
	info := ChainInfo{
		ChainID:      res.Get("chain_id").String(),
		HeadBlockNum: uint32(res.Get("head_block_num").Uint()),
		HeadBlockID:  res.Get("head_block_id").String(),
	}
	if info.ChainID == "" || info.HeadBlockID == "" {
		return ChainInfo{}, ErrBadChainResp
	}
	t, err := time.Parse(headBlockTimeLayout, res.Get("head_block_time").String())
	if err != nil {
		return ChainInfo{}, ErrBadChainResp
	}
	info.HeadBlockTime = t
	return info, nil
}

type AccountInfo struct {
	Name        string
	Permissions []schema.Permission
}

func (c *Client) GetAccount(name string) (AccountInfo, error) {
	res, err := c.post("/v1/chain/get_account", map[string]string{"account_name": name})
	if err != nil {
		return AccountInfo{}, err
	}
	if res.Get("account_name").String() != name {
		return AccountInfo{}, ErrBadChainResp
	}
	acc := AccountInfo{Name: name}
	for _, p := range res.Get("permissions").Array() {
		perm := schema.Permission{
			Name:      p.Get("perm_name").String(),
			Threshold: int(p.Get("required_auth.threshold").Int()),
		}
		for _, k := range p.Get("required_auth.keys").Array() {
			perm.Keys = append(perm.Keys, k.Get("key").String())
		}
		acc.Permissions = append(acc.Permissions, perm)
	}
	return acc, nil
}

type TableRowsReq struct {
	Code       string `json:"code"`
	Scope      string `json:"scope"`
	Table      string `json:"table"`
	LowerBound string `json:"lower_bound,omitempty"`
	UpperBound string `json:"upper_bound,omitempty"`
	Limit      int    `json:"limit"`
	JSON       bool   `json:"json"`
}

// GetTableRows runs a generic table scan and returns each row as loose JSON.
func (c *Client) GetTableRows(req TableRowsReq) ([]gjson.Result, error) {
	req.JSON = true
	if req.Limit == 0 {
		req.Limit = 100
	}
	res, err := c.post("/v1/chain/get_table_rows", req)
	if err != nil {
		return nil, err
	}
	return res.Get("rows").Array(), nil
}

// GetRawABI fetches a contract's ABI as JSON text, "" when the account
// carries no contract.
func (c *Client) GetRawABI(account string) (string, error) {
	res, err := c.post("/v1/chain/get_abi", map[string]string{"account_name": account})
	if err != nil {
		return "", err
	}
	abi := res.Get("abi")
	if !abi.Exists() {
		return "", nil
	}
	return abi.Raw, nil
}

type PushResult struct {
	TxID     string
	BlockNum uint32
}

// PushTransaction broadcasts a signed transaction.
func (c *Client) PushTransaction(tx schema.Transaction, signature string) (PushResult, error) {
	res, err := c.post("/v1/chain/push_transaction", map[string]interface{}{
		"transaction": tx,
		"signatures":  []string{signature},
	})
	if err != nil {
		return PushResult{}, err
	}
	out := PushResult{
		TxID:     res.Get("transaction_id").String(),
		BlockNum: uint32(res.Get("processed.block_num").Uint()),
	}
	if out.TxID == "" {
		return PushResult{}, ErrBadChainResp
	}
	return out, nil
}

func (c *Client) post(path string, payload interface{}) (gjson.Result, error) {
	req := c.cli.Post()
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
		return gjson.Result{}, fmt.Errorf("chain rpc %s: status %d: %s", path, resp.StatusCode, raw)
	}
	if !gjson.Valid(raw) {
		return gjson.Result{}, ErrBadChainResp
	}
	return gjson.Parse(raw), nil
}
