package schema

type TransferReq struct {
	From     string `json:"from"`
	To       string `json:"to"`
	Quantity string `json:"quantity"` // "1.0000 TOK"
	Contract string `json:"contract"`
	Memo     string `json:"memo"`
}

type TransferResp struct {
	TxID     string `json:"txId"`
	BlockNum uint32 `json:"blockNum"`
}

type HandleRequestReq struct {
	URI    string `json:"uri"`
	Signer string `json:"signer,omitempty"` // default: active account
}

type HandleRequestResp struct {
	SID         string          `json:"sid"`
	Identity    bool            `json:"identity"`
	Display     []DisplayAction `json:"display"`
	CallbackURL string          `json:"callbackUrl,omitempty"` // foreground only
	TxID        string          `json:"txId,omitempty"`
	BlockNum    uint32          `json:"blockNum,omitempty"`
}

type ImportAccountReq struct {
	ChainID    string `json:"chainId"`
	PrivateKey string `json:"privateKey"`
}

type RespErr struct {
	Err string `json:"error"`
}

func (r RespErr) Error() string {
	return r.Err
}
