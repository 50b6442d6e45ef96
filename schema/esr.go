package schema

import "encoding/json"

const (
	ESRScheme    = "esr"
	ESRVersion   = byte(2)
	ESRFlagFlate = byte(0x80)

	// Placeholders are substituted with the signer's authorization at
	// resolve time, so a requester can build a request without knowing who
	// will sign it.
	PlaceholderName       = "............1"
	PlaceholderPermission = "............2"

	SIDPlaceholder = "{{sid}}"

	PermissionActive = "active"
)

type ESRAuthorization struct {
	Actor      string `json:"actor"`
	Permission string `json:"permission"`
}

type ESRAction struct {
	Account       string             `json:"account"`
	Name          string             `json:"name"`
	Authorization []ESRAuthorization `json:"authorization"`
	Data          json.RawMessage    `json:"data"`
}

type ESRCallback struct {
	URL        string `json:"url"`
	Background bool   `json:"background"`
}

// SigningRequest is the decoded form of an esr:// URI. It is read-only once
// parsed; resolution produces a ResolvedRequest and leaves it untouched.
type SigningRequest struct {
	ChainID   string      `json:"chain_id"`
	Requester string      `json:"account"`
	SID       string      `json:"sid"`
	Identity  bool        `json:"identity"`
	Actions   []ESRAction `json:"actions"`
	Callback  ESRCallback `json:"callback"`
	Broadcast bool        `json:"broadcast"`
}

// DisplayAction is one human-readable line of a resolved request.
type DisplayAction struct {
	Contract string `json:"contract"`
	Name     string `json:"name"`
	Summary  string `json:"summary"`
}

type TransactionHeader struct {
	Expiration     string `json:"expiration"`
	RefBlockNum    uint32 `json:"ref_block_num"`
	RefBlockPrefix uint32 `json:"ref_block_prefix"`
}

type Transaction struct {
	TransactionHeader
	Actions []ESRAction `json:"actions"`
}

// ResolvedRequest is a concrete transaction derived from a SigningRequest,
// bound to one signer. Produced once per accept/decline cycle and discarded
// after use.
type ResolvedRequest struct {
	Request  SigningRequest  `json:"request"`
	Signer   string          `json:"signer"`
	Tx       Transaction     `json:"tx"`
	Display  []DisplayAction `json:"display"`
	Callback ESRCallback     `json:"callback"`
}

// CallbackPayload is POSTed to background callbacks and appended to
// foreground callback URLs.
type CallbackPayload struct {
	SID       string `json:"sid"`
	Signature string `json:"sig"`
	TxID      string `json:"tx,omitempty"`
	BlockNum  uint32 `json:"bn,omitempty"`
}
