package rpc

import (
	"github.com/shopspring/decimal"
	"github.com/tidwall/gjson"

	"github.com/lynxwallet/walletcore/schema"
)

// ABI wraps a contract's ABI JSON for action lookups. The heavy binary
// encode/decode lives in the transport layer; here the ABI is only consulted
// to classify actions and name their argument structs.
type ABI struct {
	raw gjson.Result
}

func ParseABI(abiJSON string) (ABI, bool) {
	if abiJSON == "" || !gjson.Valid(abiJSON) {
		return ABI{}, false
	}
	return ABI{raw: gjson.Parse(abiJSON)}, true
}

// ActionType returns the argument struct name of an action, "" when the ABI
// does not define it.
func (a ABI) ActionType(action string) string {
	for _, act := range a.raw.Get("actions").Array() {
		if act.Get("name").String() == action {
			return act.Get("type").String()
		}
	}
	return ""
}

func (a ABI) structFields(typeName string) []string {
	for _, s := range a.raw.Get("structs").Array() {
		if s.Get("name").String() != typeName {
			continue
		}
		fields := make([]string, 0)
		for _, f := range s.Get("fields").Array() {
			fields = append(fields, f.Get("name").String())
		}
		return fields
	}
	return nil
}

var transferFields = []string{"from", "to", "quantity", "memo"}

// IsTransfer reports whether the named action carries the canonical token
// transfer argument struct.
func (a ABI) IsTransfer(action string) bool {
	typeName := a.ActionType(action)
	if typeName == "" {
		return false
	}
	fields := a.structFields(typeName)
	if len(fields) < len(transferFields) {
		return false
	}
	have := make(map[string]bool, len(fields))
	for _, f := range fields {
		have[f] = true
	}
	for _, want := range transferFields {
		if !have[want] {
			return false
		}
	}
	return true
}

type TransferData struct {
	From     string
	To       string
	Quantity string
	Amount   decimal.Decimal
	Symbol   string
	Memo     string
}

// DecodeTransfer decodes a transfer action's JSON arguments.
func DecodeTransfer(action schema.ESRAction) (TransferData, bool) {
	data := gjson.ParseBytes(action.Data)
	quantity := data.Get("quantity").String()
	amount, _, ok := ParseQuantity(quantity)
	if !ok {
		return TransferData{}, false
	}
	return TransferData{
		From:     data.Get("from").String(),
		To:       data.Get("to").String(),
		Quantity: quantity,
		Amount:   amount,
		Symbol:   QuantitySymbol(quantity),
		Memo:     data.Get("memo").String(),
	}, true
}
