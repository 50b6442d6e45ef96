package walletcore

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/lynxwallet/walletcore/rpc"
	"github.com/lynxwallet/walletcore/schema"
)

// freshHeader builds a transaction header from chain head info, fetched
// fresh for every transaction. The expiration window starts at head time.
func (w *Wallet) freshHeader(cli *rpc.Client, op, chainID string) (schema.TransactionHeader, error) {
	var info rpc.ChainInfo
	if err := <-w.scheduler.Concurrent(func() (e error) {
		info, e = cli.GetInfo()
		return
	}); err != nil {
		return schema.TransactionHeader{}, &Error{Kind: KindChain, Op: op, Err: err, ChainID: chainID}
	}
	refNum, refPrefix := info.RefBlock()
	return schema.TransactionHeader{
		Expiration:     info.HeadBlockTime.Add(txExpireWindow).Format(txTimeLayout),
		RefBlockNum:    refNum,
		RefBlockPrefix: refPrefix,
	}, nil
}

// Transfer builds, signs and broadcasts a token transfer from a semantic
// intent. The sender's balance is checked locally before any network call;
// on success an optimistic history record is appended immediately instead of
// waiting for the next full sync.
func (w *Wallet) Transfer(req schema.TransferReq) (schema.TransferResp, error) {
	sender, err := w.transferSender(req.From)
	if err != nil {
		return schema.TransferResp{}, err
	}

	amount, _, ok := rpc.ParseQuantity(req.Quantity)
	symbol := rpc.QuantitySymbol(req.Quantity)
	if !ok || symbol == "" || !amount.IsPositive() {
		return schema.TransferResp{}, errKind(KindValidation, "transfer", schema.ErrBadQuantity)
	}

	balance, ok := w.Balances.Get(sender.ID() + ":" + req.Contract + ":" + symbol)
	if !ok || balance.Amount.LessThan(amount) {
		return schema.TransferResp{}, &Error{Kind: KindValidation, Op: "transfer", Err: schema.ErrBalanceTooLow, Account: sender.Name}
	}

	data, err := json.Marshal(map[string]string{
		"from":     sender.Name,
		"to":       req.To,
		"quantity": req.Quantity,
		"memo":     req.Memo,
	})
	if err != nil {
		return schema.TransferResp{}, errKind(KindValidation, "transfer", err)
	}
	action := schema.ESRAction{
		Account: req.Contract,
		Name:    "transfer",
		Authorization: []schema.ESRAuthorization{
			{Actor: sender.Name, Permission: schema.PermissionActive},
		},
		Data: data,
	}

	cli, err := w.chainClient(sender.ChainID)
	if err != nil {
		return schema.TransferResp{}, err
	}
	header, err := w.freshHeader(cli, "transfer", sender.ChainID)
	if err != nil {
		return schema.TransferResp{}, err
	}
	tx := schema.Transaction{TransactionHeader: header, Actions: []schema.ESRAction{action}}

	signature, err := w.signTransaction(sender, tx)
	if err != nil {
		return schema.TransferResp{}, err
	}

	var pushed rpc.PushResult
	if err := <-w.scheduler.Sequential(func() (e error) {
		pushed, e = cli.PushTransaction(tx, signature)
		return
	}); err != nil {
		return schema.TransferResp{}, &Error{Kind: KindChain, Op: "transfer.push", Err: err, ChainID: sender.ChainID, Account: sender.Name}
	}

	record := schema.TokenTransferAction{
		ChainID:        sender.ChainID,
		AccountID:      sender.ID(),
		TokenBalanceID: balance.ID(),
		From:           sender.Name,
		To:             req.To,
		Amount:         amount,
		Symbol:         symbol,
		Memo:           req.Memo,
		TxID:           pushed.TxID,
		Date:           time.Now().UTC(),
		Sent:           true,
	}
	w.Actions.Upsert(record)
	if err := w.wdb.InsertTransferActions([]schema.TokenTransferAction{record}); err != nil {
		log.Error("wdb insert optimistic transfer", "err", err, "txId", pushed.TxID)
	}
	if err := w.SaveAll(); err != nil {
		log.Error("persist after transfer", "err", err, "txId", pushed.TxID)
	}
	metricTransfers.Inc()
	return schema.TransferResp{TxID: pushed.TxID, BlockNum: pushed.BlockNum}, nil
}

func (w *Wallet) transferSender(from string) (schema.Account, error) {
	if from == "" {
		return w.ActiveAccount()
	}
	active, err := w.ActiveAccount()
	if err == nil && active.Name == from {
		return active, nil
	}
	for _, acc := range w.Accounts.Items() {
		if acc.Name == from {
			return acc, nil
		}
	}
	return schema.Account{}, errKind(KindValidation, "transfer", fmt.Errorf("unknown sender %q", from))
}
