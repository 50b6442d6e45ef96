package walletcore

import (
	"errors"

	"github.com/lynxwallet/walletcore/rpc"
	"github.com/lynxwallet/walletcore/schema"
)

// TopicSyncCompleted fires after an account's pipeline has persisted its
// results.
const TopicSyncCompleted Topic = "syncCompleted"

// SyncAccount drives the per-account refresh pipeline:
// account -> profile -> balances -> transfer history fan-out -> contacts ->
// persist. Stages 1-3 are hard: a failure aborts the pipeline and surfaces
// to the caller. The stage 4/5 fan-outs are best-effort per item, so one
// unreachable sub-fetch never blocks the whole sync.
func (w *Wallet) SyncAccount(accountID string) error {
	acc, ok := w.Accounts.Get(accountID)
	if !ok {
		return errKind(KindValidation, "sync.account", schema.ErrNotExist)
	}
	cli, err := w.chainClient(acc.ChainID)
	if err != nil {
		return err
	}
	history, err := w.historyClient(acc.ChainID)
	if err != nil {
		return err
	}

	// stage 1: permissions
	var accInfo rpc.AccountInfo
	if err := <-w.scheduler.Concurrent(func() (e error) {
		accInfo, e = cli.GetAccount(acc.Name)
		return
	}); err != nil {
		return &Error{Kind: KindChain, Op: "sync.account", Err: err, ChainID: acc.ChainID, Account: acc.Name}
	}
	acc.Permissions = accInfo.Permissions
	w.Accounts.Upsert(acc)

	// stage 2: profile
	var profile schema.Contact
	if err := <-w.scheduler.Concurrent(func() (e error) {
		profile, e = fetchProfile(cli, acc.Name)
		return
	}); err != nil {
		return &Error{Kind: KindChain, Op: "sync.profile", Err: err, ChainID: acc.ChainID, Account: acc.Name}
	}
	acc.Avatar = profile.Avatar
	acc.Nickname = profile.Nickname
	acc.Verified = profile.Verified
	w.Accounts.Upsert(acc)

	// stage 3: balances
	var holdings []rpc.TokenHolding
	if err := <-w.scheduler.Concurrent(func() (e error) {
		holdings, e = history.GetTokens(acc.Name)
		return
	}); err != nil {
		return &Error{Kind: KindHistory, Op: "sync.balances", Err: err, ChainID: acc.ChainID, Account: acc.Name}
	}
	balances := make([]schema.TokenBalance, 0, len(holdings))
	placeholders := make([]schema.TokenContract, 0)
	for _, h := range holdings {
		b := schema.TokenBalance{
			AccountID: acc.ID(),
			Contract:  h.Contract,
			Symbol:    h.Symbol,
			Precision: h.Precision,
			Amount:    h.Amount,
		}
		balances = append(balances, b)
		contractID := acc.ChainID + ":" + h.Contract + ":" + h.Symbol
		if _, known := w.Contracts.Get(contractID); !known {
			// unknown token: synthesize a blacklisted placeholder so a
			// balance never points at a missing contract
			placeholders = append(placeholders, schema.TokenContract{
				ChainID:     acc.ChainID,
				Contract:    h.Contract,
				Symbol:      h.Symbol,
				Precision:   h.Precision,
				Blacklisted: true,
			})
		}
	}
	w.Contracts.MergeIn(placeholders)
	w.Balances.MergeIn(balances)

	// stage 4: transfer history per balance, best-effort fan-out
	results := make([][]schema.TokenTransferAction, len(balances))
	ops := make([]Op, 0, len(balances))
	for i, b := range balances {
		i, b := i, b
		ops = append(ops, func() (e error) {
			results[i], e = history.GetTransferActions(acc.Name, b.Contract, b.Symbol, 0)
			return
		})
	}
	for i, err := range w.scheduler.Join(ops) {
		if err != nil {
			log.Warn("transfer history fetch failed", "account", acc.Name, "balance", balances[i].ID(), "err", err)
		}
	}
	union := make([]schema.TokenTransferAction, 0)
	for i, actions := range results {
		for _, a := range actions {
			a.ChainID = acc.ChainID
			a.AccountID = acc.ID()
			a.TokenBalanceID = balances[i].ID()
			union = append(union, a)
		}
	}
	w.retireOptimisticActions(union)
	w.Actions.MergeIn(union)
	if err := w.wdb.InsertTransferActions(union); err != nil {
		log.Error("wdb insert transfer actions", "err", err, "account", acc.Name)
	}

	// stage 5: contacts derived from history, best-effort fan-out
	names := w.counterparties(acc)
	contacts := make([]schema.Contact, len(names))
	contactOps := make([]Op, 0, len(names))
	for i, name := range names {
		i, name := i, name
		contactOps = append(contactOps, func() (e error) {
			contacts[i], e = fetchProfile(cli, name)
			return
		})
	}
	errs := w.scheduler.Join(contactOps)
	fetched := make([]schema.Contact, 0, len(names))
	for i := range contactOps {
		if errs[i] != nil {
			log.Warn("contact fetch failed", "name", names[i], "err", errs[i])
			continue
		}
		fetched = append(fetched, contacts[i])
	}
	w.Contacts.MergeIn(fetched)

	// stage 6: persist and announce
	if err := w.SaveAll(); err != nil {
		return errKind(KindSecretStore, "sync.persist", err)
	}
	w.bus.didChange(TopicSyncCompleted, acc.ID())
	metricSyncs.Inc()
	return nil
}

// SyncAllAccounts re-runs the pipeline once per known account, sequentially.
// One account's failure never blocks another; the joined error carries every
// per-account failure.
func (w *Wallet) SyncAllAccounts() error {
	var errs []error
	for _, acc := range w.Accounts.Items() {
		if err := w.SyncAccount(acc.ID()); err != nil {
			log.Error("account sync failed", "account", acc.ID(), "err", err)
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// retireOptimisticActions drops the zero-sequence records written at
// broadcast time once the synced history carries the same transaction with
// its real sequence. Without this the two records would merge under
// different identities and one transfer would show twice.
func (w *Wallet) retireOptimisticActions(synced []schema.TokenTransferAction) {
	confirmed := make(map[string]bool, len(synced))
	for _, a := range synced {
		if a.ActionSeq != 0 {
			confirmed[a.TxID] = true
		}
	}
	if len(confirmed) == 0 {
		return
	}
	for _, a := range w.Actions.Items() {
		if a.ActionSeq != 0 || !confirmed[a.TxID] {
			continue
		}
		if err := w.Actions.Delete(a.ID()); err != nil {
			continue
		}
		if err := w.wdb.DeleteTransferAction(a.TxID, 0); err != nil {
			log.Warn("wdb drop optimistic transfer", "txId", a.TxID, "err", err)
		}
	}
}

// counterparties lists distinct counterparty names across the account's
// known history, in order of first appearance.
func (w *Wallet) counterparties(acc schema.Account) []string {
	seen := make(map[string]bool)
	names := make([]string, 0)
	for _, a := range w.Actions.Items() {
		if a.AccountID != acc.ID() {
			continue
		}
		other := a.Other()
		if other == "" || other == acc.Name || seen[other] {
			continue
		}
		seen[other] = true
		names = append(names, other)
	}
	return names
}

// fetchProfile reads the on-chain profile row for an account name. A missing
// row is not an error; the profile is simply empty.
func fetchProfile(cli *rpc.Client, name string) (schema.Contact, error) {
	rows, err := cli.GetTableRows(rpc.TableRowsReq{
		Code:       "profiles",
		Scope:      "profiles",
		Table:      "users",
		LowerBound: name,
		UpperBound: name,
		Limit:      1,
	})
	if err != nil {
		return schema.Contact{}, err
	}
	contact := schema.Contact{Name: name}
	if len(rows) == 0 {
		return contact, nil
	}
	contact.Avatar = rows[0].Get("avatar").String()
	contact.Nickname = rows[0].Get("nickname").String()
	contact.Verified = rows[0].Get("verified").Bool()
	return contact, nil
}
