package walletcore

import (
	"github.com/lynxwallet/walletcore/rpc"
	"github.com/lynxwallet/walletcore/schema"
)

// ImportAccount derives the public key from a private key, looks up the
// accounts bound to it and brings each of them under management. The key
// lands in the vault keyed by its public key.
func (w *Wallet) ImportAccount(chainID, privateKey string) ([]schema.Account, error) {
	if _, err := w.provider(chainID); err != nil {
		return nil, err
	}
	pub, err := rpc.PublicKeyFromPrivate(privateKey)
	if err != nil {
		return nil, errKind(KindValidation, "account.import", err)
	}

	history, err := w.historyClient(chainID)
	if err != nil {
		return nil, err
	}
	var names []string
	if err := <-w.scheduler.Concurrent(func() (e error) {
		names, e = history.GetKeyAccounts(pub)
		return
	}); err != nil {
		return nil, &Error{Kind: KindHistory, Op: "account.import", Err: err, ChainID: chainID}
	}
	if len(names) == 0 {
		return nil, &Error{Kind: KindValidation, Op: "account.import", Err: schema.ErrKeyAccountsEmpty, ChainID: chainID}
	}

	cli, err := w.chainClient(chainID)
	if err != nil {
		return nil, err
	}
	infos := make([]rpc.AccountInfo, len(names))
	ops := make([]Op, 0, len(names))
	for i, name := range names {
		i, name := i, name
		ops = append(ops, func() (e error) {
			infos[i], e = cli.GetAccount(name)
			return
		})
	}
	errs := w.scheduler.Join(ops)

	accounts := make([]schema.Account, 0, len(names))
	for i, name := range names {
		if errs[i] != nil {
			log.Warn("account fetch failed on import", "name", name, "err", errs[i])
			continue
		}
		accounts = append(accounts, schema.Account{
			ChainID:     chainID,
			Name:        name,
			Permissions: infos[i].Permissions,
		})
	}
	if len(accounts) == 0 {
		return nil, &Error{Kind: KindChain, Op: "account.import", Err: schema.ErrNotFound, ChainID: chainID}
	}

	if err := w.secrets.Put(pub, privateKey); err != nil {
		return nil, errKind(KindSecretStore, "account.import", err)
	}

	w.Accounts.MergeIn(accounts)
	if _, err := w.ActiveAccount(); err != nil {
		if err := w.SetActiveAccount(accounts[0].ID()); err != nil {
			log.Warn("set active account on import", "err", err)
		}
	}
	if err := w.SaveAll(); err != nil {
		log.Error("persist after import", "err", err)
	}
	return accounts, nil
}

// CreateKeyPair generates a fresh key pair and stores the private half in
// the vault. The pair is returned once so the caller can show a backup.
func (w *Wallet) CreateKeyPair() (rpc.KeyPair, error) {
	pair, err := rpc.NewKeyPair()
	if err != nil {
		return rpc.KeyPair{}, errKind(KindSecretStore, "account.createKey", err)
	}
	if err := w.secrets.Put(pair.Public, pair.Private); err != nil {
		return rpc.KeyPair{}, errKind(KindSecretStore, "account.createKey", err)
	}
	return pair, nil
}
