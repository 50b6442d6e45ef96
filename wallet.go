package walletcore

import (
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-co-op/gocron"

	"github.com/lynxwallet/walletcore/cache"
	"github.com/lynxwallet/walletcore/config"
	"github.com/lynxwallet/walletcore/rpc"
	"github.com/lynxwallet/walletcore/schema"
	"github.com/lynxwallet/walletcore/vault"
)

var log = NewLog("walletcore")

const concurrentLaneSize = 10

// Wallet is the engine handle: it owns the canonical collections, the
// operation scheduler, the signing-request state and every external
// collaborator. Constructed once at startup and passed to whoever needs it;
// no process-wide state.
type Wallet struct {
	config    *config.Config
	store     *Store
	wdb       *Wdb
	secrets   *vault.Vault
	scheduler *Scheduler
	bus       *Bus
	abiCache  *cache.Cache
	engine    *gin.Engine
	cron      *gocron.Scheduler
	hub       *Hub

	Providers *Col[schema.ChainProvider]
	Accounts  *Col[schema.Account]
	Contracts *Col[schema.TokenContract]
	Balances  *Col[schema.TokenBalance]
	Actions   *Col[schema.TokenTransferAction]
	Contacts  *Col[schema.Contact]
	Sessions  *Col[schema.Session]

	stateLocker    sync.RWMutex
	activeAccount  string // account id, chainId:name
	activeProvider string // chain id

	reqLocker sync.Mutex
	inflight  *schema.ResolvedRequest // at most one request in flight

	// Authenticate gates request acceptance (device unlock / biometric);
	// returning false aborts the flow without signing. Defaults to allow.
	Authenticate func() bool

	// NewChainClient/NewHistoryClient exist so tests can point a provider at
	// an httptest server without a config round trip.
	NewChainClient   func(url string) *rpc.Client
	NewHistoryClient func(url string) *rpc.HistoryClient
}

func New(cfg *config.Config) *Wallet {
	store, err := NewBoltStore(cfg.DbDir)
	if err != nil {
		panic(err)
	}
	secrets, err := vault.New(cfg.VaultDir)
	if err != nil {
		panic(err)
	}
	wdb := &Wdb{}
	if cfg.UseSqlite {
		wdb = NewSqliteDb(cfg.SqliteDir)
	} else {
		wdb = NewMysqlDb(cfg.MysqlDSN)
	}
	if err := wdb.Migrate(); err != nil {
		panic(err)
	}
	scheduler, err := NewScheduler(concurrentLaneSize)
	if err != nil {
		panic(err)
	}
	abiCache, err := cache.NewLocalCache(10 * time.Minute)
	if err != nil {
		panic(err)
	}

	bus := NewBus()
	if cfg.KafkaURI != "" {
		kw, err := NewKWriter(EventTopic, cfg.KafkaURI)
		if err != nil {
			panic(err)
		}
		bus.SetKafka(kw)
	}

	w := &Wallet{
		config:    cfg,
		store:     store,
		wdb:       wdb,
		secrets:   secrets,
		scheduler: scheduler,
		bus:       bus,
		abiCache:  abiCache,
		engine:    gin.Default(),
		cron:      gocron.NewScheduler(time.UTC),
		hub:       NewHub(bus),

		Providers: NewCol[schema.ChainProvider](ColChainProviders, bus),
		Accounts:  NewCol[schema.Account](ColAccounts, bus),
		Contracts: NewCol[schema.TokenContract](ColTokenContracts, bus),
		Balances:  NewCol[schema.TokenBalance](ColTokenBalances, bus),
		Actions:   NewCol[schema.TokenTransferAction](ColTransferActions, bus),
		Contacts:  NewCol[schema.Contact](ColContacts, bus),
		Sessions:  NewCol[schema.Session](ColSessions, bus),

		Authenticate:     func() bool { return true },
		NewChainClient:   rpc.NewClient,
		NewHistoryClient: rpc.NewHistoryClient,
	}
	w.Contracts.preserve = preserveRate

	if err := w.restore(); err != nil {
		panic(err)
	}
	return w
}

// restore loads the persisted snapshot and overlays configured providers.
func (w *Wallet) restore() error {
	snap, err := w.store.LoadAll()
	if err != nil {
		return err
	}
	w.Providers.ReplaceAll(snap.ChainProviders)
	w.Accounts.ReplaceAll(snap.Accounts)
	w.Contracts.ReplaceAll(snap.TokenContracts)
	w.Balances.ReplaceAll(snap.TokenBalances)
	w.Actions.ReplaceAll(snap.TransferActions)
	w.Contacts.ReplaceAll(snap.Contacts)
	w.Sessions.ReplaceAll(snap.Sessions)
	w.stateLocker.Lock()
	w.activeAccount = snap.ActiveAccount
	w.activeProvider = snap.ActiveProvider
	w.stateLocker.Unlock()

	if len(w.config.Providers) > 0 {
		w.Providers.MergeIn(w.config.Providers)
	}
	return nil
}

// SaveAll persists the full current in-memory snapshot.
func (w *Wallet) SaveAll() error {
	w.stateLocker.RLock()
	activeAccount, activeProvider := w.activeAccount, w.activeProvider
	w.stateLocker.RUnlock()
	return w.store.SaveAll(Snapshot{
		ChainProviders:  w.Providers.Items(),
		Accounts:        w.Accounts.Items(),
		TokenContracts:  w.Contracts.Items(),
		TokenBalances:   w.Balances.Items(),
		TransferActions: w.Actions.Items(),
		Contacts:        w.Contacts.Items(),
		Sessions:        w.Sessions.Items(),
		ActiveAccount:   activeAccount,
		ActiveProvider:  activeProvider,
	})
}

func (w *Wallet) ActiveAccount() (schema.Account, error) {
	w.stateLocker.RLock()
	id := w.activeAccount
	w.stateLocker.RUnlock()
	if id == "" {
		return schema.Account{}, errKind(KindValidation, "wallet.activeAccount", schema.ErrNoActiveAccount)
	}
	acc, ok := w.Accounts.Get(id)
	if !ok {
		return schema.Account{}, errKind(KindValidation, "wallet.activeAccount", schema.ErrNoActiveAccount)
	}
	return acc, nil
}

func (w *Wallet) SetActiveAccount(accountID string) error {
	acc, ok := w.Accounts.Get(accountID)
	if !ok {
		return errKind(KindValidation, "wallet.setActiveAccount", schema.ErrNotExist)
	}
	w.bus.willChange(ColActiveAccount)
	w.stateLocker.Lock()
	w.activeAccount = accountID
	w.activeProvider = acc.ChainID
	w.stateLocker.Unlock()
	w.bus.didChange(ColActiveAccount, acc)
	return nil
}

// provider resolves the chain provider for a chain id.
func (w *Wallet) provider(chainID string) (schema.ChainProvider, error) {
	if p, ok := w.Providers.Get(chainID); ok {
		return p, nil
	}
	return schema.ChainProvider{}, errKind(KindValidation, "wallet.provider", schema.ErrNoChainProvider)
}

func (w *Wallet) chainClient(chainID string) (*rpc.Client, error) {
	p, err := w.provider(chainID)
	if err != nil {
		return nil, err
	}
	return w.NewChainClient(p.RPCURL), nil
}

func (w *Wallet) historyClient(chainID string) (*rpc.HistoryClient, error) {
	p, err := w.provider(chainID)
	if err != nil {
		return nil, err
	}
	return w.NewHistoryClient(p.HistoryURL), nil
}

func (w *Wallet) Bus() *Bus {
	return w.bus
}

func (w *Wallet) Run(port string) {
	go w.runAPI(port)
	w.runJobs()
}

func (w *Wallet) Close() {
	w.cron.Stop()
	w.scheduler.Close()
	if err := w.SaveAll(); err != nil {
		log.Error("save snapshot on close", "err", err)
	}
	w.wdb.Close()
	w.secrets.Close()
	w.store.Close()
}
