package walletcore

import (
	"encoding/json"
	"errors"
	"os"
	"path"
	"time"

	bolt "go.etcd.io/bbolt"

	"github.com/lynxwallet/walletcore/schema"
)

const boltName = "wallet.db"

// Store is the on-disk snapshot of every canonical collection, one bucket
// per collection, items keyed by identity. SaveAll persists the full current
// in-memory snapshot; no cross-bucket transactionality beyond that.
type Store struct {
	BoltDb *bolt.DB
}

func NewBoltStore(boltDirPath string) (*Store, error) {
	if err := os.MkdirAll(boltDirPath, os.ModePerm); err != nil {
		return nil, err
	}
	boltDB, err := bolt.Open(path.Join(boltDirPath, boltName), 0660, &bolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		if err == bolt.ErrTimeout {
			return nil, errors.New("cannot obtain database lock, database may be in use by another process")
		}
		return nil, err
	}

	kv := &Store{BoltDb: boltDB}
	if err := kv.BoltDb.Update(func(tx *bolt.Tx) error {
		for _, bucket := range schema.AllBuckets {
			if _, err := tx.CreateBucketIfNotExists([]byte(bucket)); err != nil {
				return err
			}
		}
		return nil
	}); err != nil {
		return nil, err
	}
	return kv, nil
}

func (s *Store) Close() error {
	return s.BoltDb.Close()
}

// replaceBucket rewrites a bucket with the given items in one transaction.
func replaceBucket[V Keyed](tx *bolt.Tx, bucket string, items []V) error {
	if err := tx.DeleteBucket([]byte(bucket)); err != nil {
		return err
	}
	bkt, err := tx.CreateBucket([]byte(bucket))
	if err != nil {
		return err
	}
	for _, item := range items {
		raw, err := json.Marshal(item)
		if err != nil {
			return err
		}
		if err := bkt.Put([]byte(item.ID()), raw); err != nil {
			return err
		}
	}
	return nil
}

func loadBucket[V any](tx *bolt.Tx, bucket string) ([]V, error) {
	items := make([]V, 0)
	bkt := tx.Bucket([]byte(bucket))
	if bkt == nil {
		return items, nil
	}
	err := bkt.ForEach(func(_, raw []byte) error {
		var v V
		if err := json.Unmarshal(raw, &v); err != nil {
			return err
		}
		items = append(items, v)
		return nil
	})
	return items, err
}

// Snapshot is everything SaveAll persists and LoadAll restores.
type Snapshot struct {
	ChainProviders  []schema.ChainProvider
	Accounts        []schema.Account
	TokenContracts  []schema.TokenContract
	TokenBalances   []schema.TokenBalance
	TransferActions []schema.TokenTransferAction
	Contacts        []schema.Contact
	Sessions        []schema.Session
	ActiveAccount   string
	ActiveProvider  string
}

func (s *Store) SaveAll(snap Snapshot) error {
	return s.BoltDb.Update(func(tx *bolt.Tx) error {
		if err := replaceBucket(tx, schema.BucketChainProviders, snap.ChainProviders); err != nil {
			return err
		}
		if err := replaceBucket(tx, schema.BucketAccounts, snap.Accounts); err != nil {
			return err
		}
		if err := replaceBucket(tx, schema.BucketTokenContracts, snap.TokenContracts); err != nil {
			return err
		}
		if err := replaceBucket(tx, schema.BucketTokenBalances, snap.TokenBalances); err != nil {
			return err
		}
		if err := replaceBucket(tx, schema.BucketTransferActions, snap.TransferActions); err != nil {
			return err
		}
		if err := replaceBucket(tx, schema.BucketContacts, snap.Contacts); err != nil {
			return err
		}
		if err := replaceBucket(tx, schema.BucketSessions, snap.Sessions); err != nil {
			return err
		}
		state := tx.Bucket([]byte(schema.BucketState))
		if err := state.Put([]byte(schema.StateKeyActiveAccount), []byte(snap.ActiveAccount)); err != nil {
			return err
		}
		return state.Put([]byte(schema.StateKeyActiveProvider), []byte(snap.ActiveProvider))
	})
}

func (s *Store) LoadAll() (Snapshot, error) {
	snap := Snapshot{}
	err := s.BoltDb.View(func(tx *bolt.Tx) error {
		var err error
		if snap.ChainProviders, err = loadBucket[schema.ChainProvider](tx, schema.BucketChainProviders); err != nil {
			return err
		}
		if snap.Accounts, err = loadBucket[schema.Account](tx, schema.BucketAccounts); err != nil {
			return err
		}
		if snap.TokenContracts, err = loadBucket[schema.TokenContract](tx, schema.BucketTokenContracts); err != nil {
			return err
		}
		if snap.TokenBalances, err = loadBucket[schema.TokenBalance](tx, schema.BucketTokenBalances); err != nil {
			return err
		}
		if snap.TransferActions, err = loadBucket[schema.TokenTransferAction](tx, schema.BucketTransferActions); err != nil {
			return err
		}
		if snap.Contacts, err = loadBucket[schema.Contact](tx, schema.BucketContacts); err != nil {
			return err
		}
		if snap.Sessions, err = loadBucket[schema.Session](tx, schema.BucketSessions); err != nil {
			return err
		}
		state := tx.Bucket([]byte(schema.BucketState))
		snap.ActiveAccount = string(state.Get([]byte(schema.StateKeyActiveAccount)))
		snap.ActiveProvider = string(state.Get([]byte(schema.StateKeyActiveProvider)))
		return nil
	})
	return snap, err
}
