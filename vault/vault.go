package vault

import (
	"errors"
	"os"
	"path"
	"time"

	bolt "go.etcd.io/bbolt"
)

const boltName = "vault.db"

var (
	bucketSecrets = []byte("secrets")

	ErrNotExist = errors.New("secret_not_exist")
)

// Vault is the secret store: private keys keyed by their public key. It is
// opened once and read only inside the scope of a single signing operation.
type Vault struct {
	db *bolt.DB
}

func New(dirPath string) (*Vault, error) {
	if err := os.MkdirAll(dirPath, os.ModePerm); err != nil {
		return nil, err
	}
	db, err := bolt.Open(path.Join(dirPath, boltName), 0600, &bolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		if err == bolt.ErrTimeout {
			return nil, errors.New("cannot obtain vault lock, vault may be in use by another process")
		}
		return nil, err
	}
	if err := db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketSecrets)
		return err
	}); err != nil {
		return nil, err
	}
	return &Vault{db: db}, nil
}

func (v *Vault) Put(publicKey, privateKey string) error {
	return v.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketSecrets).Put([]byte(publicKey), []byte(privateKey))
	})
}

func (v *Vault) Get(publicKey string) (string, error) {
	var secret string
	err := v.db.View(func(tx *bolt.Tx) error {
		raw := tx.Bucket(bucketSecrets).Get([]byte(publicKey))
		if raw == nil {
			return ErrNotExist
		}
		secret = string(raw)
		return nil
	})
	return secret, err
}

func (v *Vault) Delete(publicKey string) error {
	return v.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketSecrets).Delete([]byte(publicKey))
	})
}

func (v *Vault) Close() error {
	return v.db.Close()
}
