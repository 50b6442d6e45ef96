package cache

import "time"

// Cache holds short-lived fetch results (contract ABIs, profile rows) so a
// burst of request resolutions does not refetch the same contract.
type Cache struct {
	Cache ICache
}

type ICache interface {
	Set(key string, entry []byte) error

	Get(key string) ([]byte, error)
}

func NewLocalCache(allKeysExpTime time.Duration) (*Cache, error) {
	cache, err := NewBigCache(allKeysExpTime)
	if err != nil {
		return nil, err
	}
	return &Cache{Cache: cache}, nil
}

func (c *Cache) GetABI(chainID, contract string) (string, bool) {
	entry, err := c.Cache.Get("abi:" + chainID + ":" + contract)
	if err != nil {
		return "", false
	}
	return string(entry), true
}

func (c *Cache) SetABI(chainID, contract, abiJSON string) error {
	return c.Cache.Set("abi:"+chainID+":"+contract, []byte(abiJSON))
}
