package cache

import (
	"github.com/dgraph-io/ristretto"
	"github.com/eko/gocache/lib/v4/store"
	ristrettostore "github.com/eko/gocache/store/ristretto/v4"
)

var S store.StoreInterface

func NewStore() error {
	ris, err := ristretto.NewCache(&ristretto.Config{
		NumCounters: 1e5,
		MaxCost:     1 << 20,
		BufferItems: 64,
	})
	if err != nil {
		return err
	}

	S = ristrettostore.NewRistretto(ris)
	return nil
}

// GetStore returns nil until NewStore has been called, callers treat that as a permanent miss.
func GetStore() store.StoreInterface {
	return S
}
