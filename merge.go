package walletcore

import (
	"github.com/lynxwallet/walletcore/schema"
)

// Keyed is any entity with a stable identity key.
type Keyed interface {
	ID() string
}

// Merge upserts incoming into canonical. An existing item with the same
// identity is replaced (after the preserve hook copies forward locally-held
// fields); a new item is appended in incoming order. Items present only in
// canonical are kept: absence from one fetch is not proof of removal, so a
// refresh never deletes. Idempotent for a fixed incoming set.
func Merge[V Keyed](canonical, incoming []V, preserve func(old, fresh V) V) []V {
	index := make(map[string]int, len(canonical))
	out := make([]V, len(canonical))
	copy(out, canonical)
	for i, v := range out {
		index[v.ID()] = i
	}
	for _, fresh := range incoming {
		if i, ok := index[fresh.ID()]; ok {
			if preserve != nil {
				fresh = preserve(out[i], fresh)
			}
			out[i] = fresh
			continue
		}
		index[fresh.ID()] = len(out)
		out = append(out, fresh)
	}
	return out
}

// preserveRate keeps a locally cached exchange rate across merges whose
// source did not supply one.
func preserveRate(old, fresh schema.TokenContract) schema.TokenContract {
	if fresh.Rate.IsZero() && !old.Rate.IsZero() {
		fresh.Rate = old.Rate
	}
	return fresh
}
