package schema

const (
	BucketAccounts        = "accounts"
	BucketChainProviders  = "chainProviders"
	BucketTokenContracts  = "tokenContracts"
	BucketTokenBalances   = "tokenBalances"
	BucketTransferActions = "tokenTransferActions"
	BucketContacts        = "contacts"
	BucketSessions        = "esrSessions"
	BucketState           = "state"

	StateKeyActiveAccount  = "activeAccount"
	StateKeyActiveProvider = "activeProvider"
)

// AllBuckets is the full persisted collection surface; SaveAll writes every
// one of these from the in-memory snapshot.
var AllBuckets = []string{
	BucketAccounts,
	BucketChainProviders,
	BucketTokenContracts,
	BucketTokenBalances,
	BucketTransferActions,
	BucketContacts,
	BucketSessions,
	BucketState,
}
