// Package pagination holds the table's pagination window and the parallel
// id lookup used to resolve a selection into full artwork records.
//
// The catalog accepts at most 100 ids per request and about 60 requests per
// minute. BatchFetcher splits an id list into chunks and fetches them with a
// small worker pool while the client's request budget keeps the pace.
//
// Example usage:
//
//	fetcher := pagination.NewBatchFetcher(catalogService, pagination.DefaultConfig())
//	records, err := fetcher.FetchByIDs(ctx, store.GetAllSelectedIDs())
//
// The batch fetcher:
//   - Drops duplicate and non-positive ids
//   - Splits the rest into chunks of ChunkSize
//   - Distributes chunks across MaxConcurrency workers
//   - Returns every record it could fetch, plus an error naming failed chunks
package pagination
