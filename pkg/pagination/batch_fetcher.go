package pagination

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/Sternrassler/artic-catalog-client/pkg/catalog"
	"github.com/rs/zerolog/log"
)

// Config holds batch fetcher configuration
type Config struct {
	// MaxConcurrency is the maximum number of parallel requests
	// Recommendation: 4 workers for the catalog (60 req/min)
	MaxConcurrency int
	// ChunkSize is the number of ids per request (max 100)
	ChunkSize int
	// Timeout per chunk fetch
	Timeout time.Duration
}

// DefaultConfig returns safe default configuration for the catalog
func DefaultConfig() Config {
	return Config{
		MaxConcurrency: 4,
		ChunkSize:      catalog.MaxLimit,
		Timeout:        15 * time.Second,
	}
}

// IDFetcher resolves one chunk of ids. *catalog.Service implements it.
type IDFetcher interface {
	FetchByIDs(ctx context.Context, ids []int) ([]catalog.Artwork, error)
}

// ChunkResult represents the result of fetching a single chunk
type ChunkResult struct {
	Index    int
	Artworks []catalog.Artwork
	Error    error
}

// BatchFetcher handles parallel fetching of id chunks
type BatchFetcher struct {
	fetcher IDFetcher
	config  Config
}

// NewBatchFetcher creates a new batch fetcher
func NewBatchFetcher(fetcher IDFetcher, config Config) *BatchFetcher {
	if config.MaxConcurrency <= 0 {
		config.MaxConcurrency = 4
	}
	if config.ChunkSize <= 0 || config.ChunkSize > catalog.MaxLimit {
		config.ChunkSize = catalog.MaxLimit
	}
	if config.Timeout <= 0 {
		config.Timeout = 15 * time.Second
	}

	return &BatchFetcher{
		fetcher: fetcher,
		config:  config,
	}
}

// FetchByIDs resolves ids in parallel using a worker pool.
// Returns map of id -> artwork for every record fetched. When some chunks
// fail the map holds the partial result and the error says how many failed.
func (bf *BatchFetcher) FetchByIDs(ctx context.Context, ids []int) (map[int]catalog.Artwork, error) {
	start := time.Now()
	results := make(map[int]catalog.Artwork)

	chunks := bf.chunk(dedupe(ids))
	if len(chunks) == 0 {
		return results, nil
	}

	log.Info().
		Int("ids", len(ids)).
		Int("chunks", len(chunks)).
		Msg("Starting parallel id lookup")

	// Create channels
	chunkQueue := make(chan int, len(chunks))
	chunkResults := make(chan ChunkResult, len(chunks))

	for i := range chunks {
		chunkQueue <- i
	}
	close(chunkQueue)

	// Start worker pool
	workers := min(bf.config.MaxConcurrency, len(chunks))
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go bf.worker(ctx, chunks, chunkQueue, chunkResults, &wg, i)
	}

	// Close results channel when all workers done
	go func() {
		wg.Wait()
		close(chunkResults)
	}()

	// Collect results
	var errs []error
	fetched := 0
	for result := range chunkResults {
		if result.Error != nil {
			errs = append(errs, fmt.Errorf("chunk %d: %w", result.Index, result.Error))
			continue
		}

		for _, a := range result.Artworks {
			results[a.ID] = a
		}
		fetched++
	}

	if ctx.Err() != nil && fetched+len(errs) < len(chunks) {
		errs = append(errs, ctx.Err())
	}

	if len(errs) > 0 {
		log.Warn().
			Int("fetched_chunks", fetched).
			Int("total_chunks", len(chunks)).
			Int("records", len(results)).
			Msg("Id lookup incomplete - returning partial results")
		return results, fmt.Errorf("id lookup incomplete (partial data: %d/%d chunks): %w",
			fetched, len(chunks), errors.Join(errs...))
	}

	log.Info().
		Int("records", len(results)).
		Int("chunks", len(chunks)).
		Dur("duration", time.Since(start)).
		Msg("Id lookup complete")

	return results, nil
}

// worker processes chunks from the queue
func (bf *BatchFetcher) worker(ctx context.Context, chunks [][]int, queue <-chan int, results chan<- ChunkResult, wg *sync.WaitGroup, workerID int) {
	defer wg.Done()
	processed := 0

	for index := range queue {
		// Check context cancellation
		select {
		case <-ctx.Done():
			log.Debug().
				Int("worker_id", workerID).
				Int("chunks_processed", processed).
				Msg("Worker stopping (context cancelled)")
			return
		default:
		}

		chunkCtx, cancel := context.WithTimeout(ctx, bf.config.Timeout)
		artworks, err := bf.fetcher.FetchByIDs(chunkCtx, chunks[index])
		cancel()

		if err != nil {
			log.Warn().
				Err(err).
				Int("worker_id", workerID).
				Int("chunk", index).
				Msg("Chunk fetch failed")
		}

		// results is buffered for every chunk
		results <- ChunkResult{Index: index, Artworks: artworks, Error: err}
		processed++
	}

	if processed > 0 {
		log.Debug().
			Int("worker_id", workerID).
			Int("chunks_processed", processed).
			Msg("Worker completed")
	}
}

// chunk splits ids into slices of at most ChunkSize.
func (bf *BatchFetcher) chunk(ids []int) [][]int {
	var chunks [][]int
	for len(ids) > 0 {
		n := min(bf.config.ChunkSize, len(ids))
		chunks = append(chunks, ids[:n:n])
		ids = ids[n:]
	}
	return chunks
}

// dedupe keeps the first occurrence of every positive id.
func dedupe(ids []int) []int {
	seen := make(map[int]struct{}, len(ids))
	out := make([]int, 0, len(ids))
	for _, id := range ids {
		if id <= 0 {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
