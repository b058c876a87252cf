// Package backfill implements the batched embedding backfill pipeline.
//
// The Backfiller finds archived messages that lack a vector embedding,
// processes them in bounded batches against the embedding provider, and
// writes the vectors back with idempotent updates. A batch that fails is
// logged and counted, never retried here; re-running the pipeline picks up
// whatever is still missing. Progress is guaranteed to advance by the full
// fetched batch length every iteration, so a run terminates in at most
// ceil(total/batchSize) fetches.
package backfill
