// Package pricing looks up the lowest market price of resolved items.
//
// Items are fetched in fixed-size batches. Batches run strictly one after
// another; the fetches inside a batch run concurrently and the next batch
// starts only after every fetch of the current one has settled. A
// ratelimit.Limiter paces the batches.
//
// Example usage:
//
//	source, _ := client.New(client.DefaultConfig(nil, "MyApp/1.0 (me@example.com)"))
//	fetcher := pricing.NewBatchFetcher(source, pricing.DefaultConfig(), nil)
//	results, err := fetcher.FetchAll(ctx, resolved, "Aether")
//
// Failed lookups are logged and omitted from the results. FetchAll only
// returns an error when its context ends, together with the results
// gathered so far.
package pricing
