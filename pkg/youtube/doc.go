// Package youtube implements the YouTube side of clipharvest.
//
// It provides two components:
//   - Client, a YouTube Data API v3 batch source for the detail fetcher
//   - LabelProber, which opens a Shorts page in the browser session and
//     reports the AI disclosure markers for the label classifier
//
// API errors are classified by HTTP status: 401 and 403 (and a 400 carrying
// a keyInvalid reason) are auth errors and abort the run; 404, 429 and 5xx
// only fail the batch they occurred in.
//
// Usage:
//
//	client := youtube.NewClient(cfg.YouTube, log)
//	f := fetcher.NewBatchFetcher(client, log)
//	report, err := f.Fetch(ctx, urls, hashtags)
package youtube
