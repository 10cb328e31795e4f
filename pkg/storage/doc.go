// Package storage persists harvest results for clipharvest.
//
// The store handles:
//   - Result tables, one CSV per (platform, hashtag, country) partition
//   - URL snapshots: the canonical URLs a harvest produced, saved as JSON
//   - The final-check backlog table per platform
//   - Spreadsheet export of any table
//
// Layout under the data root:
//
//	{root}/{platform}/{tag}/{tag}_{country}.csv
//	{root}/{platform}/{tag}/{tag}_{country}.json
//	{root}/{platform}/{platform}_extra_urls.csv
//
// Every write goes through checkpoint.WriteFile, so tables and snapshots are
// replaced atomically. The classifier relies on this when it rewrites a table
// after each labeled record.
//
// Usage:
//
//	store := storage.NewStore("data", log)
//	path := store.TablePath(models.PlatformYouTube, "#ai", "NL")
//	if err := store.WriteTable(path, records); err != nil {
//	    return err
//	}
//	records, err := store.ReadTable(path)
package storage
