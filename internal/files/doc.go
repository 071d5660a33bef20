// Package files fetches and inspects the pipeline's files on disk.
//
// Downloader retrieves the MIMIT registry and price snapshots over HTTP,
// rate limited and retried, and moves each one into the downloads directory
// only once it has been read completely. Discovery reports which input and
// output files are present and how fresh they are.
//
// Example usage:
//
//	d := files.NewDownloader(cfg.Source, logger)
//	results, err := d.DownloadAll(ctx, files.Sources(cfg.Source, paths))
package files
