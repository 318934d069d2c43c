// Package services implements the clone pipeline.
//
//	manifest ─▶ Flatten ─▶ BuildTasks ─▶ Downloader.Run
//	                                        │
//	                           ResumePolicy ─┴─▶ Fetcher (retries)
//
// Flatten walks the listing depth-first into FlatRecords. BuildTasks turns
// each record into a DownloadTask, dropping skipped suffixes and colliding
// paths. Downloader runs tasks on a fixed pool of workers; every worker asks
// the ResumePolicy first and only then the Fetcher.
//
// # Graceful abort
//
// A Fetcher that sees the rate-limit sentinel raises the run's
// RateLimitGuard. From then on no task is started: the feeder stops and
// workers drop anything they dequeue. Fetches already in flight finish and
// their files are written normally.
package services
