// Package storage persists mirrored files.
//
// A Store is where a DownloadTask's bytes end up. LocalStore writes to
// task.LocalPath on the filesystem; BucketStore writes to a gocloud.dev
// bucket keyed by task.RelPath, so a mirror can go straight to mem://,
// file://, s3:// or gs:// without a local copy.
//
// Both stores expose only the first line of an existing object. That is all
// the resume check needs: a saved rate-limit page carries the sentinel on
// its first line.
package storage
