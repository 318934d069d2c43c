package storage

import (
	"context"
	"fmt"

	"gocloud.dev/blob"
	_ "gocloud.dev/blob/fileblob"
	_ "gocloud.dev/blob/memblob"
	"gocloud.dev/gcerrors"

	"github.com/kerbaras/anonclone/pkg/data"
)

// BucketStore writes each task to a blob keyed by its RelPath.
type BucketStore struct {
	bucket *blob.Bucket
	url    string
}

// OpenBucketStore opens the bucket at url. Drivers other than mem:// and
// file:// must be linked in by the caller.
func OpenBucketStore(ctx context.Context, url string) (*BucketStore, error) {
	bucket, err := blob.OpenBucket(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("open bucket %s: %w", url, err)
	}
	return &BucketStore{bucket: bucket, url: url}, nil
}

func NewBucketStore(bucket *blob.Bucket, url string) *BucketStore {
	return &BucketStore{bucket: bucket, url: url}
}

func (s *BucketStore) Location() string {
	return s.url
}

func (s *BucketStore) Close() error {
	return s.bucket.Close()
}

func (s *BucketStore) FirstLine(ctx context.Context, task data.DownloadTask) (string, bool, error) {
	r, err := s.bucket.NewRangeReader(ctx, task.RelPath, 0, FirstLineLimit, nil)
	if gcerrors.Code(err) == gcerrors.NotFound {
		return "", false, nil
	}
	if err != nil {
		return "", true, fmt.Errorf("open %s: %w", task.RelPath, err)
	}
	defer r.Close()

	line, err := readFirstLine(r)
	if err != nil {
		return "", true, fmt.Errorf("read %s: %w", task.RelPath, err)
	}
	return line, true, nil
}

// Prepare is a no-op: buckets have no directories.
func (s *BucketStore) Prepare(context.Context, data.DownloadTask) error {
	return nil
}

func (s *BucketStore) Save(ctx context.Context, task data.DownloadTask, body []byte) error {
	if err := s.bucket.WriteAll(ctx, task.RelPath, body, nil); err != nil {
		return fmt.Errorf("write %s: %w", task.RelPath, err)
	}
	return nil
}
