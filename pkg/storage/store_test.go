package storage

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kerbaras/anonclone/pkg/data"
)

func localTask(root, rel string) data.DownloadTask {
	return data.DownloadTask{
		RemoteURL: "http://example/file/" + rel,
		RelPath:   rel,
		LocalPath: filepath.Join(root, filepath.FromSlash(rel)),
	}
}

func TestLocalStore_MissingFile(t *testing.T) {
	root := t.TempDir()
	store := NewLocalStore(root)

	line, exists, err := store.FirstLine(context.Background(), localTask(root, "a/b.txt"))
	require.NoError(t, err)
	assert.False(t, exists)
	assert.Empty(t, line)
}

func TestLocalStore_SaveAndFirstLine(t *testing.T) {
	ctx := context.Background()
	root := t.TempDir()
	store := NewLocalStore(root)
	task := localTask(root, "deep/nested/dir/file.txt")

	require.NoError(t, store.Prepare(ctx, task))
	require.NoError(t, store.Save(ctx, task, []byte("first line\nsecond line\n")))

	got, err := os.ReadFile(task.LocalPath)
	require.NoError(t, err)
	assert.Equal(t, "first line\nsecond line\n", string(got))

	line, exists, err := store.FirstLine(ctx, task)
	require.NoError(t, err)
	assert.True(t, exists)
	assert.Equal(t, "first line\n", line)
	assert.Equal(t, root, store.Location())
}

func TestLocalStore_SaveOverwrites(t *testing.T) {
	ctx := context.Background()
	root := t.TempDir()
	store := NewLocalStore(root)
	task := localTask(root, "f.txt")

	require.NoError(t, store.Prepare(ctx, task))
	require.NoError(t, store.Save(ctx, task, []byte("Please try again later. and a long tail")))
	require.NoError(t, store.Save(ctx, task, []byte("ok")))

	got, err := os.ReadFile(task.LocalPath)
	require.NoError(t, err)
	assert.Equal(t, "ok", string(got))
}

func TestLocalStore_FirstLineWithoutNewline(t *testing.T) {
	root := t.TempDir()
	store := NewLocalStore(root)
	task := localTask(root, "single")
	require.NoError(t, os.WriteFile(task.LocalPath, []byte("no newline"), 0o644))

	line, exists, err := store.FirstLine(context.Background(), task)
	require.NoError(t, err)
	assert.True(t, exists)
	assert.Equal(t, "no newline", line)
}

func TestLocalStore_FirstLineIsBounded(t *testing.T) {
	root := t.TempDir()
	store := NewLocalStore(root)
	task := localTask(root, "big")
	require.NoError(t, os.WriteFile(task.LocalPath, []byte(strings.Repeat("x", FirstLineLimit+10)), 0o644))

	line, _, err := store.FirstLine(context.Background(), task)
	require.NoError(t, err)
	assert.Len(t, line, FirstLineLimit)
}

func TestLocalStore_ConcurrentPrepare(t *testing.T) {
	ctx := context.Background()
	root := t.TempDir()
	store := NewLocalStore(root)

	var wg sync.WaitGroup
	errs := make(chan error, 16)
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			task := localTask(root, "shared/parent/"+string(rune('a'+i)))
			errs <- store.Prepare(ctx, task)
		}(i)
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		assert.NoError(t, err)
	}
	info, err := os.Stat(filepath.Join(root, "shared", "parent"))
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}

func TestBucketStore_SaveAndFirstLine(t *testing.T) {
	ctx := context.Background()
	store, err := OpenBucketStore(ctx, "mem://")
	require.NoError(t, err)
	defer store.Close()

	task := data.DownloadTask{RelPath: "src/main.go", LocalPath: "/ignored/src/main.go"}

	_, exists, err := store.FirstLine(ctx, task)
	require.NoError(t, err)
	assert.False(t, exists)

	require.NoError(t, store.Prepare(ctx, task))
	require.NoError(t, store.Save(ctx, task, []byte("package main\n\nfunc main() {}\n")))

	line, exists, err := store.FirstLine(ctx, task)
	require.NoError(t, err)
	assert.True(t, exists)
	assert.Equal(t, "package main\n", line)
	assert.Equal(t, "mem://", store.Location())
}

func TestBucketStore_FileURL(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	store, err := OpenBucketStore(ctx, "file://"+filepath.ToSlash(dir))
	require.NoError(t, err)
	defer store.Close()

	task := data.DownloadTask{RelPath: "docs/readme.md"}
	require.NoError(t, store.Save(ctx, task, []byte("# hi\n")))

	got, err := os.ReadFile(filepath.Join(dir, "docs", "readme.md"))
	require.NoError(t, err)
	assert.Equal(t, "# hi\n", string(got))
}

func TestOpenBucketStoreUnknownScheme(t *testing.T) {
	_, err := OpenBucketStore(context.Background(), "nosuchscheme://bucket")
	assert.Error(t, err)
}
