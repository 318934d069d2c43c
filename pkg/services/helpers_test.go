package services

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/kerbaras/anonclone/pkg/data"
	"github.com/kerbaras/anonclone/pkg/sources"
	"github.com/kerbaras/anonclone/pkg/storage"
	"github.com/kerbaras/anonclone/pkg/utils"
)

const testProject = "840c8c57"

// fakeRemote imitates the listing and file endpoints.
type fakeRemote struct {
	mu       sync.Mutex
	manifest string
	files    map[string]string
	hits     map[string]int
	// onFile, when set, handles a file request instead of the files map.
	onFile func(rel string, w http.ResponseWriter)
	server *httptest.Server
}

func newFakeRemote(t *testing.T, manifest string, files map[string]string) *fakeRemote {
	t.Helper()
	f := &fakeRemote{manifest: manifest, files: files, hits: make(map[string]int)}
	f.server = httptest.NewServer(http.HandlerFunc(f.serve))
	t.Cleanup(f.server.Close)
	return f
}

func (f *fakeRemote) serve(w http.ResponseWriter, r *http.Request) {
	listPath := "/api/repo/" + testProject + "/files/"
	filePrefix := "/api/repo/" + testProject + "/file/"

	switch {
	case r.URL.Path == listPath:
		f.hit("<manifest>")
		w.Write([]byte(f.manifest))
	case strings.HasPrefix(r.URL.Path, filePrefix):
		rel := strings.TrimPrefix(r.URL.Path, filePrefix)
		f.hit(rel)
		if f.onFile != nil {
			f.onFile(rel, w)
			return
		}
		body, ok := f.files[rel]
		if !ok {
			http.NotFound(w, r)
			return
		}
		w.Write([]byte(body))
	default:
		http.NotFound(w, r)
	}
}

func (f *fakeRemote) hit(key string) {
	f.mu.Lock()
	f.hits[key]++
	f.mu.Unlock()
}

func (f *fakeRemote) Hits(key string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.hits[key]
}

func (f *fakeRemote) FileHits() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for k, v := range f.hits {
		if k != "<manifest>" {
			n += v
		}
	}
	return n
}

func (f *fakeRemote) Source(t *testing.T) *sources.Anonymous {
	t.Helper()
	api, err := utils.NewAPI(f.server.URL, utils.APIOptions{Timeout: 5 * time.Second})
	require.NoError(t, err)
	return sources.NewAnonymous(api)
}

func (f *fakeRemote) Task(t *testing.T, root, rel string) data.DownloadTask {
	t.Helper()
	task, ok := BuildTask(data.FlatRecord(append(strings.Split(rel, "/"), "key", "value")), TaskOptions{
		FileEndpoint: f.Source(t).FileEndpoint(testProject),
		OutputDir:    root,
	})
	require.True(t, ok)
	return task
}

type fileSourceFunc func(ctx context.Context, url string) ([]byte, error)

func (f fileSourceFunc) FetchFile(ctx context.Context, url string) ([]byte, error) {
	return f(ctx, url)
}

// failingStore reports an error for every first-line read.
type failingStore struct {
	storage.Store
	err error
}

func (s failingStore) FirstLine(context.Context, data.DownloadTask) (string, bool, error) {
	return "", true, s.err
}

func newTestDownloader(t *testing.T, remote *fakeRemote, root string, workers int) *Downloader {
	t.Helper()
	store := storage.NewLocalStore(root)
	logger := DiscardLogger()
	fetcher := NewFetcher(remote.Source(t), store, logger, FetcherOptions{RetryDelay: time.Millisecond})
	return NewDownloader(NewResumePolicy(store, logger), fetcher, workers, logger)
}
