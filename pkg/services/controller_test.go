package services

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gocloud.dev/blob"
	_ "gocloud.dev/blob/memblob"

	"github.com/kerbaras/anonclone/pkg/data"
	"github.com/kerbaras/anonclone/pkg/sources"
	"github.com/kerbaras/anonclone/pkg/storage"
)

type mockLedger struct {
	mu       sync.Mutex
	startErr error
	runs     []*data.Run
	outcomes []data.DownloadOutcome
	finished map[string]data.Summary
}

func (m *mockLedger) StartRun(run *data.Run) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.startErr != nil {
		return m.startErr
	}
	m.runs = append(m.runs, run)
	return nil
}

func (m *mockLedger) RecordOutcome(runID string, outcome data.DownloadOutcome) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.outcomes = append(m.outcomes, outcome)
	return nil
}

func (m *mockLedger) FinishRun(runID string, summary data.Summary, finishedAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.finished == nil {
		m.finished = make(map[string]data.Summary)
	}
	m.finished[runID] = summary
	return nil
}

func newTestController(t *testing.T, remote *fakeRemote, store storage.Store, workers int, ledger Ledger) *Controller {
	t.Helper()
	return NewController(remote.Source(t), store, ControllerConfig{
		Workers:    workers,
		RetryDelay: time.Millisecond,
		Logger:     DiscardLogger(),
		Ledger:     ledger,
	})
}

func TestController_CloneEndToEnd(t *testing.T) {
	remote := newFakeRemote(t, `{"src": {"main.ext": "h1"}}`, map[string]string{"src": "file body\n"})
	root := filepath.Join(t.TempDir(), "out")

	var lines []string
	var report BuildReport
	result, err := newTestController(t, remote, storage.NewLocalStore(root), 1, nil).Clone(context.Background(), CloneOptions{
		ProjectID: testProject,
		OutputDir: root,
		OnPlan:    func(r BuildReport) { report = r },
		OnProgress: func(p DownloadProgress) {
			lines = append(lines, fmt.Sprintf("%d/%d", p.Processed, p.Total))
		},
	})
	require.NoError(t, err)
	require.NoError(t, result.Err())

	assert.Equal(t, 1, report.Tasks)
	assert.Equal(t, []string{"1/1"}, lines)
	assert.Equal(t, root, result.Location)
	assert.NotEmpty(t, result.RunID)

	got, err := os.ReadFile(filepath.Join(root, "src"))
	require.NoError(t, err)
	assert.Equal(t, "file body\n", string(got))
}

func TestController_CloneNestedTreeWithSkip(t *testing.T) {
	manifest := `{
		"pkg": {
			"a.py": {"size": 1, "sha": "x"},
			"a.pyc": {"size": 1, "sha": "y"}
		},
		"README.md": {"size": 2, "sha": "z"}
	}`
	remote := newFakeRemote(t, manifest, map[string]string{"pkg/a.py": "print()\n", "README.md": "# hi\n"})
	root := t.TempDir()

	result, err := newTestController(t, remote, storage.NewLocalStore(root), 2, nil).Clone(context.Background(), CloneOptions{
		ProjectID: testProject,
		OutputDir: root,
		Skip:      []string{"pyc"},
	})
	require.NoError(t, err)

	assert.Equal(t, 2, result.Summary.Completed)
	assert.Equal(t, 2, result.Report.Skipped)
	assert.Equal(t, 2, result.Report.Duplicates)
	assert.Zero(t, remote.Hits("pkg/a.pyc"))
	assert.FileExists(t, filepath.Join(root, "pkg", "a.py"))
	assert.FileExists(t, filepath.Join(root, "README.md"))
}

func TestController_ManifestRateLimited(t *testing.T) {
	remote := newFakeRemote(t, rateLimitPage, nil)
	root := t.TempDir()

	_, err := newTestController(t, remote, storage.NewLocalStore(root), 2, nil).Clone(context.Background(), CloneOptions{
		ProjectID: testProject,
		OutputDir: root,
	})

	assert.ErrorIs(t, err, sources.ErrRateLimited)
	assert.Zero(t, remote.FileHits())
}

func TestController_ManifestMalformed(t *testing.T) {
	remote := newFakeRemote(t, `{"src": [`, nil)

	_, err := newTestController(t, remote, storage.NewLocalStore(t.TempDir()), 2, nil).Clone(context.Background(), CloneOptions{
		ProjectID: testProject,
	})

	assert.ErrorIs(t, err, sources.ErrMalformedManifest)
}

func TestController_EmptyProjectID(t *testing.T) {
	remote := newFakeRemote(t, "{}", nil)

	_, _, err := newTestController(t, remote, storage.NewLocalStore(t.TempDir()), 1, nil).Plan(context.Background(), "", "", nil)

	assert.Error(t, err)
	assert.Zero(t, remote.Hits("<manifest>"))
}

func TestController_RecordsRunInLedger(t *testing.T) {
	remote := newFakeRemote(t, `{"a": {"k": "v"}, "b": {"k": "v"}}`, map[string]string{"a": "A"})
	root := t.TempDir()
	ledger := &mockLedger{}

	result, err := newTestController(t, remote, storage.NewLocalStore(root), 1, ledger).Clone(context.Background(), CloneOptions{
		ProjectID: testProject,
		OutputDir: root,
	})
	require.NoError(t, err)

	require.Len(t, ledger.runs, 1)
	assert.Equal(t, result.RunID, ledger.runs[0].ID)
	assert.Equal(t, testProject, ledger.runs[0].ProjectID)
	assert.Equal(t, 2, ledger.runs[0].Total)
	assert.Len(t, ledger.outcomes, 2)
	assert.Equal(t, result.Summary, ledger.finished[result.RunID])
	assert.ErrorIs(t, result.Err(), ErrIncomplete)
}

func TestController_LedgerFailureDoesNotStopClone(t *testing.T) {
	remote := newFakeRemote(t, `{"a": {"k": "v"}}`, map[string]string{"a": "A"})
	root := t.TempDir()
	ledger := &mockLedger{startErr: errors.New("database is locked")}

	result, err := newTestController(t, remote, storage.NewLocalStore(root), 1, ledger).Clone(context.Background(), CloneOptions{
		ProjectID: testProject,
		OutputDir: root,
	})
	require.NoError(t, err)

	assert.Equal(t, 1, result.Summary.Completed)
	assert.Empty(t, ledger.outcomes)
	assert.Empty(t, ledger.finished)
}

func TestController_DuckDBLedger(t *testing.T) {
	remote := newFakeRemote(t, `{"a": {"k": "v"}, "b": {"k": "v"}}`, map[string]string{"a": "A", "b": "B"})
	root := t.TempDir()
	repo, err := data.OpenRepository(filepath.Join(t.TempDir(), "history.db"))
	require.NoError(t, err)
	t.Cleanup(func() { repo.Close() })

	result, err := newTestController(t, remote, storage.NewLocalStore(root), 2, repo).Clone(context.Background(), CloneOptions{
		ProjectID: testProject,
		OutputDir: root,
	})
	require.NoError(t, err)

	run, err := repo.GetRun(result.RunID)
	require.NoError(t, err)
	assert.Equal(t, 2, run.Completed)
	require.NotNil(t, run.FinishedAt)

	files, err := repo.GetFiles(result.RunID)
	require.NoError(t, err)
	require.Len(t, files, 2)
	assert.Equal(t, "a", files[0].RelPath)
	assert.Equal(t, "b", files[1].RelPath)
}

func TestController_CloneIntoBucket(t *testing.T) {
	remote := newFakeRemote(t, `{"docs": {"guide.md": {"k": "v"}}}`, map[string]string{"docs/guide.md": "# guide\n"})
	ctx := context.Background()
	bucket, err := blob.OpenBucket(ctx, "mem://")
	require.NoError(t, err)
	t.Cleanup(func() { bucket.Close() })
	store := storage.NewBucketStore(bucket, "mem://")

	result, err := newTestController(t, remote, store, 1, nil).Clone(ctx, CloneOptions{
		ProjectID: testProject,
		OutputDir: "unused",
	})
	require.NoError(t, err)
	require.NoError(t, result.Err())

	got, err := bucket.ReadAll(ctx, "docs/guide.md")
	require.NoError(t, err)
	assert.Equal(t, "# guide\n", string(got))
	assert.Equal(t, "mem://", result.Location)

	// A second run finds the object and skips it.
	again, err := newTestController(t, remote, store, 1, nil).Clone(ctx, CloneOptions{ProjectID: testProject, OutputDir: "unused"})
	require.NoError(t, err)
	assert.Equal(t, 1, again.Summary.Skipped)
	assert.Equal(t, 1, remote.Hits("docs/guide.md"))
}

func TestCloneResult_Err(t *testing.T) {
	tests := []struct {
		name    string
		summary data.Summary
		want    error
	}{
		{"all done", data.Summary{Total: 2, Processed: 2, Completed: 1, Skipped: 1}, nil},
		{"nothing to do", data.Summary{}, nil},
		{"failed file", data.Summary{Total: 2, Processed: 2, Completed: 1, Failed: 1}, ErrIncomplete},
		{"canceled", data.Summary{Total: 2, NotStarted: 2}, ErrIncomplete},
		{"rate limited", data.Summary{Total: 3, Processed: 1, Failed: 1, NotStarted: 2, RateLimited: true}, sources.ErrRateLimited},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := CloneResult{Summary: tt.summary}.Err()
			if tt.want == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.want)
		})
	}
}
