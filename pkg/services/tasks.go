package services

import (
	"iter"
	"net/url"
	"path"
	"path/filepath"
	"strings"

	"github.com/kerbaras/anonclone/pkg/data"
)

type TaskOptions struct {
	// FileEndpoint is the per-file download URL prefix, ending in "/".
	FileEndpoint string
	OutputDir    string
	Skip         []string
}

// BuildReport counts what BuildTasks did with each record.
type BuildReport struct {
	Records    int
	Tasks      int
	Skipped    int
	Duplicates int
	// Empty records derive no path (two elements or fewer).
	Empty int
	// Unsafe records derive a path that would leave the output directory.
	Unsafe int
}

// DerivePath joins every element of rec except the last two. The last two
// are taken as a file-level key and its value and never reach the path.
func DerivePath(rec data.FlatRecord) string {
	if len(rec) <= 2 {
		return ""
	}
	return strings.Join(rec[:len(rec)-2], "/")
}

// BuildTask converts one record. ok is false when the record derives no
// usable path.
func BuildTask(rec data.FlatRecord, opts TaskOptions) (task data.DownloadTask, ok bool) {
	rel := DerivePath(rec)
	if rel == "" || !safeRelPath(rel) {
		return data.DownloadTask{}, false
	}

	segments := strings.Split(rel, "/")
	escaped := make([]string, len(segments))
	for i, s := range segments {
		escaped[i] = url.PathEscape(s)
	}

	return data.DownloadTask{
		RemoteURL: opts.FileEndpoint + strings.Join(escaped, "/"),
		RelPath:   rel,
		LocalPath: filepath.Join(opts.OutputDir, filepath.FromSlash(rel)),
	}, true
}

// BuildTasks eagerly converts records into tasks. Tasks whose URL ends with
// a skip suffix are dropped. When two records derive the same path the first
// one wins.
func BuildTasks(records iter.Seq[data.FlatRecord], opts TaskOptions) ([]data.DownloadTask, BuildReport) {
	var (
		tasks  []data.DownloadTask
		report BuildReport
		seen   = make(map[string]struct{})
	)

	for rec := range records {
		report.Records++

		task, ok := BuildTask(rec, opts)
		if !ok {
			if DerivePath(rec) == "" {
				report.Empty++
			} else {
				report.Unsafe++
			}
			continue
		}
		if hasSkipSuffix(task.RemoteURL, opts.Skip) {
			report.Skipped++
			continue
		}
		if _, dup := seen[task.LocalPath]; dup {
			report.Duplicates++
			continue
		}
		seen[task.LocalPath] = struct{}{}
		tasks = append(tasks, task)
	}

	report.Tasks = len(tasks)
	return tasks, report
}

func hasSkipSuffix(remoteURL string, skip []string) bool {
	for _, s := range skip {
		if s != "" && strings.HasSuffix(remoteURL, s) {
			return true
		}
	}
	return false
}

func safeRelPath(rel string) bool {
	if strings.HasPrefix(rel, "/") {
		return false
	}
	clean := path.Clean(rel)
	return clean != "." && clean != ".." && !strings.HasPrefix(clean, "../")
}
