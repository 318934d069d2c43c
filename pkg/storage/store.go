package storage

import (
	"bufio"
	"context"
	"io"

	"github.com/kerbaras/anonclone/pkg/data"
)

// FirstLineLimit bounds how much of an existing file is read for the
// resume check.
const FirstLineLimit = 1 << 20

type Store interface {
	// FirstLine returns the first line of the stored object for task.
	// exists is false when nothing is stored yet.
	FirstLine(ctx context.Context, task data.DownloadTask) (line string, exists bool, err error)
	// Prepare makes sure task can be written, e.g. by creating its parent
	// directory. It must tolerate concurrent calls for sibling tasks.
	Prepare(ctx context.Context, task data.DownloadTask) error
	// Save replaces the stored object with body.
	Save(ctx context.Context, task data.DownloadTask, body []byte) error
	// Location describes where files end up, for the final report.
	Location() string
}

func readFirstLine(r io.Reader) (string, error) {
	br := bufio.NewReader(io.LimitReader(r, FirstLineLimit))
	line, err := br.ReadString('\n')
	if err != nil && err != io.EOF {
		return "", err
	}
	return line, nil
}
