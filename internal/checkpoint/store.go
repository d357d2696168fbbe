// Package checkpoint persists the transcript file that doubles as the
// crash-resume state. No separate database or index exists: the maximum page
// marker found in the file defines the resume point.
package checkpoint

import (
	"bufio"
	"fmt"
	"os"
	"regexp"
	"strconv"
	"strings"

	"github.com/docfold/pagescribe/internal/domain"
)

// NoContentPlaceholder is written for pages that produced no text.
const NoContentPlaceholder = "No content."

// pageMarker matches one page-marker line. The transcript format is kept
// forward-scannable with this single per-line pattern.
var pageMarker = regexp.MustCompile(`^## Page (\d+)`)

// ResumePoint returns the next 0-based page index to process: the maximum
// 1-based page number recorded in the transcript, or 0 when the file does
// not exist or holds no markers. Markers may be sparse; resume always
// happens at the maximum, never at a lower index.
func ResumePoint(path string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, domain.CheckpointError("open transcript", err)
	}
	defer f.Close()

	maxPage := 0
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		m := pageMarker.FindStringSubmatch(scanner.Text())
		if m == nil {
			continue
		}
		n, err := strconv.Atoi(m[1])
		if err != nil {
			continue
		}
		if n > maxPage {
			maxPage = n
		}
	}
	if err := scanner.Err(); err != nil {
		return 0, domain.CheckpointError("scan transcript", err)
	}
	return maxPage, nil
}

// IsComplete reports whether the transcript already covers every page.
func IsComplete(path string, totalPages int) (bool, error) {
	resume, err := ResumePoint(path)
	if err != nil {
		return false, err
	}
	return resume >= totalPages, nil
}

// Writer appends page records to one job's transcript. It is owned
// exclusively by the orchestrator goroutine for the duration of the job.
type Writer struct {
	f *os.File
}

// Open opens the transcript for appending when resuming, or creates it
// fresh with a title header otherwise.
func Open(path, title string, resume bool) (*Writer, error) {
	if resume {
		f, err := os.OpenFile(path, os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, domain.CheckpointError("open transcript for append", err)
		}
		return &Writer{f: f}, nil
	}

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return nil, domain.CheckpointError("create transcript", err)
	}
	if _, err := fmt.Fprintf(f, "# %s\n\n", title); err != nil {
		f.Close()
		return nil, domain.CheckpointError("write transcript header", err)
	}
	return &Writer{f: f}, nil
}

// AppendPage writes a page-marker line followed by the page's text, or the
// no-content placeholder when the page produced nothing, and flushes durably
// before returning. A crash immediately after AppendPage returns must not
// lose the record.
func (w *Writer) AppendPage(pageNumber int, text string) error {
	if strings.TrimSpace(text) == "" {
		text = NoContentPlaceholder
	}
	if _, err := fmt.Fprintf(w.f, "## Page %d\n\n%s\n\n", pageNumber, text); err != nil {
		return domain.CheckpointError(fmt.Sprintf("write page %d", pageNumber), err)
	}
	if err := w.f.Sync(); err != nil {
		return domain.CheckpointError(fmt.Sprintf("flush page %d", pageNumber), err)
	}
	return nil
}

// Close closes the transcript handle.
func (w *Writer) Close() error {
	return w.f.Close()
}
