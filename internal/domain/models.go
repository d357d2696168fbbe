package domain

import "time"

// PageSource yields raw PNG bytes for the pages of one job, rendered on demand.
// Implementations must be safe for sequential use from a single goroutine.
type PageSource interface {
	PageCount() int
	RenderPage(index int) ([]byte, error)
	Close() error
}

// Job is one unit of work: an ordered page sequence, an identifying title and
// the transcript location. Immutable once enumerated.
type Job struct {
	Title          string
	CheckpointPath string
	Source         PageSource
}

// PageOutcome classifies the result of processing one page.
type PageOutcome string

const (
	PageTranscribed PageOutcome = "transcribed"
	PageEmpty       PageOutcome = "empty"
	PageFailed      PageOutcome = "failed"
	PageSkipped     PageOutcome = "skipped"
)

// PageResult is the outcome of one attempted page. Produced exactly once per
// attempted page; failed pages are not retried within a run.
type PageResult struct {
	PageNumber int // 1-based
	Outcome    PageOutcome
	Text       string
	Err        error
	Elapsed    time.Duration
}

// AttemptStatus is the terminal state of one streaming generation attempt.
type AttemptStatus string

const (
	AttemptCompleted AttemptStatus = "completed"
	AttemptTruncated AttemptStatus = "truncated"
	AttemptErrored   AttemptStatus = "errored"
)

// JobSummary reports what one job run did.
type JobSummary struct {
	Title           string
	TotalPages      int
	StartPage       int          // 0-based index of the first page processed
	Pages           []PageResult // one per attempted page
	SkippedComplete bool         // checkpoint already covered every page
	Stopped         bool         // operator abort observed
	Abandoned       bool         // consecutive-error threshold crossed
}

// Processed counts pages that produced a transcript record.
func (s *JobSummary) Processed() int {
	n := 0
	for _, p := range s.Pages {
		if p.Outcome == PageTranscribed || p.Outcome == PageEmpty {
			n++
		}
	}
	return n
}

// FailedPages lists the 1-based numbers of pages that errored, in order.
func (s *JobSummary) FailedPages() []int {
	var pages []int
	for _, p := range s.Pages {
		if p.Outcome == PageFailed {
			pages = append(pages, p.PageNumber)
		}
	}
	return pages
}
