// Package scribe orchestrates page processing: it drives the transcription
// client page by page, resumes from the checkpoint, tracks consecutive
// failures and reports progress.
package scribe

import (
	"context"
	"os"
	"strings"
	"time"

	"github.com/docfold/pagescribe/internal/cancel"
	"github.com/docfold/pagescribe/internal/checkpoint"
	"github.com/docfold/pagescribe/internal/domain"
	"github.com/docfold/pagescribe/internal/observability"
	"github.com/docfold/pagescribe/internal/ui"
)

// Transcriber performs one logical page transcription.
type Transcriber interface {
	Transcribe(ctx context.Context, imageBytes []byte) (string, error)
}

// Loop processes the pages of one job sequentially. The remote call
// dominates per-page cost, so there is no intra-job concurrency.
type Loop struct {
	transcriber          Transcriber
	ctrl                 *cancel.Controller
	maxConsecutiveErrors int
	interactive          bool
	log                  *observability.Logger
}

// NewLoop creates a page processing loop. Interactive mode adds spinner and
// per-page outcome lines on top of the structured log.
func NewLoop(t Transcriber, ctrl *cancel.Controller, maxConsecutiveErrors int, interactive bool, log *observability.Logger) *Loop {
	return &Loop{
		transcriber:          t,
		ctrl:                 ctrl,
		maxConsecutiveErrors: maxConsecutiveErrors,
		interactive:          interactive,
		log:                  log.WithComponent("loop"),
	}
}

// Run processes one job from its resume point and reports a summary.
//
// The stop flag is checked before each page, never mid-page: an attempt that
// has started runs to its own completion, timeout or interruption before the
// loop re-checks. An interrupted attempt stops the job with no record
// written for that page; timeouts and transport errors are counted and the
// job is abandoned once the consecutive-failure threshold is reached.
func (l *Loop) Run(ctx context.Context, job domain.Job) (*domain.JobSummary, error) {
	log := l.log.WithJob(job.Title)
	total := job.Source.PageCount()
	summary := &domain.JobSummary{Title: job.Title, TotalPages: total}

	resume, err := checkpoint.ResumePoint(job.CheckpointPath)
	if err != nil {
		return nil, err
	}
	summary.StartPage = resume

	if resume >= total {
		summary.SkippedComplete = true
		log.Info().Int("pages", total).Msg("already complete, skipping")
		return summary, nil
	}

	_, statErr := os.Stat(job.CheckpointPath)
	resuming := statErr == nil
	writer, err := checkpoint.Open(job.CheckpointPath, job.Title, resuming)
	if err != nil {
		return nil, err
	}
	defer writer.Close()

	if resuming {
		log.Info().Int("next_page", resume+1).Int("pages", total).Msg("resuming")
	} else {
		log.Info().Int("pages", total).Msg("starting")
	}

	consecutiveErrors := 0
	var pageTimes []time.Duration

	for idx := resume; idx < total; idx++ {
		if l.ctrl.Stopped() || ctx.Err() != nil {
			summary.Stopped = true
			break
		}

		imageBytes, err := job.Source.RenderPage(idx)
		if err != nil {
			return summary, err
		}

		pageNo := idx + 1
		start := time.Now()

		var spin *ui.PageSpinner
		if l.interactive {
			spin = ui.StartPageSpinner(pageNo, total)
		}

		text, terr := l.transcriber.Transcribe(ctx, imageBytes)
		if spin != nil {
			spin.Stop()
		}
		elapsed := time.Since(start)

		if terr != nil {
			if domain.IsInterrupted(terr) {
				// Work that reached interruption is discarded; no
				// transcript record is written for this page.
				summary.Stopped = true
				summary.Pages = append(summary.Pages, domain.PageResult{
					PageNumber: pageNo, Outcome: domain.PageSkipped, Err: terr, Elapsed: elapsed,
				})
				log.Info().Int("page", pageNo).Msg("interrupted, stopping job")
				break
			}

			consecutiveErrors++
			summary.Pages = append(summary.Pages, domain.PageResult{
				PageNumber: pageNo, Outcome: domain.PageFailed, Err: terr, Elapsed: elapsed,
			})
			if l.interactive {
				ui.PageError(pageNo, total, elapsed, terr)
			}
			log.Error().Err(terr).Int("page", pageNo).Dur("elapsed", elapsed).Msg("page failed")

			if consecutiveErrors >= l.maxConsecutiveErrors {
				summary.Abandoned = true
				if l.interactive {
					ui.Warning("%d consecutive errors, abandoning %s", consecutiveErrors, job.Title)
				}
				log.Error().Int("consecutive_errors", consecutiveErrors).Msg("error threshold crossed, abandoning job")
				break
			}
			continue
		}

		consecutiveErrors = 0
		pageTimes = append(pageTimes, elapsed)

		if err := writer.AppendPage(pageNo, text); err != nil {
			return summary, err
		}

		outcome := domain.PageTranscribed
		if strings.TrimSpace(text) == "" {
			outcome = domain.PageEmpty
		}
		summary.Pages = append(summary.Pages, domain.PageResult{
			PageNumber: pageNo, Outcome: outcome, Text: text, Elapsed: elapsed,
		})

		// Observational only: a running average projects remaining time.
		avg := average(pageTimes)
		eta := avg * time.Duration(total-pageNo)
		if l.interactive {
			if outcome == domain.PageEmpty {
				ui.PageEmpty(pageNo, total)
			} else {
				ui.PageOK(pageNo, total, elapsed, avg, eta)
			}
		}
		log.Info().Int("page", pageNo).Dur("elapsed", elapsed).Dur("eta", eta).Msg("page transcribed")
	}

	return summary, nil
}

func average(times []time.Duration) time.Duration {
	if len(times) == 0 {
		return 0
	}
	var sum time.Duration
	for _, t := range times {
		sum += t
	}
	return sum / time.Duration(len(times))
}
