package scribe

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/docfold/pagescribe/internal/cancel"
	"github.com/docfold/pagescribe/internal/domain"
	"github.com/docfold/pagescribe/internal/observability"
	"github.com/docfold/pagescribe/internal/render"
	"github.com/docfold/pagescribe/internal/ui"
)

// Driver enumerates jobs under the data directory and runs them one at a
// time in a fixed deterministic order: PDF files first, then image
// directories, each lexicographically sorted.
type Driver struct {
	dataDir     string
	renderer    *render.Renderer
	loop        *Loop
	ctrl        *cancel.Controller
	interactive bool
	log         *observability.Logger
}

// NewDriver creates a job driver rooted at dataDir.
func NewDriver(dataDir string, renderer *render.Renderer, loop *Loop, ctrl *cancel.Controller, interactive bool, log *observability.Logger) *Driver {
	return &Driver{
		dataDir:     dataDir,
		renderer:    renderer,
		loop:        loop,
		ctrl:        ctrl,
		interactive: interactive,
		log:         log.WithComponent("driver"),
	}
}

// Run processes every job under the data directory. The stop flag is
// re-checked before each job, so an abort during one job prevents any
// further jobs from starting. Returns whether the run was stopped by the
// operator.
func (d *Driver) Run(ctx context.Context) (bool, error) {
	pdfs, imageDirs, err := d.enumerate()
	if err != nil {
		return false, err
	}

	if len(pdfs)+len(imageDirs) == 0 {
		if d.interactive {
			ui.Message("no PDF files or image directories found in %s", d.dataDir)
		}
		d.log.Warn().Str("data_dir", d.dataDir).Msg("nothing to process")
		return false, nil
	}

	d.log.Info().Int("pdfs", len(pdfs)).Int("image_dirs", len(imageDirs)).Msg("jobs enumerated")
	if d.interactive {
		ui.Message("found %d PDF(s) and %d image directory(ies); press Escape at any time to stop", len(pdfs), len(imageDirs))
	}

	for _, path := range pdfs {
		if d.stopped(ctx) {
			return true, nil
		}
		d.runDocumentJob(ctx, path)
	}

	for _, dir := range imageDirs {
		if d.stopped(ctx) {
			return true, nil
		}
		d.runImageSetJob(ctx, dir)
	}

	return d.stopped(ctx), nil
}

func (d *Driver) stopped(ctx context.Context) bool {
	return d.ctrl.Stopped() || ctx.Err() != nil
}

// enumerate lists the data directory's PDF files and subdirectories that
// contain at least one image.
func (d *Driver) enumerate() (pdfs []string, imageDirs []string, err error) {
	entries, err := os.ReadDir(d.dataDir)
	if err != nil {
		return nil, nil, domain.ConfigError("read data directory", err)
	}

	for _, e := range entries {
		path := filepath.Join(d.dataDir, e.Name())
		if e.IsDir() {
			if dirHasImages(path) {
				imageDirs = append(imageDirs, path)
			}
			continue
		}
		if strings.EqualFold(filepath.Ext(e.Name()), ".pdf") {
			pdfs = append(pdfs, path)
		}
	}

	sort.Strings(pdfs)
	sort.Strings(imageDirs)
	return pdfs, imageDirs, nil
}

func dirHasImages(dir string) bool {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return false
	}
	for _, e := range entries {
		if e.Type().IsRegular() && render.IsImageFile(e.Name()) {
			return true
		}
	}
	return false
}

func (d *Driver) runDocumentJob(ctx context.Context, path string) {
	title := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))

	source, err := d.renderer.OpenDocument(path)
	if err != nil {
		d.reportJobError(title, err)
		return
	}
	defer source.Close()

	d.runJob(ctx, domain.Job{
		Title:          title,
		CheckpointPath: filepath.Join(d.dataDir, Slugify(title)+".md"),
		Source:         source,
	})
}

func (d *Driver) runImageSetJob(ctx context.Context, dir string) {
	title := filepath.Base(dir)

	source, err := d.renderer.OpenImageSet(dir)
	if err != nil {
		d.reportJobError(title, err)
		return
	}
	defer source.Close()

	d.runJob(ctx, domain.Job{
		Title:          title,
		CheckpointPath: filepath.Join(d.dataDir, Slugify(title)+".md"),
		Source:         source,
	})
}

// runJob runs one job and reports its outcome. A failed job never aborts
// the run; the driver proceeds to the next job.
func (d *Driver) runJob(ctx context.Context, job domain.Job) {
	if d.interactive && !d.stopped(ctx) {
		ui.Message("processing %s → %s", job.Title, job.CheckpointPath)
	}

	summary, err := d.loop.Run(ctx, job)
	if err != nil {
		d.reportJobError(job.Title, err)
		return
	}
	d.reportSummary(summary)
}

func (d *Driver) reportJobError(title string, err error) {
	if d.interactive {
		ui.Error("%s: %v", title, err)
	}
	d.log.Error().Err(err).Str("job", title).Msg("job failed")
}

func (d *Driver) reportSummary(s *domain.JobSummary) {
	if !d.interactive {
		return
	}
	if s.SkippedComplete {
		ui.Message("skipping %s (already complete)", s.Title)
		return
	}
	ui.Success("%s: %d page(s) processed", s.Title, s.Processed())
	if failed := s.FailedPages(); len(failed) > 0 {
		ui.Warning("%d page(s) failed: %v", len(failed), failed)
	}
	if s.Abandoned {
		ui.Warning("job abandoned after repeated consecutive errors")
	}
}
