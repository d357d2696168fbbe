// Package ui provides terminal output components for the processing loop.
package ui

import (
	"fmt"
	"os"
	"time"

	"github.com/briandowns/spinner"
	"github.com/fatih/color"
)

// Init initializes the UI with color settings.
func Init(noColor bool) {
	if noColor {
		color.NoColor = true
	}
}

var (
	okLine   = color.New(color.FgGreen)
	errLine  = color.New(color.FgRed)
	warnLine = color.New(color.FgYellow)
	dimLine  = color.New(color.Faint)
)

// PageSpinner shows the in-flight elapsed time while one page attempt blocks
// on the model server.
type PageSpinner struct {
	s     *spinner.Spinner
	page  int
	total int
	start time.Time
	stop  chan struct{}
	done  chan struct{}
}

// StartPageSpinner begins the "transcribing… m:ss" display for a page.
func StartPageSpinner(page, total int) *PageSpinner {
	s := spinner.New(spinner.CharSets[14], 100*time.Millisecond)
	s.Writer = os.Stderr
	p := &PageSpinner{
		s:     s,
		page:  page,
		total: total,
		start: time.Now(),
		stop:  make(chan struct{}),
		done:  make(chan struct{}),
	}
	s.Suffix = p.message(0)
	s.Start()
	go p.tick()
	return p
}

func (p *PageSpinner) message(elapsed time.Duration) string {
	return fmt.Sprintf(" page %d/%d — transcribing… %s", p.page, p.total, FormatDuration(elapsed))
}

func (p *PageSpinner) tick() {
	defer close(p.done)
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-p.stop:
			return
		case <-ticker.C:
			// The render goroutine reads Suffix concurrently.
			p.s.Lock()
			p.s.Suffix = p.message(time.Since(p.start))
			p.s.Unlock()
		}
	}
}

// Stop halts the spinner and clears its line.
func (p *PageSpinner) Stop() {
	close(p.stop)
	<-p.done
	p.s.Stop()
}

// PageOK prints a success outcome with timing and the remaining-time
// projection.
func PageOK(page, total int, elapsed, avg, eta time.Duration) {
	okLine.Printf("  page %d/%d — OK (%s) — avg %s/page — est. remaining %s\n",
		page, total, FormatDuration(elapsed), FormatDuration(avg), FormatDuration(eta))
}

// PageEmpty prints a no-content outcome.
func PageEmpty(page, total int) {
	dimLine.Printf("  page %d/%d — no content\n", page, total)
}

// PageError prints a failure outcome with elapsed time and message.
func PageError(page, total int, elapsed time.Duration, err error) {
	errLine.Printf("  page %d/%d — ERROR (%s) — %v\n", page, total, FormatDuration(elapsed), err)
}

// Message displays a plain message.
func Message(format string, args ...interface{}) {
	fmt.Fprintf(os.Stdout, format+"\n", args...)
}

// Success displays a success message.
func Success(format string, args ...interface{}) {
	okLine.Printf("✓ %s\n", fmt.Sprintf(format, args...))
}

// Warning displays a warning message.
func Warning(format string, args ...interface{}) {
	warnLine.Printf("⚠ %s\n", fmt.Sprintf(format, args...))
}

// Error displays an error message to stderr.
func Error(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, "✗ %s\n", fmt.Sprintf(format, args...))
}

// Banner prints the startup banner.
func Banner() {
	dimLine.Println(`
  ┌─┐┌─┐┌─┐┌─┐┌─┐┌─┐┬─┐┬┌┐ ┌─┐
  ├─┘├─┤│ ┬├┤ └─┐│  ├┬┘│├┴┐├┤
  ┴  ┴ ┴└─┘└─┘└─┘└─┘┴└─┴└─┘└─┘`)
}

// FormatDuration renders a duration as m:ss.
func FormatDuration(d time.Duration) string {
	total := int(d.Seconds())
	return fmt.Sprintf("%02d:%02d", total/60, total%60)
}
