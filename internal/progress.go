package internal

import (
	"fmt"
	"os"

	"github.com/mattn/go-isatty"
	"github.com/schollz/progressbar/v3"
)

// UIManager handles user interface concerns (progress, verbose and status output)
type UIManager interface {
	NewProgressBar(total int, description string) ProgressBar

	// Verbose output
	Verbose(format string, args ...interface{})

	// Status messages
	Printf(format string, args ...interface{})
	Println(args ...interface{})
}

// ProgressBar interface abstracts progress bar operations
type ProgressBar interface {
	Set(current int)
	Describe(description string)
	Finish()
}

// consoleUI writes to stdout, honoring the quiet and verbose settings.
type consoleUI struct {
	verbose bool
	quiet   bool
}

func NewUIManager(verbose, quiet bool) UIManager {
	return &consoleUI{verbose: verbose, quiet: quiet}
}

// NewProgressBar returns a rendered bar on interactive terminals and a
// no-op bar otherwise, so piped output stays clean.
func (ui *consoleUI) NewProgressBar(total int, description string) ProgressBar {
	if ui.quiet || !isatty.IsTerminal(os.Stdout.Fd()) {
		return noopBar{}
	}

	bar := progressbar.NewOptions(total,
		progressbar.OptionSetDescription(description),
		progressbar.OptionSetWidth(30),
		progressbar.OptionShowCount(),
		progressbar.OptionSetPredictTime(false),
		progressbar.OptionClearOnFinish(),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "=",
			SaucerHead:    ">",
			SaucerPadding: " ",
			BarStart:      "[",
			BarEnd:        "]",
		}))
	return &termBar{bar: bar}
}

func (ui *consoleUI) Verbose(format string, args ...interface{}) {
	if ui.verbose {
		fmt.Printf(format, args...)
	}
}

func (ui *consoleUI) Printf(format string, args ...interface{}) {
	if !ui.quiet {
		fmt.Printf(format, args...)
	}
}

func (ui *consoleUI) Println(args ...interface{}) {
	if !ui.quiet {
		fmt.Println(args...)
	}
}

// termBar renders through schollz/progressbar.
type termBar struct {
	bar *progressbar.ProgressBar
}

func (t *termBar) Set(current int)             { _ = t.bar.Set(current) }
func (t *termBar) Describe(description string) { t.bar.Describe(description) }
func (t *termBar) Finish()                     { _ = t.bar.Finish() }

// noopBar discards all progress updates.
type noopBar struct{}

func (noopBar) Set(int)         {}
func (noopBar) Describe(string) {}
func (noopBar) Finish()         {}
