package internal

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

const (
	defaultListCount     = 10
	defaultWatchInterval = 600 * time.Second
)

// VideoAPI is the slice of the platform client the orchestrator uses.
type VideoAPI interface {
	ListUserVideos(ctx context.Context, uid int64, count int) ([]VideoListing, error)
	GetVideoInfo(ctx context.Context, bvid string) (*VideoRecord, error)
	GetSubtitle(ctx context.Context, video *VideoRecord) (SubtitleTrack, error)
}

// BundleAssembler assembles the content sources for a video.
type BundleAssembler interface {
	Assemble(ctx context.Context, video *VideoRecord, subtitle SubtitleTrack) (*ContentBundle, error)
}

// Orchestrator drives the full processing flow for one video: check the
// processed index, fetch metadata and subtitles, assemble content, summarize
// and record the result. Videos are only recorded after the report is
// written, so a failed run leaves them eligible for retry.
type Orchestrator struct {
	api        VideoAPI
	selector   BundleAssembler
	summarizer Summarizer
	index      *ProcessedIndex
	outputDir  string
	uid        int64
	keyword    string
	listCount  int
	interval   time.Duration
	now        func() time.Time
	sleep      func(ctx context.Context, d time.Duration) error
	ui         UIManager
	verbose    bool
}

// OrchestratorOption customizes orchestrator creation.
type OrchestratorOption func(*Orchestrator)

// WithListCount sets how many recent uploads are scanned for reports.
func WithListCount(n int) OrchestratorOption {
	return func(o *Orchestrator) { o.listCount = n }
}

// WithWatchInterval sets the pause between watch polls.
func WithWatchInterval(d time.Duration) OrchestratorOption {
	return func(o *Orchestrator) { o.interval = d }
}

// WithOrchestratorClock replaces the clock (tests).
func WithOrchestratorClock(now func() time.Time) OrchestratorOption {
	return func(o *Orchestrator) { o.now = now }
}

// WithOrchestratorSleeper replaces the watch wait implementation (tests).
func WithOrchestratorSleeper(sleep func(ctx context.Context, d time.Duration) error) OrchestratorOption {
	return func(o *Orchestrator) { o.sleep = sleep }
}

// WithOrchestratorUI attaches a UI for progress reporting.
func WithOrchestratorUI(ui UIManager) OrchestratorOption {
	return func(o *Orchestrator) { o.ui = ui }
}

// NewOrchestrator wires the processing flow together. keyword identifies
// the uploader's daily report videos by title.
func NewOrchestrator(api VideoAPI, selector BundleAssembler, summarizer Summarizer, index *ProcessedIndex, outputDir string, uid int64, keyword string, verbose bool, options ...OrchestratorOption) *Orchestrator {
	o := &Orchestrator{
		api:        api,
		selector:   selector,
		summarizer: summarizer,
		index:      index,
		outputDir:  outputDir,
		uid:        uid,
		keyword:    keyword,
		listCount:  defaultListCount,
		interval:   defaultWatchInterval,
		now:        time.Now,
		sleep:      sleepContext,
		verbose:    verbose,
	}
	for _, option := range options {
		option(o)
	}
	return o
}

// ProcessVideo runs the full flow for one video. Already processed videos
// are returned from the index unchanged unless force is set.
func (o *Orchestrator) ProcessVideo(ctx context.Context, bvid string, force bool) (*ProcessedEntry, error) {
	if !force {
		if entry, ok := o.index.Get(bvid); ok {
			if o.verbose {
				fmt.Printf("%s already processed on %s, skipping\n", bvid, entry.ProcessedAt.Format("2006-01-02"))
			}
			return &entry, nil
		}
	}

	var bar ProgressBar
	if o.ui != nil {
		bar = o.ui.NewProgressBar(4, "Fetching metadata")
		defer bar.Finish()
	}
	step := func(n int, description string) {
		if bar != nil {
			bar.Set(n)
			bar.Describe(description)
		}
	}

	video, err := o.api.GetVideoInfo(ctx, bvid)
	if err != nil {
		return nil, fmt.Errorf("fetching video info: %w", err)
	}
	step(1, "Fetching subtitles")

	subtitle, err := o.api.GetSubtitle(ctx, video)
	if err != nil {
		return nil, fmt.Errorf("fetching subtitles: %w", err)
	}
	step(2, "Assembling content")

	bundle, err := o.selector.Assemble(ctx, video, subtitle)
	if err != nil {
		return nil, err
	}
	step(3, "Summarizing")

	report, err := o.summarizer.Summarize(ctx, video, bundle)
	if err != nil {
		return nil, fmt.Errorf("summarizing %s: %w", bvid, err)
	}
	step(4, "Saving report")

	reportPath, err := o.writeReport(video, report)
	if err != nil {
		return nil, err
	}

	entry := ProcessedEntry{
		BVID:        video.BVID,
		Title:       video.Title,
		Scenario:    bundle.Scenario.String(),
		ReportPath:  reportPath,
		ProcessedAt: o.now(),
	}
	if err := o.index.Record(entry); err != nil {
		return nil, fmt.Errorf("recording processed video: %w", err)
	}

	if o.verbose {
		fmt.Printf("Report for %s written to %s\n", bvid, reportPath)
	}
	return &entry, nil
}

// writeReport saves the markdown report under the output directory.
func (o *Orchestrator) writeReport(video *VideoRecord, report string) (string, error) {
	if err := os.MkdirAll(o.outputDir, 0o755); err != nil {
		return "", fmt.Errorf("creating output dir: %w", err)
	}
	name := fmt.Sprintf("%s-%s.md", video.PublishedAt.Format("2006-01-02"), video.BVID)
	path := filepath.Join(o.outputDir, name)
	if err := os.WriteFile(path, []byte(report), 0o644); err != nil {
		return "", fmt.Errorf("writing report: %w", err)
	}
	return path, nil
}

// FindLatestReport scans the uploader's recent videos for today's report:
// the newest upload whose title or description contains the keyword and
// that was published on the current calendar day. Returns nil when none
// exists yet.
func (o *Orchestrator) FindLatestReport(ctx context.Context) (*VideoListing, error) {
	videos, err := o.api.ListUserVideos(ctx, o.uid, o.listCount)
	if err != nil {
		return nil, fmt.Errorf("listing uploads: %w", err)
	}

	today := o.now()
	for i := range videos {
		v := videos[i]
		if o.keyword != "" && !strings.Contains(v.Title, o.keyword) && !strings.Contains(v.Description, o.keyword) {
			continue
		}
		if !sameDay(v.PublishedAt, today) {
			continue
		}
		return &v, nil
	}
	return nil, nil
}

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

// Watch polls for today's report until the context is cancelled, processing
// each new one exactly once.
func (o *Orchestrator) Watch(ctx context.Context) error {
	for {
		listing, err := o.FindLatestReport(ctx)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Warning: checking for new report: %v\n", err)
		} else if listing != nil && !o.index.Contains(listing.BVID) {
			if _, err := o.ProcessVideo(ctx, listing.BVID, false); err != nil {
				fmt.Fprintf(os.Stderr, "Warning: processing %s: %v\n", listing.BVID, err)
			}
		} else if o.verbose {
			fmt.Printf("No new report at %s\n", o.now().Format("15:04:05"))
		}

		if err := o.sleep(ctx, o.interval); err != nil {
			return nil
		}
	}
}
