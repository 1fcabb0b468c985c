package internal

import (
	"context"
	"fmt"
	"os"
	"sort"
)

// App holds the application state and dependencies
type App struct {
	client        *BiliClient
	selector      *ContentSelector
	miner         *CommentMiner
	summarizer    *ReportSummarizer
	promptManager *PromptManager
	orchestrator  *Orchestrator
	index         *ProcessedIndex
	config        *Config
	ui            UIManager
}

// NewApp initializes the application
func NewApp(config *Config, options ...AppOption) (*App, error) {
	index, err := LoadProcessedIndex(config.IndexPath)
	if err != nil {
		return nil, err
	}

	client := NewBiliClient(ParseCookieString(config.Cookies), config.Verbose)
	miner := NewCommentMiner(client, config.Verbose,
		WithMineAttempts(config.MineAttempts),
		WithMineWait(config.MineWait),
	)

	var speech SpeechSource
	if config.ASR.Configured() {
		recognizer := NewFlashRecognizer(config.ASR)
		speech = NewSpeechPipeline(ExecRunner{}, recognizer, config.TempDir,
			config.Downloader, config.Encoder, config.Verbose)
	}

	selector := NewContentSelector(speech, miner, config.ASR.Configured(), config.Verbose)

	promptManager := NewPromptManager(config.ConfigDir, config.Prompt)
	summarizer := NewReportSummarizerWithKey(config.OpenAIAPIKey, promptManager,
		config.SummaryModel, config.SummaryTimeout, config.Verbose)

	app := &App{
		client:        client,
		selector:      selector,
		miner:         miner,
		summarizer:    summarizer,
		promptManager: promptManager,
		index:         index,
		config:        config,
		ui:            NewUIManager(config.Verbose, config.Quiet),
	}

	// Apply any custom options before wiring the orchestrator so substitutes
	// take effect everywhere.
	for _, option := range options {
		option(app)
	}

	app.orchestrator = NewOrchestrator(app.client, app.selector, app.summarizer,
		app.index, config.ReportsDir, config.UploaderUID, config.ReportKeyword,
		config.Verbose,
		WithWatchInterval(config.WatchInterval),
		WithOrchestratorUI(app.ui))

	return app, nil
}

// AppOption customizes App creation
type AppOption func(*App)

// WithClient sets a custom platform API client
func WithClient(client *BiliClient) AppOption {
	return func(a *App) {
		a.client = client
	}
}

// WithSelector sets a custom content selector
func WithSelector(selector *ContentSelector) AppOption {
	return func(a *App) {
		a.selector = selector
	}
}

// WithSummarizer sets a custom summarizer
func WithSummarizer(summarizer *ReportSummarizer) AppOption {
	return func(a *App) {
		a.summarizer = summarizer
	}
}

// SetPromptManager sets a new prompt manager
func (app *App) SetPromptManager(pm *PromptManager) {
	app.promptManager = pm
	app.summarizer.prompts = pm
}

// ProcessVideo runs the full flow for one video and shows the report.
func (app *App) ProcessVideo(ctx context.Context, bvid string, force bool) error {
	if err := EnsureDirs(app.config.TempDir, app.config.ReportsDir); err != nil {
		return fmt.Errorf("creating working directories: %w", err)
	}

	entry, err := app.orchestrator.ProcessVideo(ctx, bvid, force)
	if err != nil {
		return err
	}

	report, err := os.ReadFile(entry.ReportPath)
	if err != nil {
		return fmt.Errorf("reading report: %w", err)
	}

	rendered, err := RenderMarkdown(string(report))
	if err != nil {
		// Fall back to the raw markdown
		rendered = string(report)
	}
	app.ui.Println(rendered)
	app.ui.Printf("Report saved to %s\n", entry.ReportPath)
	return nil
}

// ProcessLatest finds today's report video and processes it.
func (app *App) ProcessLatest(ctx context.Context, force bool) error {
	listing, err := app.orchestrator.FindLatestReport(ctx)
	if err != nil {
		return err
	}
	if listing == nil {
		app.ui.Printf("No report published today (keyword %q)\n", app.config.ReportKeyword)
		return nil
	}
	app.ui.Printf("Found today's report: %s (%s)\n", listing.Title, listing.BVID)
	return app.ProcessVideo(ctx, listing.BVID, force)
}

// ListVideos prints the uploader's recent videos with processing status.
func (app *App) ListVideos(ctx context.Context, count int) error {
	videos, err := app.client.ListUserVideos(ctx, app.config.UploaderUID, count)
	if err != nil {
		return err
	}

	for _, v := range videos {
		marker := " "
		if app.index.Contains(v.BVID) {
			marker = "✓"
		}
		app.ui.Printf("%s %s  %s  %s\n", marker, v.BVID, v.PublishedAt.Format("2006-01-02 15:04"), v.Title)
	}
	return nil
}

// GetContent assembles and returns the raw content for a video without
// summarizing it.
func (app *App) GetContent(ctx context.Context, bvid string) (string, error) {
	if err := EnsureDirs(app.config.TempDir); err != nil {
		return "", fmt.Errorf("creating working directories: %w", err)
	}

	video, err := app.client.GetVideoInfo(ctx, bvid)
	if err != nil {
		return "", fmt.Errorf("fetching video info: %w", err)
	}
	subtitle, err := app.client.GetSubtitle(ctx, video)
	if err != nil {
		return "", fmt.Errorf("fetching subtitles: %w", err)
	}
	bundle, err := app.selector.Assemble(ctx, video, subtitle)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("scenario: %s\n\n%s", bundle.Scenario, bundle.CombinedText()), nil
}

// Watch polls for new report videos until interrupted.
func (app *App) Watch(ctx context.Context) error {
	if err := EnsureDirs(app.config.TempDir, app.config.ReportsDir); err != nil {
		return fmt.Errorf("creating working directories: %w", err)
	}
	app.ui.Printf("Watching uploads of %d every %s (keyword %q)\n",
		app.config.UploaderUID, app.config.WatchInterval, app.config.ReportKeyword)
	return app.orchestrator.Watch(ctx)
}

// Entries returns the processed index entries, newest first.
func (app *App) Entries() []ProcessedEntry {
	entries := app.index.Entries()
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].ProcessedAt.After(entries[j].ProcessedAt)
	})
	return entries
}
