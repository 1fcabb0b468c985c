package internal

import (
	"context"
	"fmt"
	"unicode/utf8"
)

// minDescriptionRunes is the threshold below which a description is too
// thin to summarize on its own.
const minDescriptionRunes = 30

// scenarioKey indexes the selection table. Even when a subtitle is present
// the other two flags keep their observed values; the table maps every
// combination.
type scenarioKey struct {
	hasSubtitle     bool
	descQualifies   bool
	speechAvailable bool
}

// scenarioTable maps every source combination to its scenario. A subtitle
// always wins; without one, a qualifying description is preferred over
// comment mining, and speech fallback augments whichever branch is taken.
var scenarioTable = map[scenarioKey]Scenario{
	{true, true, true}:    ScenarioSubtitleOnly,
	{true, true, false}:   ScenarioSubtitleOnly,
	{true, false, true}:   ScenarioSubtitleOnly,
	{true, false, false}:  ScenarioSubtitleOnly,
	{false, true, true}:   ScenarioDescriptionAndSpeech,
	{false, true, false}:  ScenarioDescriptionOnly,
	{false, false, true}:  ScenarioSpeechAndComments,
	{false, false, false}: ScenarioCommentsOnly,
}

// SelectScenario resolves the content scenario for the observed source
// availability.
func SelectScenario(hasSubtitle, descQualifies, speechAvailable bool) Scenario {
	return scenarioTable[scenarioKey{hasSubtitle, descQualifies, speechAvailable}]
}

// DescriptionQualifies reports whether a description is long enough to
// stand in for a transcript. Counted in runes, not bytes; the threshold is
// calibrated for CJK text where one rune carries a full word.
func DescriptionQualifies(description string) bool {
	return utf8.RuneCountInString(description) >= minDescriptionRunes
}

// SpeechSource produces a transcript for a video, or nil when no transcript
// could be obtained.
type SpeechSource interface {
	Transcribe(ctx context.Context, video *VideoRecord) ([]string, error)
}

// CommentSource mines timeline comments for a video.
type CommentSource interface {
	MineTimeline(ctx context.Context, video *VideoRecord) ([]Comment, error)
}

// ContentSelector decides which sources feed the summary for a video and
// assembles them into a bundle.
type ContentSelector struct {
	speech        SpeechSource
	comments      CommentSource
	asrConfigured bool
	verbose       bool
}

// NewContentSelector creates a selector. speech may be nil when no ASR
// credentials are configured; it is then never consulted.
func NewContentSelector(speech SpeechSource, comments CommentSource, asrConfigured, verbose bool) *ContentSelector {
	return &ContentSelector{
		speech:        speech,
		comments:      comments,
		asrConfigured: asrConfigured && speech != nil,
		verbose:       verbose,
	}
}

// Assemble gathers content for the video according to the scenario table.
// The subtitle track is passed in by the caller; nil means absent. When the
// speech pipeline yields no transcript the selection degrades to the
// speech-unavailable scenario instead of failing. Returns
// ErrInsufficientContent when the final scenario produces nothing usable.
func (s *ContentSelector) Assemble(ctx context.Context, video *VideoRecord, subtitle SubtitleTrack) (*ContentBundle, error) {
	hasSubtitle := subtitle != nil
	descQualifies := DescriptionQualifies(video.Description)
	speechAvailable := !hasSubtitle && s.asrConfigured

	scenario := SelectScenario(hasSubtitle, descQualifies, speechAvailable)
	if s.verbose {
		fmt.Printf("Content scenario for %s: %s\n", video.BVID, scenario)
	}

	bundle := &ContentBundle{Scenario: scenario}

	if scenario == ScenarioSubtitleOnly {
		bundle.Subtitle = subtitle
		if len(subtitle) == 0 {
			return nil, fmt.Errorf("%s: %w", video.BVID, ErrInsufficientContent)
		}
		return bundle, nil
	}

	if speechAvailable {
		speech, err := s.speech.Transcribe(ctx, video)
		if err != nil {
			return nil, fmt.Errorf("speech fallback for %s: %w", video.BVID, err)
		}
		if speech == nil {
			// No transcript came out of the pipeline; reselect as if speech
			// were never an option.
			scenario = SelectScenario(false, descQualifies, false)
			if s.verbose {
				fmt.Printf("Speech fallback yielded nothing, degrading to %s\n", scenario)
			}
			bundle.Scenario = scenario
		} else {
			bundle.Speech = speech
		}
	}

	if descQualifies {
		bundle.Description = video.Description
	}

	if scenario == ScenarioSpeechAndComments || scenario == ScenarioCommentsOnly {
		comments, err := s.comments.MineTimeline(ctx, video)
		if err != nil {
			return nil, fmt.Errorf("mining comments for %s: %w", video.BVID, err)
		}
		bundle.Comments = comments
	}

	if bundle.Empty() {
		return nil, fmt.Errorf("%s: %w", video.BVID, ErrInsufficientContent)
	}
	return bundle, nil
}
