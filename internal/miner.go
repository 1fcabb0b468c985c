package internal

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"time"
)

const (
	// Timeline comments often appear minutes after upload; ten attempts two
	// minutes apart covers the usual posting window.
	defaultMineAttempts = 10
	defaultMineWait     = 120 * time.Second

	minePageCount = 3
)

// Both half-width and full-width colons separate a chapter label from its
// timestamp in the wild.
var (
	timelineLinePattern = regexp.MustCompile(`^\s*\S[^:：\n]*[:：]\s*\d{1,2}:\d{2}(?::\d{2})?\s*$`)
	introOutroPattern   = regexp.MustCompile(`(?i)\b(intro|outro)\s*[:：]\s*\d{1,2}:\d{2}`)
	minTimelineLines    = 3
)

// IsTimelineComment reports whether the text looks like a chapter timeline:
// either it carries explicit intro/outro markers with timestamps, or at
// least three of its lines follow the "label: H:MM" shape.
func IsTimelineComment(text string) bool {
	if introOutroPattern.MatchString(text) {
		return true
	}
	lines := strings.Split(text, "\n")
	matched := 0
	for _, line := range lines {
		if timelineLinePattern.MatchString(line) {
			matched++
			if matched >= minTimelineLines {
				return true
			}
		}
	}
	return false
}

// CommentFetcher is the slice of the API client the miner needs.
type CommentFetcher interface {
	GetComments(ctx context.Context, video *VideoRecord, page int, sort CommentSort, excludeHighlighted bool) (*CommentPage, error)
}

// CommentMiner polls a video's comment section for uploader-posted chapter
// timelines. Timelines are usually pinned or posted by the uploader shortly
// after upload, so the miner retries with a fixed wait between attempts.
type CommentMiner struct {
	fetcher     CommentFetcher
	maxAttempts int
	wait        time.Duration
	sleep       func(ctx context.Context, d time.Duration) error
	verbose     bool
}

// MinerOption customizes miner creation.
type MinerOption func(*CommentMiner)

// WithMineAttempts caps the number of polling attempts.
func WithMineAttempts(n int) MinerOption {
	return func(m *CommentMiner) { m.maxAttempts = n }
}

// WithMineWait sets the pause between attempts.
func WithMineWait(d time.Duration) MinerOption {
	return func(m *CommentMiner) { m.wait = d }
}

// WithSleeper replaces the wait implementation (tests).
func WithSleeper(sleep func(ctx context.Context, d time.Duration) error) MinerOption {
	return func(m *CommentMiner) { m.sleep = sleep }
}

// NewCommentMiner creates a miner over the given fetcher.
func NewCommentMiner(fetcher CommentFetcher, verbose bool, options ...MinerOption) *CommentMiner {
	m := &CommentMiner{
		fetcher:     fetcher,
		maxAttempts: defaultMineAttempts,
		wait:        defaultMineWait,
		sleep:       sleepContext,
		verbose:     verbose,
	}
	for _, option := range options {
		option(m)
	}
	return m
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// MineTimeline polls for timeline comments until it finds some or exhausts
// its attempts. An empty result with nil error means none appeared. Transient
// fetch failures count as failed attempts; only cancellation aborts the loop.
func (m *CommentMiner) MineTimeline(ctx context.Context, video *VideoRecord) ([]Comment, error) {
	for attempt := 1; attempt <= m.maxAttempts; attempt++ {
		found, err := m.collect(ctx, video)
		if err != nil {
			return nil, err
		}
		if len(found) > 0 {
			if m.verbose {
				fmt.Printf("Found %d timeline comment(s) for %s on attempt %d\n", len(found), video.BVID, attempt)
			}
			return found, nil
		}
		if attempt == m.maxAttempts {
			break
		}
		if m.verbose {
			fmt.Printf("No timeline comments for %s yet, waiting %s (attempt %d/%d)\n", video.BVID, m.wait, attempt, m.maxAttempts)
		}
		if err := m.sleep(ctx, m.wait); err != nil {
			return nil, err
		}
	}
	return nil, nil
}

// collect fetches the pinned comment plus the first few pages and filters
// them down to qualifying timelines. A comment qualifies when it is pinned
// or uploader-posted and its text passes the timeline heuristic. A failed
// page fetch ends the cycle but keeps what earlier pages yielded.
func (m *CommentMiner) collect(ctx context.Context, video *VideoRecord) ([]Comment, error) {
	seen := make(map[int64]bool)
	var found []Comment

	consider := func(c Comment) {
		if seen[c.ID] {
			return
		}
		seen[c.ID] = true
		qualified := c.OriginSlot == SlotPinned || c.IsAuthor
		if qualified && IsTimelineComment(c.Text) {
			found = append(found, c)
		}
	}

	for page := 1; page <= minePageCount; page++ {
		// Highlighted replies are excluded; the pinned slot still arrives
		// with page 1.
		result, err := m.fetcher.GetComments(ctx, video, page, SortByTime, true)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			if m.verbose {
				fmt.Printf("Comments page %d for %s failed: %v\n", page, video.BVID, err)
			}
			break
		}
		if page == 1 && result.Pinned != nil {
			consider(*result.Pinned)
		}
		for _, c := range result.Items {
			consider(c)
		}
		if len(result.Items) == 0 {
			break
		}
	}

	sort.Slice(found, func(i, j int) bool {
		return found[i].PostedAt.After(found[j].PostedAt)
	})
	return found, nil
}
