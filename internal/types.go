package internal

import (
	"strings"
	"time"
)

// VideoRecord is the per-video metadata returned by the upstream platform.
// It is fetched fresh for every processing run and never cached across runs.
type VideoRecord struct {
	BVID        string    `json:"bvid"`
	CID         int64     `json:"cid"`
	AID         int64     `json:"aid"`
	UploaderID  int64     `json:"uploader_id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	PublishedAt time.Time `json:"published_at"`
}

// VideoListing is one entry from an uploader's video list, ordered by
// publish time descending.
type VideoListing struct {
	BVID        string    `json:"bvid"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	PublishedAt time.Time `json:"published_at"`
}

// SubtitleSegment is one timed line of a subtitle track.
type SubtitleSegment struct {
	StartOffset float64 `json:"from"`
	EndOffset   float64 `json:"to"`
	Text        string  `json:"content"`
}

// SubtitleTrack is an ordered sequence of subtitle segments. A nil track
// means the video has no subtitles; an empty non-nil track is a subtitle
// list that exists but contains nothing.
type SubtitleTrack []SubtitleSegment

// Text joins all segment texts into a single space-separated string.
func (t SubtitleTrack) Text() string {
	parts := make([]string, 0, len(t))
	for _, seg := range t {
		if s := strings.TrimSpace(seg.Text); s != "" {
			parts = append(parts, s)
		}
	}
	return strings.Join(parts, " ")
}

// CommentSlot identifies where a comment was found.
type CommentSlot string

const (
	SlotPinned CommentSlot = "pinned"
	SlotPaged  CommentSlot = "paged"
)

// Comment is a single comment on a video. Uniqueness is by ID.
type Comment struct {
	ID         int64       `json:"id"`
	AuthorName string      `json:"author_name"`
	AuthorID   int64       `json:"author_id"`
	Text       string      `json:"text"`
	LikeCount  int64       `json:"like_count"`
	PostedAt   time.Time   `json:"posted_at"`
	IsAuthor   bool        `json:"is_author"`
	OriginSlot CommentSlot `json:"origin_slot"`
}

// CommentPage is the result of one comment-list fetch: the pinned slot (if
// any) plus the paged items.
type CommentPage struct {
	Pinned *Comment
	Items  []Comment
}

// Scenario is one of the five mutually exclusive content-acquisition
// strategies selected per video.
type Scenario int

const (
	ScenarioUnknown Scenario = iota
	ScenarioSubtitleOnly
	ScenarioDescriptionAndSpeech
	ScenarioDescriptionOnly
	ScenarioSpeechAndComments
	ScenarioCommentsOnly
)

// String returns the stable tag used in logs, reports, and the MCP surface.
func (s Scenario) String() string {
	switch s {
	case ScenarioSubtitleOnly:
		return "SUBTITLE_ONLY"
	case ScenarioDescriptionAndSpeech:
		return "DESCRIPTION_AND_SPEECH"
	case ScenarioDescriptionOnly:
		return "DESCRIPTION_ONLY"
	case ScenarioSpeechAndComments:
		return "SPEECH_AND_COMMENTS"
	case ScenarioCommentsOnly:
		return "COMMENTS_ONLY"
	default:
		return "UNKNOWN"
	}
}

// ContentBundle is the union of raw inputs selected for one video. Only the
// sources the scenario declares as inputs are populated.
type ContentBundle struct {
	Scenario    Scenario
	Subtitle    SubtitleTrack
	Description string
	// Speech holds per-channel transcript strings. A non-nil empty slice is
	// a valid "no speech detected" result, distinct from nil (not attempted
	// or failed).
	Speech   []string
	Comments []Comment
}

// CombinedText flattens the bundle into the raw text handed to the
// downstream summarizer, source sections separated by blank lines.
func (b *ContentBundle) CombinedText() string {
	var sb strings.Builder
	write := func(header, body string) {
		body = strings.TrimSpace(body)
		if body == "" {
			return
		}
		if sb.Len() > 0 {
			sb.WriteString("\n\n")
		}
		sb.WriteString(header)
		sb.WriteString("\n")
		sb.WriteString(body)
	}

	if len(b.Subtitle) > 0 {
		write("[subtitle]", b.Subtitle.Text())
	}
	if b.Description != "" {
		write("[description]", b.Description)
	}
	for _, channel := range b.Speech {
		write("[speech]", channel)
	}
	for _, c := range b.Comments {
		write("[comment by "+c.AuthorName+"]", c.Text)
	}
	return sb.String()
}

// Empty reports whether the bundle holds no usable text at all.
func (b *ContentBundle) Empty() bool {
	return b.CombinedText() == ""
}
