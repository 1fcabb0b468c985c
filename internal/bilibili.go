package internal

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

const (
	defaultAPIBase   = "https://api.bilibili.com"
	browserUserAgent = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"
	browserReferer   = "https://www.bilibili.com"

	// wbiKeyTTL bounds how long a fetched key pair is trusted. The platform
	// rotates keys roughly daily; half a day keeps long-running watch loops
	// signing with fresh keys without refreshing on every request.
	wbiKeyTTL = 12 * time.Hour

	commentPageSize = 30
)

// CommentSort selects the upstream comment ordering.
type CommentSort int

const (
	SortByTime CommentSort = iota
	SortByLikes
	SortByReplies
)

// BiliClient issues WBI-signed requests against the platform API. The
// platform rejects unsigned or non-browser-shaped traffic, so every request
// carries browser headers and the session cookies, and WBI endpoints carry
// the w_rid signature.
type BiliClient struct {
	base    string
	http    *http.Client
	cookies map[string]string
	limiter *rate.Limiter
	now     func() time.Time
	verbose bool

	mu   sync.Mutex
	keys wbiKeys
	ttl  time.Duration
}

// BiliClientOption customizes client creation.
type BiliClientOption func(*BiliClient)

// WithBaseURL points the client at a different API host (tests).
func WithBaseURL(base string) BiliClientOption {
	return func(c *BiliClient) { c.base = strings.TrimSuffix(base, "/") }
}

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) BiliClientOption {
	return func(c *BiliClient) { c.http = hc }
}

// WithClock replaces the clock used for wts and key staleness (tests).
func WithClock(now func() time.Time) BiliClientOption {
	return func(c *BiliClient) { c.now = now }
}

// NewBiliClient creates a signed API client using the given session cookies.
func NewBiliClient(cookies map[string]string, verbose bool, options ...BiliClientOption) *BiliClient {
	c := &BiliClient{
		base:    defaultAPIBase,
		http:    &http.Client{Timeout: 30 * time.Second},
		cookies: cookies,
		limiter: rate.NewLimiter(rate.Limit(2), 4),
		now:     time.Now,
		verbose: verbose,
		ttl:     wbiKeyTTL,
	}
	for _, option := range options {
		option(c)
	}
	return c
}

// apiEnvelope is the common wrapper on every platform response.
type apiEnvelope struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

// get performs one rate-limited GET and decodes the standard envelope.
// Non-zero envelope codes map to RemoteAPIError; connection and decode
// failures map to TransportError.
func (c *BiliClient) get(ctx context.Context, rawURL string) (json.RawMessage, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, &TransportError{Op: "rate wait", Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("User-Agent", browserUserAgent)
	req.Header.Set("Referer", browserReferer)
	for k, v := range c.cookies {
		req.AddCookie(&http.Cookie{Name: k, Value: v})
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, &TransportError{Op: "GET " + req.URL.Path, Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &TransportError{Op: "read " + req.URL.Path, Err: err}
	}
	if resp.StatusCode != http.StatusOK {
		return nil, &RemoteAPIError{Code: resp.StatusCode, Message: http.StatusText(resp.StatusCode)}
	}

	var env apiEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, fmt.Errorf("decoding response from %s: %w", req.URL.Path, err)
	}
	if env.Code != 0 {
		return nil, &RemoteAPIError{Code: env.Code, Message: env.Message}
	}
	return env.Data, nil
}

// navData is the slice of the nav endpoint payload carrying the WBI keys.
type navData struct {
	WbiImg struct {
		ImgURL string `json:"img_url"`
		SubURL string `json:"sub_url"`
	} `json:"wbi_img"`
}

// refreshKeysIfStale fetches a fresh WBI key pair when the cached one has
// aged past the TTL. Keys are deliberately NOT invalidated on signature
// rejection; the TTL alone bounds their lifetime.
func (c *BiliClient) refreshKeysIfStale(ctx context.Context) (wbiKeys, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.keys.stale(c.now(), c.ttl) {
		return c.keys, nil
	}

	data, err := c.get(ctx, c.base+"/x/web-interface/nav")
	if err != nil {
		return wbiKeys{}, fmt.Errorf("fetching signing keys: %w", err)
	}
	var nav navData
	if err := json.Unmarshal(data, &nav); err != nil {
		return wbiKeys{}, fmt.Errorf("decoding signing keys: %w", err)
	}

	imgKey := keyFromURL(nav.WbiImg.ImgURL)
	subKey := keyFromURL(nav.WbiImg.SubURL)
	if imgKey == "" || subKey == "" {
		return wbiKeys{}, fmt.Errorf("signing key URLs missing from nav response")
	}

	c.keys = wbiKeys{ImgKey: imgKey, SubKey: subKey, FetchedAt: c.now()}
	if c.verbose {
		fmt.Printf("Refreshed WBI keys (fetched at %s)\n", c.keys.FetchedAt.Format(time.RFC3339))
	}
	return c.keys, nil
}

// keyFromURL extracts the key from a wbi image URL: the file name of the
// last path segment without its extension.
func keyFromURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return ""
	}
	name := path.Base(u.Path)
	return strings.TrimSuffix(name, path.Ext(name))
}

// signedURL builds a fully signed request URL for a WBI endpoint.
func (c *BiliClient) signedURL(ctx context.Context, endpoint string, params url.Values) (string, error) {
	keys, err := c.refreshKeysIfStale(ctx)
	if err != nil {
		return "", err
	}
	signed := signParams(params, keys.ImgKey, keys.SubKey, c.now())
	return c.base + endpoint + "?" + signed.Encode(), nil
}

// ListUserVideos returns the uploader's most recent videos, publish time
// descending.
func (c *BiliClient) ListUserVideos(ctx context.Context, uid int64, count int) ([]VideoListing, error) {
	params := url.Values{}
	params.Set("mid", strconv.FormatInt(uid, 10))
	params.Set("ps", strconv.Itoa(count))
	params.Set("pn", "1")
	params.Set("order", "pubdate")

	reqURL, err := c.signedURL(ctx, "/x/space/wbi/arc/search", params)
	if err != nil {
		return nil, err
	}
	data, err := c.get(ctx, reqURL)
	if err != nil {
		return nil, err
	}

	var payload struct {
		List struct {
			VList []struct {
				BVID        string `json:"bvid"`
				Title       string `json:"title"`
				Description string `json:"description"`
				Created     int64  `json:"created"`
			} `json:"vlist"`
		} `json:"list"`
	}
	if err := json.Unmarshal(data, &payload); err != nil {
		return nil, fmt.Errorf("decoding video list: %w", err)
	}

	videos := make([]VideoListing, 0, len(payload.List.VList))
	for _, v := range payload.List.VList {
		videos = append(videos, VideoListing{
			BVID:        v.BVID,
			Title:       v.Title,
			Description: v.Description,
			PublishedAt: time.Unix(v.Created, 0),
		})
	}
	return videos, nil
}

// GetVideoInfo fetches the full record for one video.
func (c *BiliClient) GetVideoInfo(ctx context.Context, bvid string) (*VideoRecord, error) {
	data, err := c.get(ctx, c.base+"/x/web-interface/view?bvid="+url.QueryEscape(bvid))
	if err != nil {
		return nil, err
	}

	var payload struct {
		BVID    string `json:"bvid"`
		CID     int64  `json:"cid"`
		AID     int64  `json:"aid"`
		Title   string `json:"title"`
		Desc    string `json:"desc"`
		Pubdate int64  `json:"pubdate"`
		Owner   struct {
			Mid int64 `json:"mid"`
		} `json:"owner"`
	}
	if err := json.Unmarshal(data, &payload); err != nil {
		return nil, fmt.Errorf("decoding video info: %w", err)
	}

	return &VideoRecord{
		BVID:        payload.BVID,
		CID:         payload.CID,
		AID:         payload.AID,
		UploaderID:  payload.Owner.Mid,
		Title:       payload.Title,
		Description: payload.Desc,
		PublishedAt: time.Unix(payload.Pubdate, 0),
	}, nil
}

// GetSubtitle fetches the first subtitle track for a video. A nil track
// with nil error means the video has no subtitles; that is not a failure.
func (c *BiliClient) GetSubtitle(ctx context.Context, video *VideoRecord) (SubtitleTrack, error) {
	params := url.Values{}
	params.Set("bvid", video.BVID)
	params.Set("cid", strconv.FormatInt(video.CID, 10))

	reqURL, err := c.signedURL(ctx, "/x/player/wbi/v2", params)
	if err != nil {
		return nil, err
	}
	data, err := c.get(ctx, reqURL)
	if err != nil {
		return nil, err
	}

	var payload struct {
		Subtitle struct {
			Subtitles []struct {
				SubtitleURL string `json:"subtitle_url"`
			} `json:"subtitles"`
		} `json:"subtitle"`
	}
	if err := json.Unmarshal(data, &payload); err != nil {
		return nil, fmt.Errorf("decoding subtitle list: %w", err)
	}
	if len(payload.Subtitle.Subtitles) == 0 {
		return nil, nil
	}

	subURL := payload.Subtitle.Subtitles[0].SubtitleURL
	if strings.HasPrefix(subURL, "//") {
		subURL = "https:" + subURL
	}
	return c.fetchSubtitleBody(ctx, subURL)
}

// fetchSubtitleBody downloads and decodes the subtitle content document.
func (c *BiliClient) fetchSubtitleBody(ctx context.Context, subURL string) (SubtitleTrack, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, subURL, nil)
	if err != nil {
		return nil, fmt.Errorf("building subtitle request: %w", err)
	}
	req.Header.Set("User-Agent", browserUserAgent)
	req.Header.Set("Referer", browserReferer)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, &TransportError{Op: "fetch subtitle", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &RemoteAPIError{Code: resp.StatusCode, Message: "subtitle fetch failed"}
	}

	var payload struct {
		Body []SubtitleSegment `json:"body"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("decoding subtitle body: %w", err)
	}
	// Distinguish "present but empty" from absent.
	if payload.Body == nil {
		payload.Body = SubtitleTrack{}
	}
	return payload.Body, nil
}

// replyAttrOwner marks a reply posted by the video's uploader.
const replyAttrOwner = 2

// rawComment is the upstream reply shape we care about.
type rawComment struct {
	Rpid    int64 `json:"rpid"`
	Mid     int64 `json:"mid"`
	Attr    int   `json:"attr"`
	Like    int64 `json:"like"`
	Ctime   int64 `json:"ctime"`
	Content struct {
		Message string `json:"message"`
	} `json:"content"`
	Member struct {
		Uname string `json:"uname"`
		Mid   int64  `json:"mid"`
	} `json:"member"`
}

func (r *rawComment) toComment(uploaderID int64, slot CommentSlot) Comment {
	authorID := r.Mid
	if authorID == 0 {
		authorID = r.Member.Mid
	}
	// The owner attr covers replies whose payload omits the mid.
	isAuthor := r.Attr == replyAttrOwner || (authorID != 0 && authorID == uploaderID)
	return Comment{
		ID:         r.Rpid,
		AuthorName: r.Member.Uname,
		AuthorID:   authorID,
		Text:       r.Content.Message,
		LikeCount:  r.Like,
		PostedAt:   time.Unix(r.Ctime, 0),
		IsAuthor:   isAuthor,
		OriginSlot: slot,
	}
}

// GetComments fetches one page of comments for a video. The pinned slot is
// taken from the uploader-pinned comment when present, falling back to the
// first highlighted reply.
func (c *BiliClient) GetComments(ctx context.Context, video *VideoRecord, page int, sort CommentSort, excludeHighlighted bool) (*CommentPage, error) {
	params := url.Values{}
	params.Set("type", "1")
	params.Set("oid", strconv.FormatInt(video.AID, 10))
	params.Set("sort", strconv.Itoa(int(sort)))
	params.Set("ps", strconv.Itoa(commentPageSize))
	params.Set("pn", strconv.Itoa(page))
	if excludeHighlighted {
		params.Set("nohot", "1")
	} else {
		params.Set("nohot", "0")
	}

	data, err := c.get(ctx, c.base+"/x/v2/reply?"+params.Encode())
	if err != nil {
		return nil, err
	}

	var payload struct {
		Upper struct {
			Top *rawComment `json:"top"`
		} `json:"upper"`
		TopReplies []rawComment `json:"top_replies"`
		Replies    []rawComment `json:"replies"`
	}
	if err := json.Unmarshal(data, &payload); err != nil {
		return nil, fmt.Errorf("decoding comments: %w", err)
	}

	result := &CommentPage{}
	if payload.Upper.Top != nil {
		pinned := payload.Upper.Top.toComment(video.UploaderID, SlotPinned)
		result.Pinned = &pinned
	} else if len(payload.TopReplies) > 0 {
		pinned := payload.TopReplies[0].toComment(video.UploaderID, SlotPinned)
		result.Pinned = &pinned
	}
	for i := range payload.Replies {
		result.Items = append(result.Items, payload.Replies[i].toComment(video.UploaderID, SlotPaged))
	}
	return result, nil
}
