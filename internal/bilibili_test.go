package internal

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testNavResponse = `{
	"code": 0,
	"data": {
		"wbi_img": {
			"img_url": "https://i0.hdslb.com/bfs/wbi/7cd084941338484aae1ad9425b84077c.png",
			"sub_url": "https://i0.hdslb.com/bfs/wbi/4932caff0ff746eab6f01bf08b70ac45.png"
		}
	}
}`

func TestKeyFromURL(t *testing.T) {
	assert.Equal(t, testImgKey, keyFromURL("https://i0.hdslb.com/bfs/wbi/7cd084941338484aae1ad9425b84077c.png"))
	assert.Equal(t, "", keyFromURL("://bad"))
}

func TestListUserVideosSignsRequest(t *testing.T) {
	navHits := 0
	mux := http.NewServeMux()
	mux.HandleFunc("/x/web-interface/nav", func(w http.ResponseWriter, r *http.Request) {
		navHits++
		fmt.Fprint(w, testNavResponse)
	})
	mux.HandleFunc("/x/space/wbi/arc/search", func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		assert.Equal(t, "285286947", q.Get("mid"))
		assert.Equal(t, "pubdate", q.Get("order"))
		assert.NotEmpty(t, q.Get("wts"))
		assert.Len(t, q.Get("w_rid"), 32)
		assert.Contains(t, r.Header.Get("User-Agent"), "Mozilla")

		fmt.Fprint(w, `{"code":0,"data":{"list":{"vlist":[
			{"bvid":"BV1xx411c7mD","title":"AI早报 0828","description":"今日新闻","created":1756339200},
			{"bvid":"BV1yy411c7mE","title":"其他视频","description":"","created":1756252800}
		]}}}`)
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	client := NewBiliClient(map[string]string{"SESSDATA": "abc"}, false, WithBaseURL(server.URL))

	videos, err := client.ListUserVideos(context.Background(), 285286947, 20)
	require.NoError(t, err)
	require.Len(t, videos, 2)

	assert.Equal(t, "BV1xx411c7mD", videos[0].BVID)
	assert.Equal(t, "AI早报 0828", videos[0].Title)
	assert.Equal(t, time.Unix(1756339200, 0), videos[0].PublishedAt)
	assert.Equal(t, 1, navHits)

	// Second call within the TTL must not refetch keys
	_, err = client.ListUserVideos(context.Background(), 285286947, 20)
	require.NoError(t, err)
	assert.Equal(t, 1, navHits)
}

func TestKeysRefreshAfterTTL(t *testing.T) {
	navHits := 0
	mux := http.NewServeMux()
	mux.HandleFunc("/x/web-interface/nav", func(w http.ResponseWriter, r *http.Request) {
		navHits++
		fmt.Fprint(w, testNavResponse)
	})
	mux.HandleFunc("/x/space/wbi/arc/search", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"code":0,"data":{"list":{"vlist":[]}}}`)
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	now := time.Unix(1756339200, 0)
	client := NewBiliClient(nil, false, WithBaseURL(server.URL), WithClock(func() time.Time { return now }))

	_, err := client.ListUserVideos(context.Background(), 1, 10)
	require.NoError(t, err)
	assert.Equal(t, 1, navHits)

	now = now.Add(13 * time.Hour)
	_, err = client.ListUserVideos(context.Background(), 1, 10)
	require.NoError(t, err)
	assert.Equal(t, 2, navHits)
}

func TestGetVideoInfo(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/x/web-interface/view", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "BV1xx411c7mD", r.URL.Query().Get("bvid"))
		fmt.Fprint(w, `{"code":0,"data":{
			"bvid":"BV1xx411c7mD","cid":1234,"aid":5678,
			"title":"AI早报","desc":"今日三条新闻","pubdate":1756339200,
			"owner":{"mid":42}
		}}`)
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	client := NewBiliClient(nil, false, WithBaseURL(server.URL))

	video, err := client.GetVideoInfo(context.Background(), "BV1xx411c7mD")
	require.NoError(t, err)
	assert.Equal(t, int64(1234), video.CID)
	assert.Equal(t, int64(5678), video.AID)
	assert.Equal(t, int64(42), video.UploaderID)
	assert.Equal(t, "今日三条新闻", video.Description)
}

func TestRemoteAPIError(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/x/web-interface/view", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"code":-404,"message":"啥都木有"}`)
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	client := NewBiliClient(nil, false, WithBaseURL(server.URL))

	_, err := client.GetVideoInfo(context.Background(), "BV1xx411c7mD")
	require.Error(t, err)

	var apiErr *RemoteAPIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, -404, apiErr.Code)
	assert.Equal(t, "啥都木有", apiErr.Message)
}

func TestTransportError(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	server.Close() // refuse connections

	client := NewBiliClient(nil, false, WithBaseURL(server.URL))

	_, err := client.GetVideoInfo(context.Background(), "BV1xx411c7mD")
	require.Error(t, err)

	var transErr *TransportError
	assert.True(t, errors.As(err, &transErr))
}

func TestGetSubtitle(t *testing.T) {
	var server *httptest.Server
	mux := http.NewServeMux()
	mux.HandleFunc("/x/web-interface/nav", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, testNavResponse)
	})
	mux.HandleFunc("/x/player/wbi/v2", func(w http.ResponseWriter, r *http.Request) {
		resp := fmt.Sprintf(`{"code":0,"data":{"subtitle":{"subtitles":[{"subtitle_url":"%s/subtitle.json"}]}}}`, server.URL)
		fmt.Fprint(w, resp)
	})
	mux.HandleFunc("/subtitle.json", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"body":[{"from":0,"to":2.5,"content":"大家好"},{"from":2.5,"to":5,"content":"今天讲三件事"}]}`)
	})
	server = httptest.NewServer(mux)
	defer server.Close()

	client := NewBiliClient(nil, false, WithBaseURL(server.URL))

	track, err := client.GetSubtitle(context.Background(), testVideo(""))
	require.NoError(t, err)
	require.NotNil(t, track)
	assert.Equal(t, "大家好 今天讲三件事", track.Text())
}

func TestGetSubtitleAbsent(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/x/web-interface/nav", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, testNavResponse)
	})
	mux.HandleFunc("/x/player/wbi/v2", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"code":0,"data":{"subtitle":{"subtitles":[]}}}`)
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	client := NewBiliClient(nil, false, WithBaseURL(server.URL))

	track, err := client.GetSubtitle(context.Background(), testVideo(""))
	require.NoError(t, err)
	assert.Nil(t, track)
}

func TestGetComments(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/x/v2/reply", func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		assert.Equal(t, "1", q.Get("type"))
		assert.Equal(t, "2", q.Get("oid"))
		assert.Equal(t, "1", q.Get("pn"))
		assert.Equal(t, "0", q.Get("nohot"))

		payload := map[string]any{
			"code": 0,
			"data": map[string]any{
				"upper": map[string]any{
					"top": map[string]any{
						"rpid": 100, "mid": 42, "like": 9, "ctime": 1756339300,
						"content": map[string]any{"message": "Intro: 0:00\nNews: 1:00\nOutro: 8:00"},
						"member":  map[string]any{"uname": "up主", "mid": 42},
					},
				},
				"replies": []map[string]any{
					{
						"rpid": 101, "mid": 7, "like": 3, "ctime": 1756339400,
						"content": map[string]any{"message": "讲得好"},
						"member":  map[string]any{"uname": "viewer", "mid": 7},
					},
				},
			},
		}
		_ = json.NewEncoder(w).Encode(payload)
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	client := NewBiliClient(nil, false, WithBaseURL(server.URL))

	page, err := client.GetComments(context.Background(), testVideo(""), 1, SortByTime, false)
	require.NoError(t, err)

	require.NotNil(t, page.Pinned)
	assert.Equal(t, SlotPinned, page.Pinned.OriginSlot)
	assert.True(t, page.Pinned.IsAuthor, "pinned uploader comment should be marked as author")

	require.Len(t, page.Items, 1)
	assert.Equal(t, "viewer", page.Items[0].AuthorName)
	assert.False(t, page.Items[0].IsAuthor)
	assert.Equal(t, SlotPaged, page.Items[0].OriginSlot)
}

func TestGetCommentsPinnedFallsBackToTopReplies(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/x/v2/reply", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"code":0,"data":{
			"top_replies":[{"rpid":200,"mid":9,"like":1,"ctime":1756339500,
				"content":{"message":"热评"},"member":{"uname":"someone","mid":9}}],
			"replies":[]
		}}`)
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	client := NewBiliClient(nil, false, WithBaseURL(server.URL))

	page, err := client.GetComments(context.Background(), testVideo(""), 1, SortByLikes, false)
	require.NoError(t, err)
	require.NotNil(t, page.Pinned)
	assert.Equal(t, int64(200), page.Pinned.ID)
	assert.False(t, page.Pinned.IsAuthor)
}

func TestGetCommentsOwnerAttrMarksAuthor(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/x/v2/reply", func(w http.ResponseWriter, r *http.Request) {
		payload := map[string]any{
			"code": 0,
			"data": map[string]any{
				"replies": []map[string]any{
					// Owner-flagged reply without a mid in the payload
					{
						"rpid": 300, "attr": 2, "like": 1, "ctime": 1756339500,
						"content": map[string]any{"message": "Intro: 0:00\nNews: 1:00\nOutro: 8:00"},
						"member":  map[string]any{"uname": "up主"},
					},
					{
						"rpid": 301, "mid": 7, "like": 2, "ctime": 1756339600,
						"content": map[string]any{"message": "讲得好"},
						"member":  map[string]any{"uname": "viewer", "mid": 7},
					},
				},
			},
		}
		_ = json.NewEncoder(w).Encode(payload)
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	client := NewBiliClient(nil, false, WithBaseURL(server.URL))

	page, err := client.GetComments(context.Background(), testVideo(""), 1, SortByTime, true)
	require.NoError(t, err)
	require.Len(t, page.Items, 2)
	assert.True(t, page.Items[0].IsAuthor, "owner attr should mark the reply as the uploader's")
	assert.False(t, page.Items[1].IsAuthor)
}
