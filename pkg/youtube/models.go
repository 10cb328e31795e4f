package youtube

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// videoListResponse is the body of GET /videos.
type videoListResponse struct {
	Items []videoItem `json:"items"`
}

type videoItem struct {
	ID         string          `json:"id"`
	Snippet    videoSnippet    `json:"snippet"`
	Statistics videoStatistics `json:"statistics"`
}

type videoSnippet struct {
	Title       string    `json:"title"`
	Description string    `json:"description"`
	PublishedAt time.Time `json:"publishedAt"`
}

// videoStatistics carries counts. The API encodes them as decimal strings
// and omits likeCount or commentCount when they are hidden.
type videoStatistics struct {
	ViewCount    count `json:"viewCount"`
	LikeCount    count `json:"likeCount"`
	CommentCount count `json:"commentCount"`
}

// count decodes a JSON number or numeric string.
type count int64

func (c *count) UnmarshalJSON(data []byte) error {
	s := strings.Trim(string(data), `"`)
	if s == "" || s == "null" {
		*c = 0
		return nil
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return fmt.Errorf("invalid count %s", data)
	}
	*c = count(n)
	return nil
}

// apiError is the standard Google API error envelope.
type apiError struct {
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Errors  []struct {
			Reason string `json:"reason"`
		} `json:"errors"`
	} `json:"error"`
}

func (e *apiError) reason() string {
	if len(e.Error.Errors) == 0 {
		return ""
	}
	return e.Error.Errors[0].Reason
}
