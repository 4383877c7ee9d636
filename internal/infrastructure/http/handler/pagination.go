package handler

import (
	"encoding/base64"
	"net/http"
	"strconv"
)

// pageToken encodes the offset of the next page, or nil when there is none.
func pageToken(offset int, hasMore bool) *string {
	if !hasMore {
		return nil
	}
	token := base64.URLEncoding.EncodeToString([]byte(strconv.Itoa(offset)))
	return &token
}

// parsePageToken decodes a page token. Empty, malformed or negative tokens
// restart from the first page.
func parsePageToken(token string) int {
	if token == "" {
		return 0
	}
	decoded, err := base64.URLEncoding.DecodeString(token)
	if err != nil {
		return 0
	}
	offset, err := strconv.Atoi(string(decoded))
	if err != nil || offset < 0 {
		return 0
	}
	return offset
}

// page reads page_size and page_token. A missing or invalid page_size is 0;
// the services apply their configured default and cap.
func page(r *http.Request) (limit, offset int) {
	q := r.URL.Query()
	limit, _ = strconv.Atoi(q.Get("page_size"))
	if limit < 0 {
		limit = 0
	}
	return limit, parsePageToken(q.Get("page_token"))
}
