package model

import (
	"net/http"
	"time"
)

// CachedEntry is one stored response inside a cache generation.
type CachedEntry struct {
	Key         RequestKey `json:"key"`
	Payload     []byte     `json:"payload"`
	ContentType string     `json:"content_type"`
	StatusCode  int        `json:"status_code"`
	StoredAt    time.Time  `json:"stored_at"`
}

// EntryFromResponse builds a CachedEntry for key. storedAt is the time the
// producing request was issued, not the time it completed.
func EntryFromResponse(key RequestKey, resp *Response, storedAt time.Time) *CachedEntry {
	entry := &CachedEntry{
		Key:        key,
		Payload:    resp.Body,
		StatusCode: resp.StatusCode,
		StoredAt:   storedAt,
	}
	if resp.Header != nil {
		entry.ContentType = resp.Header.Get("Content-Type")
	}
	return entry
}

// Response rebuilds a Response from the entry.
func (e *CachedEntry) Response(source ResponseSource) *Response {
	header := make(http.Header)
	if e.ContentType != "" {
		header.Set("Content-Type", e.ContentType)
	}
	status := e.StatusCode
	if status == 0 {
		status = http.StatusOK
	}
	body := make([]byte, len(e.Payload))
	copy(body, e.Payload)
	return &Response{
		StatusCode: status,
		Header:     header,
		Body:       body,
		Source:     source,
	}
}
