package model

import "time"

// RawRecord is one history row as read from the data store.
type RawRecord struct {
	ID      string  `db:"history_id" json:"id"`
	URL     string  `db:"url" json:"url"`
	Type    string  `db:"type" json:"type"`
	Action  string  `db:"action" json:"action"`
	Status  string  `db:"status" json:"status"`
	AddedAt float64 `db:"added_at" json:"added_at"`
	Blob    *string `db:"response" json:"-"` // nil when the response column is NULL
}

// HasBlob reports whether the record carries a non-empty response blob.
func (r RawRecord) HasBlob() bool {
	return r.Blob != nil && *r.Blob != ""
}

// NormalizedRecord is one decoded history row. Response is Null when the
// blob was missing, empty or undecodable.
type NormalizedRecord struct {
	ID       string  `json:"id"`
	URL      string  `json:"url"`
	Type     string  `json:"type,omitempty"`
	Action   string  `json:"action,omitempty"`
	AddedAt  float64 `json:"added_at,omitempty"`
	Response Value   `json:"response"`
}

// AggregatedRecord holds the summed response fields of every record that
// shares a URL.
type AggregatedRecord struct {
	URL      string `json:"url"`
	Records  int    `json:"records"`
	Response Value  `json:"response"`
}

// HistoryQuery selects history rows for a report.
type HistoryQuery struct {
	URL    string    `json:"url,omitempty" validate:"omitempty,max=2048"`
	Type   string    `json:"type,omitempty" validate:"omitempty,max=64"`
	Action string    `json:"action,omitempty" validate:"omitempty,max=64"`
	Status string    `json:"status,omitempty" validate:"omitempty,max=32"`
	From   time.Time `json:"from,omitempty"`
	To     time.Time `json:"to,omitempty"`
	Limit  int       `json:"limit"` // 0 means no limit
}
