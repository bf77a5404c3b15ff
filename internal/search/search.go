// Package search indexes submitted applications for the admin lookup. It
// tries Meilisearch first and falls back to in-memory matching over the
// loaded submission set, so the admin list keeps working without the search
// backend.
package search

import "time"

// SubmissionRecord is the indexed projection of a submitted application.
type SubmissionRecord struct {
	ID          string    `json:"id"`
	UserID      string    `json:"userId"`
	Name        string    `json:"name"`
	NationalID  string    `json:"nationalId"`
	Status      string    `json:"status"`
	SubmittedAt time.Time `json:"submittedAt"`
}

// Query is an admin search request.
type Query struct {
	Text  string
	Limit int
}
