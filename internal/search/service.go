package search

import (
	"log"
	"strings"
)

// Service is the facade the admin listing talks to. meili may be nil when no
// search backend is configured.
type Service struct {
	meili *Meili
}

func NewService(meili *Meili) *Service {
	return &Service{meili: meili}
}

// MatchIDs resolves the query to a set of submission IDs. With a healthy
// backend the index answers; otherwise the loaded records are matched
// locally with the same rules the index is configured for.
func (s *Service) MatchIDs(q Query, records []SubmissionRecord) map[string]bool {
	if s.meili != nil && s.meili.Healthy() {
		ids, err := s.meili.MatchIDs(q)
		if err == nil {
			return toSet(ids)
		}
		log.Printf("search: meilisearch error, matching locally: %v", err)
	}
	return matchLocal(q.Text, records)
}

// matchLocal mirrors the index configuration: the name matches
// case-insensitively, the national ID as a literal substring.
func matchLocal(text string, records []SubmissionRecord) map[string]bool {
	text = strings.TrimSpace(text)
	lowered := strings.ToLower(text)

	out := make(map[string]bool, len(records))
	for _, rec := range records {
		if text == "" ||
			strings.Contains(strings.ToLower(rec.Name), lowered) ||
			strings.Contains(rec.NationalID, text) {
			out[rec.ID] = true
		}
	}
	return out
}

func toSet(ids []string) map[string]bool {
	out := make(map[string]bool, len(ids))
	for _, id := range ids {
		out[id] = true
	}
	return out
}

// IndexSubmission pushes one submission to the index, fire-and-forget.
func (s *Service) IndexSubmission(rec SubmissionRecord) {
	if s.meili == nil || !s.meili.Healthy() {
		return
	}
	go func() {
		if err := s.meili.IndexSubmission(rec); err != nil {
			log.Printf("search: index submission %s: %v", rec.ID, err)
		}
	}()
}

// ReindexAll pushes the full submission set to the index. Called during
// bootstrap when the backend is healthy.
func (s *Service) ReindexAll(recs []SubmissionRecord) {
	if s.meili == nil || !s.meili.Healthy() {
		return
	}
	if err := s.meili.IndexSubmissions(recs); err != nil {
		log.Printf("search: reindex submissions: %v", err)
	}
}
