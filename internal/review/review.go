// Package review implements the admin triage view over submitted
// applications: filtering, ordering, and paging. All functions are pure so
// the same query always yields the same page.
package review

import (
	"sort"
	"strings"

	"ciportal/api/internal/store"
)

// PageSize is the fixed number of rows per admin page.
const PageSize = 10

// Page is one slice of the filtered submission list.
type Page struct {
	Items      []store.Application `json:"items"`
	Page       int                 `json:"page"`
	TotalPages int                 `json:"totalPages"`
	TotalItems int                 `json:"totalItems"`
}

// Filter keeps submissions matching both the search term and the status
// filter. The search term matches the candidate name case-insensitively or
// the national ID as a literal substring. Empty filters match everything.
func Filter(apps []store.Application, search, status string) []store.Application {
	search = strings.TrimSpace(search)
	lowered := strings.ToLower(search)

	out := make([]store.Application, 0, len(apps))
	for _, app := range apps {
		if status != "" && status != "all" && app.Status != status {
			continue
		}
		if search != "" {
			nameHit := strings.Contains(strings.ToLower(app.Profile.Name), lowered)
			idHit := strings.Contains(app.Profile.NationalID, search)
			if !nameHit && !idHit {
				continue
			}
		}
		out = append(out, app)
	}
	return out
}

// SortPendingFirst orders undecided submissions before decided ones. The
// sort is stable, so within each group the caller's order (oldest submission
// first) is preserved.
func SortPendingFirst(apps []store.Application) []store.Application {
	out := make([]store.Application, len(apps))
	copy(out, apps)
	sort.SliceStable(out, func(i, j int) bool {
		return rank(out[i].Status) < rank(out[j].Status)
	})
	return out
}

func rank(status string) int {
	if status == store.StatusPending {
		return 0
	}
	return 1
}

// Paginate slices the list into 1-based pages of PageSize rows. Out-of-range
// page numbers clamp to the nearest valid page; an empty list yields a single
// empty page.
func Paginate(apps []store.Application, page int) Page {
	totalPages := (len(apps) + PageSize - 1) / PageSize
	if totalPages == 0 {
		totalPages = 1
	}
	if page < 1 {
		page = 1
	}
	if page > totalPages {
		page = totalPages
	}

	start := (page - 1) * PageSize
	end := start + PageSize
	if start > len(apps) {
		start = len(apps)
	}
	if end > len(apps) {
		end = len(apps)
	}

	return Page{
		Items:      apps[start:end],
		Page:       page,
		TotalPages: totalPages,
		TotalItems: len(apps),
	}
}
