package review

import (
	"fmt"
	"testing"

	"ciportal/api/internal/store"
)

func app(id, name, nationalID, status string) store.Application {
	return store.Application{
		ID:     id,
		Status: status,
		Profile: store.Profile{
			Name:       name,
			NationalID: nationalID,
		},
	}
}

func TestFilter(t *testing.T) {
	apps := []store.Application{
		app("a1", "Asha Kumar", "123456789012", store.StatusPending),
		app("a2", "Ravi Sharma", "999912345678", store.StatusApproved),
		app("a3", "asha devi", "555500001111", store.StatusRejected),
	}

	cases := []struct {
		name    string
		search  string
		status  string
		wantIDs []string
	}{
		{name: "no filters", wantIDs: []string{"a1", "a2", "a3"}},
		{name: "status all", status: "all", wantIDs: []string{"a1", "a2", "a3"}},
		{name: "name case-insensitive", search: "ASHA", wantIDs: []string{"a1", "a3"}},
		{name: "national id substring", search: "1234", wantIDs: []string{"a1", "a2"}},
		{name: "status only", status: store.StatusApproved, wantIDs: []string{"a2"}},
		{name: "search and status combine", search: "asha", status: store.StatusRejected, wantIDs: []string{"a3"}},
		{name: "no match", search: "zzz", wantIDs: []string{}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := Filter(apps, tc.search, tc.status)
			if len(got) != len(tc.wantIDs) {
				t.Fatalf("got %d results, want %d", len(got), len(tc.wantIDs))
			}
			for i, want := range tc.wantIDs {
				if got[i].ID != want {
					t.Errorf("result[%d] = %q, want %q", i, got[i].ID, want)
				}
			}
		})
	}
}

func TestSortPendingFirstIsStable(t *testing.T) {
	apps := []store.Application{
		app("a1", "A", "1", store.StatusApproved),
		app("a2", "B", "2", store.StatusPending),
		app("a3", "C", "3", store.StatusRejected),
		app("a4", "D", "4", store.StatusPending),
	}

	got := SortPendingFirst(apps)

	wantOrder := []string{"a2", "a4", "a1", "a3"}
	for i, want := range wantOrder {
		if got[i].ID != want {
			t.Fatalf("order[%d] = %q, want %q", i, got[i].ID, want)
		}
	}

	// input untouched
	if apps[0].ID != "a1" {
		t.Fatal("input slice was mutated")
	}
}

func TestPaginate(t *testing.T) {
	var apps []store.Application
	for i := 0; i < 23; i++ {
		apps = append(apps, app(fmt.Sprintf("a%02d", i), "N", "1", store.StatusPending))
	}

	cases := []struct {
		name      string
		page      int
		wantPage  int
		wantCount int
		wantFirst string
	}{
		{name: "first page", page: 1, wantPage: 1, wantCount: 10, wantFirst: "a00"},
		{name: "middle page", page: 2, wantPage: 2, wantCount: 10, wantFirst: "a10"},
		{name: "last partial page", page: 3, wantPage: 3, wantCount: 3, wantFirst: "a20"},
		{name: "clamp low", page: 0, wantPage: 1, wantCount: 10, wantFirst: "a00"},
		{name: "clamp high", page: 99, wantPage: 3, wantCount: 3, wantFirst: "a20"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := Paginate(apps, tc.page)
			if got.Page != tc.wantPage {
				t.Fatalf("page = %d, want %d", got.Page, tc.wantPage)
			}
			if got.TotalPages != 3 || got.TotalItems != 23 {
				t.Fatalf("totals = %d pages / %d items", got.TotalPages, got.TotalItems)
			}
			if len(got.Items) != tc.wantCount {
				t.Fatalf("items = %d, want %d", len(got.Items), tc.wantCount)
			}
			if got.Items[0].ID != tc.wantFirst {
				t.Fatalf("first item = %q, want %q", got.Items[0].ID, tc.wantFirst)
			}
		})
	}
}

func TestPaginateEmpty(t *testing.T) {
	got := Paginate(nil, 1)
	if got.TotalPages != 1 || got.Page != 1 || len(got.Items) != 0 {
		t.Fatalf("empty list: %+v", got)
	}
}
