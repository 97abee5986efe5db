package testsupport

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"slices"
	"strconv"
	"strings"
	"sync"
	"testing"
)

// FakeList is a list served by FakeDiscogs.
type FakeList struct {
	ID          int64
	Name        string
	DateChanged string
	Items       []map[string]any
}

// FakeDiscogs is an in-process Discogs API for one user.
type FakeDiscogs struct {
	Server   *httptest.Server
	Username string
	Token    string

	mu            sync.Mutex
	perPage       int
	profile       map[string]any
	collection    []map[string]any
	folders       []map[string]any
	fields        []map[string]any
	wants         []map[string]any
	contributions []map[string]any
	lists         []FakeList
	failures      map[string]int
	requests      []string
}

// NewFakeDiscogs starts a server seeded with a small, realistic account.
func NewFakeDiscogs(t testing.TB, username, token string) *FakeDiscogs {
	t.Helper()
	fake := &FakeDiscogs{
		Username: username,
		Token:    token,
		perPage:  2,
		failures: make(map[string]int),
	}
	fake.seed()
	fake.Server = httptest.NewServer(http.HandlerFunc(fake.serve))
	t.Cleanup(fake.Server.Close)
	return fake
}

// URL returns the base URL of the server.
func (f *FakeDiscogs) URL() string {
	return f.Server.URL
}

// SetPerPage changes the page size of paginated endpoints.
func (f *FakeDiscogs) SetPerPage(n int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.perPage = n
}

// SetProfileField overrides one field of the profile body.
func (f *FakeDiscogs) SetProfileField(key string, value any) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.profile[key] = value
}

// EditCollectionItem applies fn to the collection item with the given release id.
func (f *FakeDiscogs) EditCollectionItem(id int64, fn func(item map[string]any)) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, item := range f.collection {
		if item["id"] == id {
			fn(item)
		}
	}
}

// SetLists replaces the user's lists.
func (f *FakeDiscogs) SetLists(lists ...FakeList) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lists = slices.Clone(lists)
}

// FailPath makes every request to path answer with status and an HTML body.
func (f *FakeDiscogs) FailPath(path string, status int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failures[path] = status
}

// Requests returns the request URIs received so far.
func (f *FakeDiscogs) Requests() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return slices.Clone(f.requests)
}

// ResetRequests clears the request log.
func (f *FakeDiscogs) ResetRequests() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = nil
}

func (f *FakeDiscogs) seed() {
	f.profile = map[string]any{
		"id":             8,
		"username":       f.Username,
		"name":           "Dee Digger",
		"location":       "Leeds, UK",
		"num_collection": 3,
		"num_wantlist":   1,
		"num_lists":      2,
		"uri":            "https://www.discogs.com/user/" + f.Username,
	}
	f.folders = []map[string]any{
		{"id": 0, "name": "All", "count": 3},
		{"id": 1, "name": "Uncategorized", "count": 1},
		{"id": 7, "name": "Jazz", "count": 2},
	}
	f.fields = []map[string]any{
		{"id": 1, "name": "Media Condition", "type": "dropdown"},
		{"id": 2, "name": "Sleeve Condition", "type": "dropdown"},
		{"id": 3, "name": "Notes", "type": "textarea"},
	}
	f.collection = []map[string]any{
		release(1001, 7, "Kind of Blue", 1959, "Miles Davis", "Columbia", "CL 1355", []map[string]any{
			{"field_id": 1, "value": "Near Mint (NM or M-)"},
			{"field_id": 3, "value": `first press, "6-eye" label`},
		}),
		release(1002, 7, "A Love Supreme", 1965, "John Coltrane", "Impulse!", "A-77", nil),
		release(1003, 1, "Simon & Garfunkel's Greatest Hits", 1972, "Simon & Garfunkel", "Columbia", "KC 31350", []map[string]any{
			{"field_id": 2, "value": "VG+"},
		}),
	}
	f.wants = []map[string]any{
		release(2001, 0, "Blue Train", 1957, "John Coltrane", "Blue Note", "BLP 1577", nil),
	}
	f.wants[0]["notes"] = "UK pressing, please"
	f.contributions = []map[string]any{
		{
			"id": 3001, "title": "Basement Demo", "year": 1999, "status": "Accepted",
			"uri":     "https://www.discogs.com/release/3001",
			"artists": []map[string]any{{"name": "The Diggers"}},
			"labels":  []map[string]any{{"name": "Not On Label", "catno": "none"}},
			"formats": []map[string]any{{"name": "Cassette", "descriptions": []string{"Demo"}}},
		},
	}
	f.lists = []FakeList{
		{ID: 11, Name: "Desert Island", DateChanged: "2024-01-01T10:00:00-08:00", Items: []map[string]any{
			{"type": "release", "id": 1001, "display_title": "Miles Davis - Kind of Blue", "uri": "https://www.discogs.com/release/1001", "comment": "the one, obviously", "resource_url": "r", "image_url": "i", "stats": map[string]any{"community": map[string]any{"in_collection": 1}}},
		}},
		{ID: 12, Name: "Spiritual Jazz", DateChanged: "2024-02-01T10:00:00-08:00", Items: []map[string]any{
			{"type": "release", "id": 1002, "display_title": "John Coltrane - A Love Supreme", "uri": "https://www.discogs.com/release/1002", "comment": ""},
		}},
	}
}

func release(id int64, folder int64, title string, year int, artist, label, catno string, notes []map[string]any) map[string]any {
	item := map[string]any{
		"id":          id,
		"instance_id": id * 10,
		"folder_id":   folder,
		"rating":      0,
		"date_added":  "2023-06-01T12:00:00-07:00",
		"basic_information": map[string]any{
			"id":      id,
			"title":   title,
			"year":    year,
			"artists": []map[string]any{{"name": artist}},
			"labels":  []map[string]any{{"name": label, "catno": catno}},
			"formats": []map[string]any{{"name": "Vinyl", "qty": "1", "descriptions": []string{"LP", "Album"}}},
		},
	}
	if notes != nil {
		item["notes"] = notes
	}
	return item
}

func (f *FakeDiscogs) serve(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = append(f.requests, r.URL.RequestURI())

	w.Header().Set("Content-Type", "application/json")
	if status, ok := f.failures[r.URL.Path]; ok {
		w.Header().Set("Content-Type", "text/html")
		w.WriteHeader(status)
		_, _ = w.Write([]byte("<html><body>upstream error</body></html>"))
		return
	}
	if r.Header.Get("Authorization") != "Discogs token="+f.Token {
		writeJSON(w, http.StatusUnauthorized, map[string]any{"message": "You must authenticate to access this resource."})
		return
	}

	user := "/users/" + f.Username
	switch path := r.URL.Path; {
	case path == "/oauth/identity":
		writeJSON(w, http.StatusOK, map[string]any{"id": 8, "username": f.Username, "resource_url": f.Server.URL + user, "consumer_name": "crate"})
	case path == user:
		writeJSON(w, http.StatusOK, f.profile)
	case path == user+"/collection/folders/0/releases":
		f.writePage(w, r, "releases", f.collection)
	case path == user+"/collection/folders":
		writeJSON(w, http.StatusOK, map[string]any{"folders": f.folders})
	case path == user+"/collection/fields":
		writeJSON(w, http.StatusOK, map[string]any{"fields": f.fields})
	case path == user+"/wants":
		f.writePage(w, r, "wants", f.wants)
	case path == user+"/contributions":
		f.writePage(w, r, "contributions", f.contributions)
	case path == user+"/lists":
		summaries := make([]map[string]any, 0, len(f.lists))
		for _, list := range f.lists {
			summaries = append(summaries, map[string]any{
				"id":           list.ID,
				"name":         list.Name,
				"date_changed": list.DateChanged,
				"uri":          fmt.Sprintf("https://www.discogs.com/lists/%d", list.ID),
			})
		}
		f.writePage(w, r, "lists", summaries)
	case strings.HasPrefix(path, "/lists/"):
		id, err := strconv.ParseInt(strings.TrimPrefix(path, "/lists/"), 10, 64)
		if err == nil {
			for _, list := range f.lists {
				if list.ID != id {
					continue
				}
				writeJSON(w, http.StatusOK, map[string]any{
					"id":           list.ID,
					"name":         list.Name,
					"description":  "",
					"public":       true,
					"date_added":   "2020-01-01T00:00:00-08:00",
					"date_changed": list.DateChanged,
					"user":         map[string]any{"id": 8, "username": f.Username},
					"items":        list.Items,
				})
				return
			}
		}
		writeJSON(w, http.StatusNotFound, map[string]any{"message": "List not found."})
	default:
		writeJSON(w, http.StatusNotFound, map[string]any{"message": "The requested resource was not found."})
	}
}

func (f *FakeDiscogs) writePage(w http.ResponseWriter, r *http.Request, key string, items []map[string]any) {
	page := 1
	if value := r.URL.Query().Get("page"); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil && parsed > 0 {
			page = parsed
		}
	}
	perPage := max(f.perPage, 1)
	pages := max((len(items)+perPage-1)/perPage, 1)
	start := min((page-1)*perPage, len(items))
	end := min(start+perPage, len(items))
	body := map[string]any{
		"pagination": map[string]any{"page": page, "pages": pages, "per_page": perPage, "items": len(items)},
		key:          items[start:end],
	}
	writeJSON(w, http.StatusOK, body)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
