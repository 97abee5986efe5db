package discogs_test

import (
	"errors"
	"testing"

	"crate/internal/discogs"
	"crate/internal/services"
)

func TestCollateWalksDottedPath(t *testing.T) {
	pages := [][]byte{
		[]byte(`{"a":{"b":{"c":[1,2]}}}`),
		[]byte(`{"a":{"b":{"c":[]}}}`),
		[]byte(`{"a":{"b":{"c":[3]}}}`),
	}
	items, err := discogs.Collate("a.b.c", pages)
	if err != nil {
		t.Fatalf("Collate returned error: %v", err)
	}
	if len(items) != 3 || string(items[2]) != "3" {
		t.Fatalf("unexpected items: %s", items)
	}
}

func TestCollateEmptyArrayIsNotNil(t *testing.T) {
	items, err := discogs.Collate("lists", [][]byte{[]byte(`{"lists":[]}`)})
	if err != nil {
		t.Fatalf("Collate returned error: %v", err)
	}
	if items == nil || len(items) != 0 {
		t.Fatalf("expected empty non-nil slice, got %#v", items)
	}
}

func TestCollateRejectsMalformedPages(t *testing.T) {
	cases := map[string][]byte{
		"not json":      []byte(`not json`),
		"missing key":   []byte(`{"other":[]}`),
		"not an array":  []byte(`{"releases":{"id":1}}`),
		"null array":    []byte(`{"releases":null}`),
		"scalar parent": []byte(`{"releases":3}`),
	}
	for name, page := range cases {
		t.Run(name, func(t *testing.T) {
			path := "releases"
			if name == "scalar parent" {
				path = "releases.items"
			}
			_, err := discogs.Collate(path, [][]byte{[]byte(`{"releases":[],"items":[]}`), page})
			if !errors.Is(err, services.ErrMalformedPage) {
				t.Fatalf("expected malformed page error, got %v", err)
			}
		})
	}
}

func TestEndpoints(t *testing.T) {
	e := discogs.NewEndpoints("https://api.discogs.com", "some user")
	const user = "https://api.discogs.com/users/some%20user"
	cases := []struct{ got, want string }{
		{e.Profile(), user},
		{e.Collection(), user + "/collection/folders/0/releases"},
		{e.Folders(), user + "/collection/folders"},
		{e.Fields(), user + "/collection/fields"},
		{e.Wants(), user + "/wants"},
		{e.Contributions(), user + "/contributions"},
		{e.Lists(), user + "/lists"},
		{e.List(42), "https://api.discogs.com/lists/42"},
		{e.Identity(), "https://api.discogs.com/oauth/identity"},
	}
	for _, tc := range cases {
		if tc.got != tc.want {
			t.Errorf("unexpected url %q, want %q", tc.got, tc.want)
		}
	}
}
