package records

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"

	"crate/internal/csvout"
	"crate/internal/services"
)

// CSV headers for release-shaped resources.
var (
	collectionHeader   = []string{"CatalogNo", "Artist", "Title", "Label", "Format", "Rating", "Released", "ReleaseId", "CollectionFolder", "DateAdded"}
	wantHeader         = []string{"CatalogNo", "Artist", "Title", "Label", "Format", "Rating", "Released", "ReleaseId", "Notes"}
	contributionHeader = []string{"CatalogNo", "Artist", "Title", "Label", "Format", "Rating", "Released", "ReleaseId"}
)

// CollectionHeader returns the fixed collection columns. Custom field
// columns are appended after these.
func CollectionHeader() []string { return append([]string(nil), collectionHeader...) }

// WantHeader returns the wantlist columns.
func WantHeader() []string { return append([]string(nil), wantHeader...) }

// ContributionHeader returns the contribution columns.
func ContributionHeader() []string { return append([]string(nil), contributionHeader...) }

type rawRelease struct {
	ID               *int64          `json:"id"`
	FolderID         int64           `json:"folder_id"`
	Rating           json.RawMessage `json:"rating"`
	DateAdded        json.RawMessage `json:"date_added"`
	Notes            json.RawMessage `json:"notes"`
	BasicInformation json.RawMessage `json:"basic_information"`
}

type rawReleaseBody struct {
	Title   string          `json:"title"`
	Year    json.RawMessage `json:"year"`
	Artists json.RawMessage `json:"artists"`
	Labels  json.RawMessage `json:"labels"`
	Formats json.RawMessage `json:"formats"`
}

type rawNote struct {
	FieldID int64           `json:"field_id"`
	Value   json.RawMessage `json:"value"`
}

// Note is a custom field value with its resolved field name.
type Note struct {
	FieldID int64  `json:"-"`
	Field   string `json:"field"`
	Value   string `json:"value"`
}

// CollectionRelease is a release in the user's collection.
type CollectionRelease struct {
	ReleaseID int64           `json:"release_id"`
	Title     string          `json:"title"`
	Artists   json.RawMessage `json:"artists"`
	Year      json.RawMessage `json:"year"`
	Labels    json.RawMessage `json:"labels"`
	Format    json.RawMessage `json:"format"`
	Notes     []Note          `json:"notes"`
	Rating    json.RawMessage `json:"rating"`
	Folder    string          `json:"folder"`
	DateAdded json.RawMessage `json:"date_added"`
}

// WantRelease is a release on the user's wantlist.
type WantRelease struct {
	ReleaseID int64           `json:"release_id"`
	Title     string          `json:"title"`
	Artists   json.RawMessage `json:"artists"`
	Year      json.RawMessage `json:"year"`
	Labels    json.RawMessage `json:"labels"`
	Format    json.RawMessage `json:"format"`
	Rating    json.RawMessage `json:"rating"`
	Notes     json.RawMessage `json:"notes"`
	DateAdded json.RawMessage `json:"date_added"`
}

// Contribution is a release the user submitted to the database.
type Contribution struct {
	ReleaseID   int64           `json:"release_id"`
	URI         json.RawMessage `json:"uri"`
	Title       string          `json:"title"`
	Artists     json.RawMessage `json:"artists"`
	Year        json.RawMessage `json:"year"`
	Labels      json.RawMessage `json:"labels"`
	Identifiers json.RawMessage `json:"identifiers"`
	Companies   json.RawMessage `json:"companies"`
	Format      json.RawMessage `json:"format"`
	Rating      json.RawMessage `json:"rating"`
	Notes       json.RawMessage `json:"notes"`
	DateAdded   json.RawMessage `json:"date_added"`
	DateChanged json.RawMessage `json:"date_changed"`
	Status      json.RawMessage `json:"status"`
}

func decodeRelease(raw json.RawMessage) (rawRelease, rawReleaseBody, error) {
	var release rawRelease
	if err := json.Unmarshal(raw, &release); err != nil {
		return rawRelease{}, rawReleaseBody{}, fmt.Errorf("%w: decode release: %w", services.ErrNormalization, err)
	}
	if release.ID == nil {
		return rawRelease{}, rawReleaseBody{}, fmt.Errorf("%w: release id missing", services.ErrNormalization)
	}
	info := bytes.TrimSpace(release.BasicInformation)
	if len(info) == 0 || bytes.Equal(info, []byte("null")) {
		return rawRelease{}, rawReleaseBody{}, fmt.Errorf("%w: release %d: basic_information missing", services.ErrNormalization, *release.ID)
	}
	var body rawReleaseBody
	if err := json.Unmarshal(info, &body); err != nil {
		return rawRelease{}, rawReleaseBody{}, fmt.Errorf("%w: release %d: decode basic_information: %w", services.ErrNormalization, *release.ID, err)
	}
	return release, body, nil
}

// NormalizeCollectionRelease resolves the folder and custom field names of one
// collection item. Notes keep their order and duplicates.
func NormalizeCollectionRelease(raw json.RawMessage, aux Aux) (CollectionRelease, error) {
	release, body, err := decodeRelease(raw)
	if err != nil {
		return CollectionRelease{}, err
	}

	notes := []Note{}
	if trimmed := bytes.TrimSpace(release.Notes); len(trimmed) > 0 && !bytes.Equal(trimmed, []byte("null")) {
		var rawNotes []rawNote
		if err := json.Unmarshal(trimmed, &rawNotes); err != nil {
			return CollectionRelease{}, fmt.Errorf("%w: release %d: decode notes: %w", services.ErrNormalization, *release.ID, err)
		}
		for _, note := range rawNotes {
			name, ok := aux.Fields.Name(note.FieldID)
			if !ok {
				name = csvout.FallbackName(note.FieldID)
			}
			notes = append(notes, Note{FieldID: note.FieldID, Field: name, Value: text(note.Value)})
		}
	}

	folder, _ := aux.Folders.Name(release.FolderID)
	return CollectionRelease{
		ReleaseID: *release.ID,
		Title:     body.Title,
		Artists:   body.Artists,
		Year:      body.Year,
		Labels:    body.Labels,
		Format:    body.Formats,
		Notes:     notes,
		Rating:    release.Rating,
		Folder:    folder,
		DateAdded: release.DateAdded,
	}, nil
}

// CSVRow projects the release onto CollectionHeader plus one cell per note.
func (r CollectionRelease) CSVRow() csvout.Row {
	labels := decodeNamed(r.Labels)
	row := csvout.Row{
		Values: []string{
			joinCatalogNumbers(labels),
			joinNames(decodeNamed(r.Artists)),
			r.Title,
			joinNames(labels),
			formatSummary(r.Format),
			text(r.Rating),
			text(r.Year),
			strconv.FormatInt(r.ReleaseID, 10),
			r.Folder,
			text(r.DateAdded),
		},
	}
	for _, note := range r.Notes {
		row.Dynamic = append(row.Dynamic, csvout.Cell{ID: note.FieldID, Value: note.Value})
	}
	return row
}

// NormalizeWant projects one wantlist item.
func NormalizeWant(raw json.RawMessage) (WantRelease, error) {
	release, body, err := decodeRelease(raw)
	if err != nil {
		return WantRelease{}, err
	}
	return WantRelease{
		ReleaseID: *release.ID,
		Title:     body.Title,
		Artists:   body.Artists,
		Year:      body.Year,
		Labels:    body.Labels,
		Format:    body.Formats,
		Rating:    release.Rating,
		Notes:     release.Notes,
		DateAdded: release.DateAdded,
	}, nil
}

// CSVRow projects the want onto WantHeader.
func (w WantRelease) CSVRow() csvout.Row {
	labels := decodeNamed(w.Labels)
	return csvout.Row{Values: []string{
		joinCatalogNumbers(labels),
		joinNames(decodeNamed(w.Artists)),
		w.Title,
		joinNames(labels),
		formatSummary(w.Format),
		text(w.Rating),
		text(w.Year),
		strconv.FormatInt(w.ReleaseID, 10),
		text(w.Notes),
	}}
}

type rawContribution struct {
	ID          *int64          `json:"id"`
	URI         json.RawMessage `json:"uri"`
	Title       *string         `json:"title"`
	Artists     json.RawMessage `json:"artists"`
	Year        json.RawMessage `json:"year"`
	Labels      json.RawMessage `json:"labels"`
	Identifiers json.RawMessage `json:"identifiers"`
	Companies   json.RawMessage `json:"companies"`
	Formats     json.RawMessage `json:"formats"`
	Rating      json.RawMessage `json:"rating"`
	Notes       json.RawMessage `json:"notes"`
	DateAdded   json.RawMessage `json:"date_added"`
	DateChanged json.RawMessage `json:"date_changed"`
	Status      json.RawMessage `json:"status"`
}

// NormalizeContribution projects one contributed release. Contributions are
// full release objects, so the title replaces basic_information as the
// required field.
func NormalizeContribution(raw json.RawMessage) (Contribution, error) {
	var release rawContribution
	if err := json.Unmarshal(raw, &release); err != nil {
		return Contribution{}, fmt.Errorf("%w: decode contribution: %w", services.ErrNormalization, err)
	}
	if release.ID == nil {
		return Contribution{}, fmt.Errorf("%w: contribution id missing", services.ErrNormalization)
	}
	if release.Title == nil {
		return Contribution{}, fmt.Errorf("%w: contribution %d: title missing", services.ErrNormalization, *release.ID)
	}
	return Contribution{
		ReleaseID:   *release.ID,
		URI:         release.URI,
		Title:       *release.Title,
		Artists:     release.Artists,
		Year:        release.Year,
		Labels:      release.Labels,
		Identifiers: release.Identifiers,
		Companies:   release.Companies,
		Format:      release.Formats,
		Rating:      release.Rating,
		Notes:       release.Notes,
		DateAdded:   release.DateAdded,
		DateChanged: release.DateChanged,
		Status:      release.Status,
	}, nil
}

// CSVRow projects the contribution onto ContributionHeader.
func (c Contribution) CSVRow() csvout.Row {
	labels := decodeNamed(c.Labels)
	return csvout.Row{Values: []string{
		joinCatalogNumbers(labels),
		joinNames(decodeNamed(c.Artists)),
		c.Title,
		joinNames(labels),
		formatSummary(c.Format),
		text(c.Rating),
		text(c.Year),
		strconv.FormatInt(c.ReleaseID, 10),
	}}
}
