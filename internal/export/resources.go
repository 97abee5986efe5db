package export

import (
	"context"
	"encoding/json"

	"crate/internal/config"
	"crate/internal/csvout"
	"crate/internal/discogs"
	"crate/internal/records"
)

func (e *Exporter) exportProfile(ctx context.Context, result *ResourceResult, state *runState) error {
	body, err := e.fetchOne(ctx, e.endpoints.Profile())
	if err != nil {
		return err
	}
	raw, err := prettyBody(body)
	if err != nil {
		return err
	}
	result.Records = 1

	var counts struct {
		NumCollection *int `json:"num_collection"`
		NumWantlist   *int `json:"num_wantlist"`
	}
	if json.Unmarshal(body, &counts) == nil {
		state.profileCollection = counts.NumCollection
		state.profileWantlist = counts.NumWantlist
	}

	// The verbatim profile is always kept, whatever the format selection.
	e.write(ctx, result, "", e.opts.Username+".json", raw)
	if e.rawOnly() {
		return nil
	}

	profile, err := records.NormalizeProfile(body)
	if err != nil {
		result.Skipped = 1
		e.reportNormalizationFailure(ctx, 0, err)
		return nil
	}
	result.Normalized = 1
	if e.hasFormat(config.FormatJSON) {
		e.writeJSON(ctx, result, "", "profile.json", profile)
	}
	if e.hasFormat(config.FormatCSV) {
		e.writeCSV(ctx, result, "", "profile.csv", records.ProfileHeader(), nil, []csvout.Row{profile.CSVRow()})
	}
	return nil
}

func (e *Exporter) exportCollection(ctx context.Context, result *ResourceResult, state *runState) error {
	items, err := e.fetchCollated(ctx, e.endpoints.Collection(), discogs.ArrayReleases)
	if err != nil {
		return err
	}
	count := len(items)
	state.collectionCount = &count
	// The raw dump only depends on the collated pages, so it survives a
	// failed lookup fetch.
	e.writeRaw(ctx, result, config.ResourceCollection, items)

	aux := records.Aux{}
	if !e.rawOnly() {
		folderBody, err := e.fetchOne(ctx, e.endpoints.Folders())
		if err != nil {
			return err
		}
		folders, err := discogs.DecodeFolders(folderBody)
		if err != nil {
			return err
		}
		fieldBody, err := e.fetchOne(ctx, e.endpoints.Fields())
		if err != nil {
			return err
		}
		fields, err := discogs.DecodeFields(fieldBody)
		if err != nil {
			return err
		}
		aux = records.Aux{Folders: records.FolderLookup(folders), Fields: records.FieldLookup(fields)}
	}

	exportReleases(ctx, e, result, config.ResourceCollection, items,
		records.CollectionHeader(), aux.Fields.Columns(),
		func(raw json.RawMessage) (records.CollectionRelease, error) {
			return records.NormalizeCollectionRelease(raw, aux)
		},
		records.CollectionRelease.CSVRow,
	)
	return nil
}

func (e *Exporter) exportWantlist(ctx context.Context, result *ResourceResult, state *runState) error {
	items, err := e.fetchCollated(ctx, e.endpoints.Wants(), discogs.ArrayWants)
	if err != nil {
		return err
	}
	count := len(items)
	state.wantlistCount = &count
	e.writeRaw(ctx, result, config.ResourceWantlist, items)

	exportReleases(ctx, e, result, config.ResourceWantlist, items,
		records.WantHeader(), nil, records.NormalizeWant, records.WantRelease.CSVRow)
	return nil
}

func (e *Exporter) exportContributions(ctx context.Context, result *ResourceResult, _ *runState) error {
	items, err := e.fetchCollated(ctx, e.endpoints.Contributions(), discogs.ArrayContributions)
	if err != nil {
		return err
	}
	e.writeRaw(ctx, result, config.ResourceContributions, items)

	exportReleases(ctx, e, result, config.ResourceContributions, items,
		records.ContributionHeader(), nil, records.NormalizeContribution, records.Contribution.CSVRow)
	return nil
}

// writeRaw records the item count and writes the collated items unfiltered.
func (e *Exporter) writeRaw(ctx context.Context, result *ResourceResult, base string, items []json.RawMessage) {
	result.Records = len(items)
	if e.hasFormat(config.FormatRawJSON) {
		e.writeJSON(ctx, result, "", base+".raw.json", items)
	}
}

// exportReleases writes the filtered and CSV artifacts of a collated
// release-shaped resource. Items that fail normalization are skipped.
func exportReleases[T any](
	ctx context.Context,
	e *Exporter,
	result *ResourceResult,
	base string,
	items []json.RawMessage,
	header []string,
	declared []csvout.DynamicColumn,
	normalize func(json.RawMessage) (T, error),
	row func(T) csvout.Row,
) {
	if e.rawOnly() {
		return
	}

	normalized := make([]T, 0, len(items))
	for index, item := range items {
		record, err := normalize(item)
		if err != nil {
			result.Skipped++
			e.reportNormalizationFailure(ctx, index, err)
			continue
		}
		normalized = append(normalized, record)
	}
	result.Normalized = len(normalized)

	if e.hasFormat(config.FormatJSON) {
		e.writeJSON(ctx, result, "", base+".json", normalized)
	}
	if e.hasFormat(config.FormatCSV) {
		rows := make([]csvout.Row, 0, len(normalized))
		for _, record := range normalized {
			rows = append(rows, row(record))
		}
		var dynamic []csvout.DynamicColumn
		if declared != nil {
			dynamic = csvout.DynamicColumns(declared, rows)
		}
		e.writeCSV(ctx, result, "", base+".csv", header, dynamic, rows)
	}
}
