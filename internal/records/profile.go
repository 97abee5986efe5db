package records

import (
	"encoding/json"
	"fmt"
	"strings"

	"crate/internal/csvout"
	"crate/internal/services"
)

var profileHeader = []string{"Id", "Username", "Name", "Location", "HomePage", "Registered", "Rank", "NumLists", "NumCollection", "NumWantlist", "NumForSale", "ReleasesContributed", "ReleasesRated", "RatingAvg", "Uri"}

func ProfileHeader() []string { return append([]string(nil), profileHeader...) }

// Profile is the account summary of /users/{username}.
type Profile struct {
	ID                  json.RawMessage `json:"id"`
	Username            string          `json:"username"`
	Name                json.RawMessage `json:"name"`
	Location            json.RawMessage `json:"location"`
	HomePage            json.RawMessage `json:"home_page"`
	Profile             json.RawMessage `json:"profile"`
	Registered          json.RawMessage `json:"registered"`
	Rank                json.RawMessage `json:"rank"`
	NumLists            json.RawMessage `json:"num_lists"`
	NumCollection       *int            `json:"num_collection"`
	NumWantlist         *int            `json:"num_wantlist"`
	NumForSale          json.RawMessage `json:"num_for_sale"`
	ReleasesContributed json.RawMessage `json:"releases_contributed"`
	ReleasesRated       json.RawMessage `json:"releases_rated"`
	RatingAvg           json.RawMessage `json:"rating_avg"`
	URI                 json.RawMessage `json:"uri"`
}

// NormalizeProfile projects a profile body. The username is required.
func NormalizeProfile(raw json.RawMessage) (Profile, error) {
	var profile Profile
	if err := json.Unmarshal(raw, &profile); err != nil {
		return Profile{}, fmt.Errorf("%w: decode profile: %w", services.ErrNormalization, err)
	}
	if strings.TrimSpace(profile.Username) == "" {
		return Profile{}, fmt.Errorf("%w: profile username missing", services.ErrNormalization)
	}
	return profile, nil
}

// CSVRow projects the profile onto ProfileHeader.
func (p Profile) CSVRow() csvout.Row {
	return csvout.Row{Values: []string{
		text(p.ID),
		p.Username,
		text(p.Name),
		text(p.Location),
		text(p.HomePage),
		text(p.Registered),
		text(p.Rank),
		text(p.NumLists),
		optionalInt(p.NumCollection),
		optionalInt(p.NumWantlist),
		text(p.NumForSale),
		text(p.ReleasesContributed),
		text(p.ReleasesRated),
		text(p.RatingAvg),
		text(p.URI),
	}}
}

func optionalInt(value *int) string {
	if value == nil {
		return ""
	}
	return fmt.Sprint(*value)
}
