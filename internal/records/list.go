package records

import (
	"encoding/json"
	"fmt"

	"crate/internal/csvout"
	"crate/internal/services"
)

var listHeader = []string{"Type", "Id", "Title", "Uri", "Comment"}

func ListHeader() []string { return append([]string(nil), listHeader...) }

// volatileItemKeys are dropped from list items: locators and usage stats
// change without the list itself changing.
var volatileItemKeys = []string{"resource_url", "image_url", "stats"}

// ListItem is one entry of a list with volatile keys removed.
type ListItem map[string]json.RawMessage

// List is a user-curated list and its items.
type List struct {
	ListID      int64           `json:"list_id"`
	Name        string          `json:"name"`
	Description json.RawMessage `json:"description"`
	DateAdded   json.RawMessage `json:"date_added"`
	DateChanged json.RawMessage `json:"date_changed"`
	Username    string          `json:"username"`
	UserID      int64           `json:"user_id"`
	Public      json.RawMessage `json:"public"`
	Items       []ListItem      `json:"items"`
}

type rawList struct {
	ID          *int64          `json:"id"`
	Name        string          `json:"name"`
	Description json.RawMessage `json:"description"`
	DateAdded   json.RawMessage `json:"date_added"`
	DateChanged json.RawMessage `json:"date_changed"`
	Public      json.RawMessage `json:"public"`
	User        *struct {
		ID       int64  `json:"id"`
		Username string `json:"username"`
	} `json:"user"`
	Items []map[string]json.RawMessage `json:"items"`
}

// NormalizeList projects a /lists/{id} body.
func NormalizeList(raw json.RawMessage) (List, error) {
	var list rawList
	if err := json.Unmarshal(raw, &list); err != nil {
		return List{}, fmt.Errorf("%w: decode list: %w", services.ErrNormalization, err)
	}
	if list.ID == nil {
		return List{}, fmt.Errorf("%w: list id missing", services.ErrNormalization)
	}
	if list.User == nil {
		return List{}, fmt.Errorf("%w: list %d: user missing", services.ErrNormalization, *list.ID)
	}

	items := make([]ListItem, 0, len(list.Items))
	for _, item := range list.Items {
		if item == nil {
			continue
		}
		for _, key := range volatileItemKeys {
			delete(item, key)
		}
		items = append(items, ListItem(item))
	}

	return List{
		ListID:      *list.ID,
		Name:        list.Name,
		Description: list.Description,
		DateAdded:   list.DateAdded,
		DateChanged: list.DateChanged,
		Username:    list.User.Username,
		UserID:      list.User.ID,
		Public:      list.Public,
		Items:       items,
	}, nil
}

// CSVRows projects every item onto ListHeader.
func (l List) CSVRows() []csvout.Row {
	rows := make([]csvout.Row, 0, len(l.Items))
	for _, item := range l.Items {
		rows = append(rows, csvout.Row{Values: []string{
			text(item["type"]),
			text(item["id"]),
			text(item["display_title"]),
			text(item["uri"]),
			text(item["comment"]),
		}})
	}
	return rows
}
