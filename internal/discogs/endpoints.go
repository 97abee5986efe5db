package discogs

import (
	"net/url"
	"strconv"
)

// Item array names inside paginated responses.
const (
	ArrayReleases      = "releases"
	ArrayWants         = "wants"
	ArrayContributions = "contributions"
	ArrayLists         = "lists"
)

// Endpoints builds request URLs for one user.
type Endpoints struct {
	base     string
	username string
}

// Endpoints returns URL builders for username rooted at the client's base URL.
func (c *Client) Endpoints(username string) Endpoints {
	return NewEndpoints(c.baseURL, username)
}

// NewEndpoints returns URL builders for username rooted at base.
func NewEndpoints(base, username string) Endpoints {
	return Endpoints{base: base, username: url.PathEscape(username)}
}

func (e Endpoints) user() string {
	return e.base + "/users/" + e.username
}

// Profile is the public profile of the user.
func (e Endpoints) Profile() string { return e.user() }

// Collection lists releases in the "All" folder (id 0).
func (e Endpoints) Collection() string { return e.user() + "/collection/folders/0/releases" }

// Folders lists the collection folders used to name folder ids.
func (e Endpoints) Folders() string { return e.user() + "/collection/folders" }

// Fields lists the custom collection note fields.
func (e Endpoints) Fields() string { return e.user() + "/collection/fields" }

// Wants is the paginated wantlist.
func (e Endpoints) Wants() string { return e.user() + "/wants" }

// Contributions is the paginated list of releases the user submitted.
func (e Endpoints) Contributions() string { return e.user() + "/contributions" }

// Lists is the paginated list-of-lists of the user.
func (e Endpoints) Lists() string { return e.user() + "/lists" }

// List is the detail of one list, including its items. It is not scoped to the user.
func (e Endpoints) List(id int64) string {
	return e.base + "/lists/" + strconv.FormatInt(id, 10)
}

// Identity resolves the user owning the API token.
func (e Endpoints) Identity() string { return e.base + "/oauth/identity" }
