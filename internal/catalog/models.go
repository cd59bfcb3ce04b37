package catalog

// Collection names in the document store
const (
	ItemsCollection    = "locations"
	RequestsCollection = "requests"
)

// DefaultPageSize is the public listing page size
const DefaultPageSize = 9

// maxIDsPerQuery caps the id-set size of one membership query
const maxIDsPerQuery = 30

// MaintenanceLock is the store lock held by bulk writers such as the
// visibility backfill and catalog ingest
const MaintenanceLock = "catalog-maintenance"

// StatusPending is the only status a stored request ever has
const StatusPending = "pending"

// Known item types
const (
	TypeArtifact = "Artifact"
	TypeMuseum   = "Museum"
	TypeSite     = "Site"
)

var (
	ItemTypes = []string{TypeArtifact, TypeMuseum, TypeSite}
	Eras      = []string{"Prehistoric", "Ancient", "Classical", "Medieval", "Renaissance", "Modern"}
	Regions   = []string{"Africa", "Asia", "Europe", "North America", "South America", "Oceania"}
)

// Item is a catalog entry: an artifact, museum or site.
// Type, Era and Region are open strings; the lists above are the known values.
type Item struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Type        string   `json:"type"`
	Era         string   `json:"era"`
	Region      string   `json:"region"`
	Location    string   `json:"location"`
	ImageURL    string   `json:"imageUrl,omitempty"`
	MuseumIDs   []string `json:"museumIds,omitempty"`
	// IsDisabled is nil on items stored before visibility existed; nil means visible.
	IsDisabled *bool `json:"isDisabled,omitempty"`
	// SourceRequestID links an item to the request it was approved from.
	SourceRequestID string `json:"sourceRequestId,omitempty"`
}

// Hidden reports whether the item is hidden from public listings
func (i Item) Hidden() bool {
	return i.IsDisabled != nil && *i.IsDisabled
}

// AdditionRequest is a public suggestion to add or correct an item
type AdditionRequest struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Type        string `json:"type"`
	Location    string `json:"location"`
	ImageURL    string `json:"imageUrl,omitempty"`
	UserEmail   string `json:"userEmail,omitempty"`
	Status      string `json:"status"`
	SubmittedAt string `json:"submittedAt,omitempty"`
}

// FilterCriteria narrows a public listing. Empty fields do not filter.
type FilterCriteria struct {
	SearchTerm string `json:"searchTerm,omitempty"`
	Type       string `json:"type,omitempty"`
	Era        string `json:"era,omitempty"`
	Region     string `json:"region,omitempty"`
}

// Page is one page of a listing. NextCursor is empty when the store returned
// fewer documents than requested.
type Page struct {
	Items      []Item `json:"items"`
	NextCursor string `json:"nextCursor"`
}

// HasMore reports whether another page may exist. A page shrunk by the search
// term counts as short, so this can stop early while matches remain.
func (p Page) HasMore(pageSize int) bool {
	return p.NextCursor != "" && len(p.Items) >= pageSize
}

// Bool returns a pointer to b
func Bool(b bool) *bool {
	return &b
}
