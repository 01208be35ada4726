package domain

import "time"

// Tag represents a genre/style tag attached to albums.
// NormalizedName is the source of truth for identity: at most one canonical
// tag exists per normalized form. Name preserves the original display casing.
type Tag struct {
	ID             string    `json:"id"`
	Name           string    `json:"name"`            // Display name: "Atmospheric Black Metal"
	NormalizedName string    `json:"normalized_name"` // Canonical form: "atmospheric-black-metal"
	Category       Category  `json:"category"`
	IsCanonical    bool      `json:"is_canonical"`
	Frequency      int       `json:"frequency"` // Denormalized count of albums with this tag
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// Touch updates the UpdatedAt timestamp.
func (t *Tag) Touch() {
	t.UpdatedAt = time.Now().UTC()
}

// TagVariant is a historical alias: a display string that once existed as its
// own tag and now resolves to a surviving canonical tag. Many variants may
// point at one canonical tag.
type TagVariant struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`   // The merged display string
	TagID     string    `json:"tag_id"` // Surviving canonical tag
	CreatedAt time.Time `json:"created_at"`
}

// AlbumTag represents the many-to-many relationship between albums and tags.
type AlbumTag struct {
	AlbumID   string    `json:"album_id"`
	TagID     string    `json:"tag_id"`
	CreatedAt time.Time `json:"created_at"`
}

// UnmappedTag tracks raw tag strings whose normalized form matched no known
// canonical tag. Surfaced for manual resolution.
type UnmappedTag struct {
	RawValue   string    `json:"raw_value"`
	AlbumCount int       `json:"album_count"` // How many albums carry this string
	FirstSeen  time.Time `json:"first_seen"`
}
