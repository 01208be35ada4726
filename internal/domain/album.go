package domain

import "time"

// Album is the minimal album record the tag engine needs: an identity to
// relink tag associations against. Full album metadata (artist, pressing,
// formats) lives with the cataloguing front end.
type Album struct {
	ID        string    `json:"id"`
	Artist    string    `json:"artist"`
	Title     string    `json:"title"`
	Year      int       `json:"year,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}
