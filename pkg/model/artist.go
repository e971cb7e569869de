package model

// Artist is a performer profile from the third-party catalog.
type Artist struct {
	ID        string   `json:"id"`
	Name      string   `json:"name"`
	Genres    []string `json:"genres,omitempty"`
	Location  string   `json:"location,omitempty"`
	ImageURL  string   `json:"image_url,omitempty"`
	Followers int64    `json:"followers,omitempty"`
}
