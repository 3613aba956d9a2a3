package scenelist

import (
	json "github.com/goccy/go-json"
)

// SceneList is the normalized submitted document
// describing timed content segments for one movie.
type SceneList struct {
	// SchemaVersion is the document schema version.
	SchemaVersion int `json:"schema_version"`

	// IMDBID is the lower-cased IMDb identifier
	// ("tt" followed by 7-9 digits).
	IMDBID string `json:"imdb_id"`

	// Title is the movie title, empty when absent.
	Title string `json:"title"`

	// Label is a free-form submitter label, empty
	// when absent.
	Label string `json:"label"`

	// CreatedAt is a free-form creation timestamp,
	// empty when absent.
	CreatedAt string `json:"created_at"`

	// VideoDurationMS is the video duration in
	// milliseconds, 0 when absent or invalid.
	VideoDurationMS float64 `json:"video_duration_ms"`

	// Scenes holds the scene entries verbatim. Entry
	// shape is opaque here and passed through
	// unchanged.
	Scenes []json.RawMessage `json:"scenes"`
}

// Submission pairs a validated scene list with the
// repository path it should be written to.
type Submission struct {
	SceneList SceneList
	ScenePath string
}

// IndexEntry is the denormalized summary appended to
// the shared index document for one submission.
type IndexEntry struct {
	IMDBID          string  `json:"imdb_id"`
	Title           string  `json:"title"`
	Path            string  `json:"path"`
	CreatedAt       string  `json:"created_at"`
	VideoDurationMS float64 `json:"video_duration_ms"`
	Label           string  `json:"label"`
}

// Index is the shared index document. It is append-only
// from this service's point of view: entries are never
// reordered or deduplicated.
type Index struct {
	Movies []IndexEntry `json:"movies"`
}

// IndexEntry builds the index summary for this
// submission.
func (s *Submission) IndexEntry() IndexEntry {
	return IndexEntry{
		IMDBID:          s.SceneList.IMDBID,
		Title:           s.SceneList.Title,
		Path:            s.ScenePath,
		CreatedAt:       s.SceneList.CreatedAt,
		VideoDurationMS: s.SceneList.VideoDurationMS,
		Label:           s.SceneList.Label,
	}
}
