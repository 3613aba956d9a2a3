package scenelist

import (
	"bytes"
	"fmt"
	"regexp"
	"strings"

	json "github.com/goccy/go-json"
)

// Rules carries the validation limits. They are fixed
// per deployment and injected at startup rather than
// read from package globals.
type Rules struct {
	// SchemaVersion is the only accepted value of
	// the document's schema_version field.
	SchemaVersion int

	// MaxScenes caps the scene entry count.
	MaxScenes int

	// MaxBodyBytes caps the serialized request body
	// size.
	MaxBodyBytes int

	// PathPrefix is the storage prefix every scene
	// path must start with.
	PathPrefix string

	// PathExt is the file extension every scene path
	// must end with.
	PathExt string

	// MaxPathLen caps the scene path length.
	MaxPathLen int
}

// DefaultRules returns the production limits.
func DefaultRules() Rules {
	return Rules{
		SchemaVersion: 2,
		MaxScenes:     2500,
		MaxBodyBytes:  900_000,
		PathPrefix:    "scenejsons/",
		PathExt:       ".json",
		MaxPathLen:    180,
	}
}

var imdbPattern = regexp.MustCompile(`^tt\d{7,9}$`)

// rawRequest mirrors the inbound body shape. Fields are
// kept raw so that one malformed field classifies as
// its own rejection instead of failing the whole parse.
type rawRequest struct {
	SceneList json.RawMessage `json:"scene_list"`
	ScenePath string          `json:"scene_path"`
}

type rawSceneList struct {
	SchemaVersion json.RawMessage `json:"schema_version"`
	IMDBID        json.RawMessage `json:"imdb_id"`
	Title         json.RawMessage `json:"title"`
	Label         json.RawMessage `json:"label"`
	CreatedAt     json.RawMessage `json:"created_at"`
	VideoDuration json.RawMessage `json:"video_duration_ms"`
	Scenes        json.RawMessage `json:"scenes"`
}

// Validate checks a raw request body against rules and
// returns the normalized submission. On failure the
// returned error is a *Rejection; rules are applied in
// a fixed order and the first failure wins. Validation
// is idempotent and performs no I/O.
func Validate(
	body []byte,
	rules Rules,
) (*Submission, error) {
	var req rawRequest

	if err := json.Unmarshal(body, &req); err != nil {
		if !json.Valid(body) {
			return nil, reject(
				CodeBadJSON,
				"request body is not valid JSON",
			)
		}

		return nil, reject(
			CodeBadRequest,
			"request body must be an object",
		)
	}

	if !isObject(req.SceneList) {
		return nil, reject(
			CodeBadRequest,
			"scene_list must be an object",
		)
	}

	var raw rawSceneList
	if err := json.Unmarshal(
		req.SceneList, &raw,
	); err != nil {
		return nil, reject(
			CodeBadRequest,
			"scene_list must be an object",
		)
	}

	var version int
	if err := json.Unmarshal(
		raw.SchemaVersion, &version,
	); err != nil || version != rules.SchemaVersion {
		return nil, reject(CodeBadSchema, fmt.Sprintf(
			"schema_version must be %d",
			rules.SchemaVersion,
		))
	}

	imdbID, ok := normalizeIMDBID(raw.IMDBID)
	if !ok {
		return nil, reject(
			CodeBadIMDBID,
			"imdb_id must match tt followed by 7-9 digits",
		)
	}

	var scenes []json.RawMessage
	if err := json.Unmarshal(
		raw.Scenes, &scenes,
	); err != nil || len(scenes) == 0 {
		return nil, reject(
			CodeNoScenes,
			"scenes must be a non-empty array",
		)
	}

	if len(scenes) > rules.MaxScenes {
		return nil, reject(
			CodeTooManyScenes, fmt.Sprintf(
				"scenes must contain at most %d entries",
				rules.MaxScenes,
			))
	}

	scenePath := strings.TrimSpace(req.ScenePath)
	if !validScenePath(scenePath, rules) {
		return nil, reject(
			CodeBadScenePath,
			"scene_path is outside the allowed storage "+
				"location",
		)
	}

	if len(body) > rules.MaxBodyBytes {
		return nil, reject(
			CodePayloadTooLarge, fmt.Sprintf(
				"request body exceeds %d bytes",
				rules.MaxBodyBytes,
			))
	}

	return &Submission{
		SceneList: SceneList{
			SchemaVersion:   version,
			IMDBID:          imdbID,
			Title:           asString(raw.Title),
			Label:           asString(raw.Label),
			CreatedAt:       asString(raw.CreatedAt),
			VideoDurationMS: asDuration(raw.VideoDuration),
			Scenes:          scenes,
		},
		ScenePath: scenePath,
	}, nil
}

// isObject reports whether raw holds a JSON object
// (not null, not another value kind).
func isObject(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)

	return len(trimmed) > 0 && trimmed[0] == '{'
}

// normalizeIMDBID trims and lower-cases the submitted
// id, then matches it against the IMDb pattern.
func normalizeIMDBID(
	raw json.RawMessage,
) (string, bool) {
	var id string
	if err := json.Unmarshal(raw, &id); err != nil {
		return "", false
	}

	id = strings.ToLower(strings.TrimSpace(id))
	if !imdbPattern.MatchString(id) {
		return "", false
	}

	return id, true
}

// validScenePath confines the path to the storage
// prefix: no traversal, no absolute paths, fixed
// extension, bounded length.
func validScenePath(p string, rules Rules) bool {
	switch {
	case p == "":
		return false
	case strings.HasPrefix(p, "/"):
		return false
	case strings.Contains(p, ".."):
		return false
	case strings.Contains(p, `\`):
		return false
	case !strings.HasPrefix(p, rules.PathPrefix):
		return false
	case !strings.HasSuffix(p, rules.PathExt):
		return false
	case len(p) > rules.MaxPathLen:
		return false
	}

	return true
}

// asString decodes a free-form string field, defaulting
// to empty on absence or wrong type.
func asString(raw json.RawMessage) string {
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return ""
	}

	return s
}

// asDuration decodes a non-negative duration field,
// defaulting to 0 on absence, wrong type, or negative
// values.
func asDuration(raw json.RawMessage) float64 {
	var d float64
	if err := json.Unmarshal(raw, &d); err != nil {
		return 0
	}

	if d < 0 {
		return 0
	}

	return d
}
