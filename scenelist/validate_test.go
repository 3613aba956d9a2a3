package scenelist_test

import (
	"fmt"
	"strings"
	"testing"

	json "github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sceneindex/submitd/scenelist"
)

func validBody(t *testing.T) []byte {
	t.Helper()

	return []byte(`{
		"scene_list": {
			"schema_version": 2,
			"imdb_id": "tt1234567",
			"title": "Some Movie",
			"label": "theatrical",
			"created_at": "2026-08-01T10:00:00Z",
			"video_duration_ms": 5400000,
			"scenes": [{"start_ms": 0, "end_ms": 1000}]
		},
		"scene_path": "scenejsons/tt1234567.json"
	}`)
}

func TestValidate_valid(t *testing.T) {
	t.Parallel()

	sub, err := scenelist.Validate(
		validBody(t), scenelist.DefaultRules(),
	)

	require.NoError(t, err)
	assert.Equal(t, "tt1234567", sub.SceneList.IMDBID)
	assert.Equal(t, "Some Movie", sub.SceneList.Title)
	assert.Equal(t, "theatrical", sub.SceneList.Label)
	assert.Equal(
		t, float64(5400000),
		sub.SceneList.VideoDurationMS,
	)
	assert.Len(t, sub.SceneList.Scenes, 1)
	assert.Equal(
		t, "scenejsons/tt1234567.json", sub.ScenePath,
	)
}

func TestValidate_normalizesIMDBID(t *testing.T) {
	t.Parallel()

	body := strings.Replace(
		string(validBody(t)),
		`"tt1234567"`,
		`"  TT1234567 "`,
		1,
	)

	sub, err := scenelist.Validate(
		[]byte(body), scenelist.DefaultRules(),
	)

	require.NoError(t, err)
	assert.Equal(t, "tt1234567", sub.SceneList.IMDBID)
}

func TestValidate_defaultsLenientFields(t *testing.T) {
	t.Parallel()

	body := []byte(`{
		"scene_list": {
			"schema_version": 2,
			"imdb_id": "tt1234567",
			"video_duration_ms": -99,
			"scenes": [{}]
		},
		"scene_path": "scenejsons/x.json"
	}`)

	sub, err := scenelist.Validate(
		body, scenelist.DefaultRules(),
	)

	require.NoError(t, err)
	assert.Empty(t, sub.SceneList.Title)
	assert.Empty(t, sub.SceneList.Label)
	assert.Empty(t, sub.SceneList.CreatedAt)
	assert.Zero(t, sub.SceneList.VideoDurationMS)
}

func TestValidate_rejections(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		body string
		code string
	}{
		{
			name: "not json",
			body: `{not json`,
			code: scenelist.CodeBadJSON,
		},
		{
			name: "body not an object",
			body: `[1, 2, 3]`,
			code: scenelist.CodeBadRequest,
		},
		{
			name: "missing scene_list",
			body: `{"scene_path": "scenejsons/x.json"}`,
			code: scenelist.CodeBadRequest,
		},
		{
			name: "null scene_list",
			body: `{"scene_list": null,
				"scene_path": "scenejsons/x.json"}`,
			code: scenelist.CodeBadRequest,
		},
		{
			name: "scene_list not object",
			body: `{"scene_list": [1],
				"scene_path": "scenejsons/x.json"}`,
			code: scenelist.CodeBadRequest,
		},
		{
			name: "wrong schema version",
			body: `{"scene_list": {
				"schema_version": 1,
				"imdb_id": "tt1234567",
				"scenes": [{}]},
				"scene_path": "scenejsons/x.json"}`,
			code: scenelist.CodeBadSchema,
		},
		{
			name: "schema version as string",
			body: `{"scene_list": {
				"schema_version": "2",
				"imdb_id": "tt1234567",
				"scenes": [{}]},
				"scene_path": "scenejsons/x.json"}`,
			code: scenelist.CodeBadSchema,
		},
		{
			name: "imdb id too short",
			body: `{"scene_list": {
				"schema_version": 2,
				"imdb_id": "tt123456",
				"scenes": [{}]},
				"scene_path": "scenejsons/x.json"}`,
			code: scenelist.CodeBadIMDBID,
		},
		{
			name: "imdb id wrong prefix",
			body: `{"scene_list": {
				"schema_version": 2,
				"imdb_id": "nm1234567",
				"scenes": [{}]},
				"scene_path": "scenejsons/x.json"}`,
			code: scenelist.CodeBadIMDBID,
		},
		{
			name: "imdb id not a string",
			body: `{"scene_list": {
				"schema_version": 2,
				"imdb_id": 1234567,
				"scenes": [{}]},
				"scene_path": "scenejsons/x.json"}`,
			code: scenelist.CodeBadIMDBID,
		},
		{
			name: "empty scenes",
			body: `{"scene_list": {
				"schema_version": 2,
				"imdb_id": "tt1234567",
				"scenes": []},
				"scene_path": "scenejsons/x.json"}`,
			code: scenelist.CodeNoScenes,
		},
		{
			name: "missing scenes",
			body: `{"scene_list": {
				"schema_version": 2,
				"imdb_id": "tt1234567"},
				"scene_path": "scenejsons/x.json"}`,
			code: scenelist.CodeNoScenes,
		},
		{
			name: "path traversal",
			body: `{"scene_list": {
				"schema_version": 2,
				"imdb_id": "tt1234567",
				"scenes": [{}]},
				"scene_path": "scenejsons/../x.json"}`,
			code: scenelist.CodeBadScenePath,
		},
		{
			name: "path backslash",
			body: `{"scene_list": {
				"schema_version": 2,
				"imdb_id": "tt1234567",
				"scenes": [{}]},
				"scene_path": "scenejsons\\x.json"}`,
			code: scenelist.CodeBadScenePath,
		},
		{
			name: "path absolute",
			body: `{"scene_list": {
				"schema_version": 2,
				"imdb_id": "tt1234567",
				"scenes": [{}]},
				"scene_path": "/scenejsons/x.json"}`,
			code: scenelist.CodeBadScenePath,
		},
		{
			name: "path wrong prefix",
			body: `{"scene_list": {
				"schema_version": 2,
				"imdb_id": "tt1234567",
				"scenes": [{}]},
				"scene_path": "other/x.json"}`,
			code: scenelist.CodeBadScenePath,
		},
		{
			name: "path wrong extension",
			body: `{"scene_list": {
				"schema_version": 2,
				"imdb_id": "tt1234567",
				"scenes": [{}]},
				"scene_path": "scenejsons/x.yaml"}`,
			code: scenelist.CodeBadScenePath,
		},
		{
			name: "path empty",
			body: `{"scene_list": {
				"schema_version": 2,
				"imdb_id": "tt1234567",
				"scenes": [{}]},
				"scene_path": "  "}`,
			code: scenelist.CodeBadScenePath,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			sub, err := scenelist.Validate(
				[]byte(tc.body),
				scenelist.DefaultRules(),
			)

			assert.Nil(t, sub)

			var rej *scenelist.Rejection

			require.ErrorAs(t, err, &rej)
			assert.Equal(t, tc.code, rej.Code)
			assert.Equal(t, tc.code, rej.ErrorCode())
		})
	}
}

func TestValidate_tooManyScenes(t *testing.T) {
	t.Parallel()

	scenes := make([]string, 2501)
	for i := range scenes {
		scenes[i] = "{}"
	}

	body := fmt.Sprintf(`{"scene_list": {
		"schema_version": 2,
		"imdb_id": "tt1234567",
		"scenes": [%s]},
		"scene_path": "scenejsons/x.json"}`,
		strings.Join(scenes, ","),
	)

	_, err := scenelist.Validate(
		[]byte(body), scenelist.DefaultRules(),
	)

	var rej *scenelist.Rejection

	require.ErrorAs(t, err, &rej)
	assert.Equal(
		t, scenelist.CodeTooManyScenes, rej.Code,
	)
}

func TestValidate_longScenePath(t *testing.T) {
	t.Parallel()

	long := "scenejsons/" +
		strings.Repeat("a", 180) + ".json"

	body := fmt.Sprintf(`{"scene_list": {
		"schema_version": 2,
		"imdb_id": "tt1234567",
		"scenes": [{}]},
		"scene_path": %q}`, long)

	_, err := scenelist.Validate(
		[]byte(body), scenelist.DefaultRules(),
	)

	var rej *scenelist.Rejection

	require.ErrorAs(t, err, &rej)
	assert.Equal(
		t, scenelist.CodeBadScenePath, rej.Code,
	)
}

func TestValidate_payloadTooLarge(t *testing.T) {
	t.Parallel()

	// Pad with a large title so the body passes every
	// earlier rule before hitting the size cap.
	body := fmt.Sprintf(`{"scene_list": {
		"schema_version": 2,
		"imdb_id": "tt1234567",
		"title": %q,
		"scenes": [{}]},
		"scene_path": "scenejsons/x.json"}`,
		strings.Repeat("x", 900_001),
	)

	_, err := scenelist.Validate(
		[]byte(body), scenelist.DefaultRules(),
	)

	var rej *scenelist.Rejection

	require.ErrorAs(t, err, &rej)
	assert.Equal(
		t, scenelist.CodePayloadTooLarge, rej.Code,
	)
}

func TestValidate_idempotent(t *testing.T) {
	t.Parallel()

	body := validBody(t)
	rules := scenelist.DefaultRules()

	first, err1 := scenelist.Validate(body, rules)
	second, err2 := scenelist.Validate(body, rules)

	require.NoError(t, err1)
	require.NoError(t, err2)
	assert.Equal(t, first, second)

	bad := []byte(`{"scene_path": "scenejsons/x.json"}`)

	_, errA := scenelist.Validate(bad, rules)
	_, errB := scenelist.Validate(bad, rules)

	assert.Equal(t, errA, errB)
}

func TestIndexEntry(t *testing.T) {
	t.Parallel()

	sub := &scenelist.Submission{
		SceneList: scenelist.SceneList{
			IMDBID:          "tt1234567",
			Title:           "Some Movie",
			Label:           "theatrical",
			CreatedAt:       "2026-08-01",
			VideoDurationMS: 100,
			Scenes: []json.RawMessage{
				json.RawMessage(`{}`),
			},
		},
		ScenePath: "scenejsons/x.json",
	}

	entry := sub.IndexEntry()

	assert.Equal(t, scenelist.IndexEntry{
		IMDBID:          "tt1234567",
		Title:           "Some Movie",
		Path:            "scenejsons/x.json",
		CreatedAt:       "2026-08-01",
		VideoDurationMS: 100,
		Label:           "theatrical",
	}, entry)
}
