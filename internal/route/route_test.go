package route

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/gigaz-dev/walker/internal/game"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultRoute(t *testing.T) {
	r := Default()
	assert.Equal(t, []game.Waypoint{
		game.NewWaypoint(5, 100, 0),
		game.NewWaypoint(-52, 102, -18),
		game.NewWaypoint(-83, 102, -14),
	}, r.Waypoints())
	assert.Equal(t, 2*time.Second, r[1].DwellBefore)
	assert.Equal(t, 6*time.Second, r[2].DwellBefore)
}

func TestInlineReturnsCopy(t *testing.T) {
	src := Inline(Default())
	a, err := src.Load(context.Background())
	require.NoError(t, err)
	a[0].Label = "changed"

	b, err := src.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "first point", b[0].Label)
}

func TestParse(t *testing.T) {
	r, err := Parse([]byte(`
// stock route
[
  {"x": 5, "y": 100, "z": 0, "label": "spawn"},
  {"x": -52, "y": 102, "z": -18, "waitMs": 2000, "extra": "ignored"},
  // slow leg
  {"x": -83.5, "y": 102, "z": -14, "maxAttempts": 5, "attemptDelayMs": 0}
]`))
	require.NoError(t, err)
	require.Len(t, r, 3)

	assert.Equal(t, "spawn", r[0].Label)
	assert.Nil(t, r[0].Policy)
	assert.Equal(t, 2*time.Second, r[1].DwellBefore)
	assert.Equal(t, game.NewWaypoint(-83.5, 102, -14), r[2].Goal)
	require.NotNil(t, r[2].Policy)
	assert.Equal(t, game.RetryPolicy{MaxAttempts: 5, AttemptDelay: 0}, *r[2].Policy)
}

func TestParseKeepsCommentMarkersInStrings(t *testing.T) {
	r, err := Parse([]byte(`// header
[
  // first leg
  {"x": 1, "y": 2, "z": 3, "label": "a/*b*/c"},
  {"x": 4, "y": 5, "z": 6, "label": "http://example.net"}
]`))
	require.NoError(t, err)
	require.Len(t, r, 2)
	assert.Equal(t, "a/*b*/c", r[0].Label)
	assert.Equal(t, "http://example.net", r[1].Label)
}

func TestParseEmptyList(t *testing.T) {
	r, err := Parse([]byte(`[]`))
	require.NoError(t, err)
	assert.Empty(t, r)
}

func TestParseMalformed(t *testing.T) {
	cases := map[string]string{
		"empty":           ``,
		"not json":        `waypoints please`,
		"object":          `{"x": 1, "y": 2, "z": 3}`,
		"missing z":       `[{"x": 1, "y": 2}]`,
		"string coord":    `[{"x": "1", "y": 2, "z": 3}]`,
		"null coord":      `[{"x": null, "y": 2, "z": 3}]`,
		"bad policy":      `[{"x": 1, "y": 2, "z": 3, "maxAttempts": -1}]`,
		"negative wait":   `[{"x": 1, "y": 2, "z": 3, "waitMs": -5}]`,
		"trailing values": `[] []`,
		"truncated":       `[{"x": 1, "y": 2, "z": 3}`,
	}
	for name, doc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Parse([]byte(doc))
			assert.ErrorIs(t, err, ErrMalformedRoute)
		})
	}
}

func TestFileSource(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "route.json")

	_, err := FileSource{Path: path}.Load(context.Background())
	require.ErrorIs(t, err, ErrMalformedRoute, "missing file")

	data, err := Encode(Default())
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, data, 0o644))

	r, err := FileSource{Path: path}.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Default(), r)
}
