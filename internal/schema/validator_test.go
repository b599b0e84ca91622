package schema

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateSidecar(t *testing.T) {
	valid := []string{
		`{"uri": "http://x/y.cup"}`,
		`{"uri": "http://x/y.cup", "update": "daily", "description": "Alps"}`,
		`{"update": "2024-01-31", "bbox": "5.9,47.3,15.0,55.0"}`,
		`{"bbox": [5.9, 47.3, 15.0, 55.0]}`,
		`{"bounding_box": [-10, 35, 30, 60], "extra": true}`,
	}
	for _, doc := range valid {
		res, err := ValidateJSON([]byte(doc), Sidecar)
		require.NoError(t, err)
		assert.True(t, res.Valid, "%s: %v", doc, res.Errors)
	}
}

func TestValidateSidecarInvalid(t *testing.T) {
	tests := map[string]string{
		"short bounding box": `{"bounding_box": [1, 2, 3]}`,
		"text in box":        `{"bounding_box": ["a", 2, 3, 4]}`,
		"bad update":         `{"update": "yesterday"}`,
		"uri not string":     `{"uri": 42}`,
		"bbox object":        `{"bbox": {"min": 1}}`,
		"not an object":      `[1, 2]`,
	}
	for name, doc := range tests {
		t.Run(name, func(t *testing.T) {
			res, err := ValidateJSON([]byte(doc), Sidecar)
			require.NoError(t, err)
			assert.False(t, res.Valid)
			assert.NotEmpty(t, res.Errors)
		})
	}
}

func TestValidateMalformedJSON(t *testing.T) {
	res, err := ValidateJSON([]byte(`{"uri": `), Sidecar)
	require.NoError(t, err)
	assert.False(t, res.Valid)
	assert.Equal(t, "root", res.Errors[0].Path)
}

func TestValidateShortBoundingBox(t *testing.T) {
	res, err := ValidateJSON([]byte(`{"uri": "http://x"}`), Sidecar)
	require.NoError(t, err)
	assert.True(t, res.Valid)

	res, err = ValidateJSON([]byte(`{"bounding_box": [1.0, 2.0]}`), Sidecar)
	require.NoError(t, err)
	assert.False(t, res.Valid)
	assert.Contains(t, res.Errors[0].String(), "bounding_box")
}

func TestValidateUnknownSchema(t *testing.T) {
	_, err := ValidateJSON([]byte(`{}`), "nonexistent")
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "not found in registry"))
}
