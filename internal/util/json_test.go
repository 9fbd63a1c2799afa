package util

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStripCodeFences(t *testing.T) {
	assert.Equal(t, `{"a": 1}`, StripCodeFences("```json\n{\"a\": 1}\n```"))
	assert.Equal(t, `{"a": 1}`, StripCodeFences("```\n{\"a\": 1}\n```"))
	assert.Equal(t, `{"a": 1}`, StripCodeFences(`{"a": 1}`))
	assert.Equal(t, "", StripCodeFences("``````"))
}

func TestExtractJSONObject(t *testing.T) {
	assert.Equal(t, `{"a": 1}`, ExtractJSONObject(`Here you go: {"a": 1} hope that helps`))
	assert.Equal(t, `{"a": {"b": 2}}`, ExtractJSONObject(`{"a": {"b": 2}}`))
	assert.Equal(t, `{"a": "br}ace in string"}`, ExtractJSONObject(`{"a": "br}ace in string"}`))
	assert.Equal(t, `{"a": "esc\"aped"}`, ExtractJSONObject(`{"a": "esc\"aped"} trailing`))

	// No object present: input comes back unchanged.
	assert.Equal(t, "no json here", ExtractJSONObject("no json here"))
	// Unbalanced object: input comes back unchanged rather than truncated.
	assert.Equal(t, `{"a": 1`, ExtractJSONObject(`{"a": 1`))
}
