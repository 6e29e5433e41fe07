package decode

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type samplePayload struct {
	MessageID string `json:"messageId"`
	Count     int    `json:"count"`
	Nested    struct {
		ID string `json:"_id"`
	} `json:"data"`
}

func TestMapDecodesThroughJSONTags(t *testing.T) {
	p, err := Map[samplePayload](map[string]any{
		"messageId": "m1",
		"count":     float64(3), // JSON numbers arrive as float64
		"data":      map[string]any{"_id": "u1"},
	})
	require.NoError(t, err)
	assert.Equal(t, "m1", p.MessageID)
	assert.Equal(t, 3, p.Count)
	assert.Equal(t, "u1", p.Nested.ID)
}

func TestMapWeakTyping(t *testing.T) {
	p, err := Map[samplePayload](map[string]any{"count": "7"})
	require.NoError(t, err)
	assert.Equal(t, 7, p.Count)
}

func TestMapMissingFieldsZeroValued(t *testing.T) {
	p, err := Map[samplePayload](map[string]any{})
	require.NoError(t, err)
	assert.Equal(t, "", p.MessageID)
	assert.Equal(t, 0, p.Count)
}

func TestMapNilInput(t *testing.T) {
	_, err := Map[samplePayload](nil)
	assert.Error(t, err)
}

func TestMapStrictTypingRejectsMismatch(t *testing.T) {
	_, err := Map[samplePayload](map[string]any{"count": "7"}, Options{WeaklyTypedInput: false})
	assert.Error(t, err)
}
