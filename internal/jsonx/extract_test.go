package jsonx

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	ixerrors "github.com/ixado/ixado/internal/errors"
)

func TestExtractDirectObject(t *testing.T) {
	raw, err := ExtractJSONObject(`{"status":"fixed","summary":"done"}`)
	require.NoError(t, err)

	var parsed map[string]string
	require.NoError(t, json.Unmarshal(raw, &parsed))
	assert.Equal(t, "fixed", parsed["status"])
}

func TestExtractFromFencedBlock(t *testing.T) {
	text := "Here is my result:\n```json\n{\"status\":\"fixed\",\"actionsTaken\":[]}\n```\nLet me know if that helps."

	raw, err := ExtractJSONObject(text)
	require.NoError(t, err)

	var parsed map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(raw, &parsed))
	assert.Contains(t, parsed, "status")
}

func TestExtractEmbeddedInProse(t *testing.T) {
	text := `I investigated the failure. {"status":"unfixable","summary":"cannot reach registry"} Sorry about that.`

	raw, err := ExtractJSONObject(text)
	require.NoError(t, err)
	assert.JSONEq(t, `{"status":"unfixable","summary":"cannot reach registry"}`, string(raw))
}

func TestExtractHandlesBracesInsideStrings(t *testing.T) {
	text := `prefix {"summary":"ran {weird} command \"quoted\"","status":"fixed"} suffix`

	raw, err := ExtractJSONObject(text)
	require.NoError(t, err)

	var parsed map[string]string
	require.NoError(t, json.Unmarshal(raw, &parsed))
	assert.Equal(t, `ran {weird} command "quoted"`, parsed["summary"])
}

func TestExtractNoObject(t *testing.T) {
	_, err := ExtractJSONObject("no structured payload here")
	assert.ErrorIs(t, err, ixerrors.ErrRecoveryContract)

	_, err = ExtractJSONObject("{unbalanced")
	assert.ErrorIs(t, err, ixerrors.ErrRecoveryContract)
}
