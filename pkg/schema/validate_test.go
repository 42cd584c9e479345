package schema

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateNodes_Success(t *testing.T) {
	data := []byte(`{
		"start": {
			"id": "start",
			"content": "You enter the bookshop.",
			"requiresAI": false,
			"choices": [
				{"id": "read", "text": "Read the book", "nextNode": "next", "effects": {"curiosity": 1}}
			],
			"fallbackContent": "A bookshop."
		},
		"next": {"id": "next", "requiresAI": true, "choices": [], "fallbackContent": "Something happens."}
	}`)

	assert.NoError(t, ValidateNodes(data))
}

func TestValidateNodes_MissingFallback(t *testing.T) {
	data := []byte(`{"start": {"id": "start", "content": "x", "choices": []}}`)

	err := ValidateNodes(data)
	require.Error(t, err)

	errs := ValidationErrors(err)
	require.NotEmpty(t, errs)
	assert.Contains(t, errs[0].Error(), "start")
}

func TestValidateNodes_ChoiceWithoutTarget(t *testing.T) {
	data := []byte(`{"start": {"fallbackContent": "x", "choices": [{"text": "Go"}]}}`)

	err := ValidateNodes(data)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "start/choices/0")
}

func TestValidateNodes_NonNumericEffect(t *testing.T) {
	data := []byte(`{"start": {"fallbackContent": "x", "choices": [{"text": "Go", "nextNode": "a", "effects": {"courage": "high"}}]}}`)

	assert.Error(t, ValidateNodes(data))
}

func TestValidateNodes_Empty(t *testing.T) {
	assert.Error(t, ValidateNodes([]byte(`{}`)))
}

func TestValidateNodes_MalformedJSON(t *testing.T) {
	err := ValidateNodes([]byte(`{"start": `))
	require.Error(t, err)

	var ve *ValidationError
	assert.ErrorAs(t, err, &ve)
	assert.Nil(t, ValidationErrors(err))
}
