package model

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeMetadataEmptyBagIsValidJSON(t *testing.T) {
	for _, metadata := range []map[string]string{nil, {}} {
		encoded := EncodeMetadata(metadata)
		assert.Equal(t, "{}", encoded)
		assert.True(t, json.Valid([]byte(encoded)))
	}
}

func TestEncodeMetadataRoundTrip(t *testing.T) {
	file := UploadedFile{Metadata: EncodeMetadata(map[string]string{"foo": "bar"})}

	require.True(t, json.Valid([]byte(file.Metadata)))
	assert.Equal(t, map[string]string{"foo": "bar"}, file.MetadataMap())
}

func TestMetadataMapEmptyObjectDecodesEmpty(t *testing.T) {
	file := UploadedFile{Metadata: "{}"}
	assert.Empty(t, file.MetadataMap())
}
