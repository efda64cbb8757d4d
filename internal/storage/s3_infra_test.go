package storage

import (
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestS3Archive_BuildPublicURL_EscapesKey(t *testing.T) {
	s := &s3Archive{host: "https://s3.example.com", bucket: "audio"}

	got := s.buildPublicURL("audio/2025-01-01/запись 1.wav")

	assert.Equal(t,
		"https://s3.example.com/audio/audio/2025-01-01/%D0%B7%D0%B0%D0%BF%D0%B8%D1%81%D1%8C%201.wav",
		got)

	u, err := url.Parse(got)
	require.NoError(t, err)
	assert.Equal(t, "/audio/audio/2025-01-01/запись 1.wav", u.Path)
}

func TestObjectMetadata_OriginalNameIsASCII(t *testing.T) {
	at := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	meta := objectMetadata(&Asset{OriginalName: "Запись встречи #1.wav"}, at)

	assert.Equal(t, "2025-01-01T12:00:00Z", meta["uploaded-at"])

	name := meta["original-name"]
	for _, r := range name {
		assert.Less(t, r, rune(128), "metadata value must be ASCII: %q", name)
	}

	decoded, err := url.QueryUnescape(name)
	require.NoError(t, err)
	assert.Equal(t, "Запись встречи #1.wav", decoded)
}
