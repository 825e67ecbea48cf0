package oauth

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSoftwareID(t *testing.T) {
	id := SoftwareID()

	assert.Equal(t, "43555053-3032-8035-8000-000000000000", id)
	assert.Equal(t, id, SoftwareID(), "software_id must be stable")

	parsed, err := uuid.Parse(id)
	require.NoError(t, err)
	assert.Equal(t, uuid.Version(8), parsed.Version())
	assert.Equal(t, uuid.RFC4122, parsed.Variant())
	assert.Equal(t, []byte("CUPS02"), parsed[:6])
}
