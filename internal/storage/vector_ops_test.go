package storage

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVectorRoundTrip(t *testing.T) {
	vec := []float32{0, 1, -1, 0.5, float32(math.Pi), math.MaxFloat32, math.SmallestNonzeroFloat32}
	got, err := deserializeVector(serializeVector(vec))
	require.NoError(t, err)
	assert.Equal(t, vec, got)
}

func TestSerializeVectorEmpty(t *testing.T) {
	assert.Empty(t, serializeVector(nil))

	got, err := deserializeVector(nil)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestDeserializeVectorBadLength(t *testing.T) {
	_, err := deserializeVector([]byte{1, 2, 3})
	assert.Error(t, err)
}

func TestMigrationsIdempotent(t *testing.T) {
	store, err := NewSQLiteStore(":memory:")
	require.NoError(t, err)
	defer func() { _ = store.Close() }()

	// Rerunning against an up-to-date schema is a no-op
	require.NoError(t, ApplyMigrations(t.Context(), store.db))

	var version string
	err = store.db.QueryRow("SELECT version FROM schema_version ORDER BY applied_at DESC LIMIT 1").Scan(&version)
	require.NoError(t, err)
	assert.Equal(t, CurrentSchemaVersion, version)
}
