//nolint:whitespace,lll // ok for tests
package store

import (
	"context"
	"path/filepath"
	"testing"

	"gotest.tools/v3/assert"
)

func TestVersionStamp(t *testing.T) {
	st, err := Create(filepath.Join(t.TempDir(), "aggregates.db"))
	assert.NilError(t, err)
	defer st.Close()

	version, err := st.Version(context.Background())
	assert.NilError(t, err)
	assert.Equal(t, SchemaVersion, version)
}

func TestSchemaVersionGate(t *testing.T) {
	path := filepath.Join(t.TempDir(), "aggregates.db")

	st, err := Create(path)
	assert.NilError(t, err)
	_, err = st.db.Exec(`UPDATE schema_info SET version = 'v99.0.0' WHERE id = 1`)
	assert.NilError(t, err)
	assert.NilError(t, st.Close())

	_, err = Open(path)
	assert.ErrorIs(t, err, ErrSchemaVersion)
}

func TestMajorMatchAccepted(t *testing.T) {
	path := filepath.Join(t.TempDir(), "aggregates.db")

	st, err := Create(path)
	assert.NilError(t, err)
	// a minor bump within the same major must still open
	_, err = st.db.Exec(`UPDATE schema_info SET version = 'v1.9.0' WHERE id = 1`)
	assert.NilError(t, err)
	assert.NilError(t, st.Close())

	st, err = Open(path)
	assert.NilError(t, err)
	version, err := st.Version(context.Background())
	assert.NilError(t, err)
	assert.Equal(t, "v1.9.0", version)
	assert.NilError(t, st.Close())
}
