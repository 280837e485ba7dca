//nolint:thelper,whitespace,lll,funlen,gocritic,dupl // ok for tests
package dataset

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/raceiq/raceiq-console-go/testsupport/basedata"
)

func TestWatcher_invalidatesOnSourceChange(t *testing.T) {
	catalog, err := basedata.WriteRaceFiles(t.TempDir())
	require.NoError(t, err)
	c := NewCache(NewLoader(catalog))

	first, err := c.Get(context.Background(), basedata.RaceID)
	require.NoError(t, err)

	w, err := NewWatcher(c, catalog)
	require.NoError(t, err)
	require.NoError(t, w.Start(context.Background()))
	defer w.Close()

	require.NoError(t, basedata.WriteWorkbook(catalog.Races[0].Workbook))

	// the watch goroutine picks up the change and drops the entry
	assert.Eventually(t, func() bool {
		got, err := c.Get(context.Background(), basedata.RaceID)
		return err == nil && got != first
	}, 5*time.Second, 50*time.Millisecond)
}

func TestWatcher_ignoresUnrelatedFiles(t *testing.T) {
	dir := t.TempDir()
	catalog, err := basedata.WriteRaceFiles(dir)
	require.NoError(t, err)
	c := NewCache(NewLoader(catalog))

	first, err := c.Get(context.Background(), basedata.RaceID)
	require.NoError(t, err)

	w, err := NewWatcher(c, catalog)
	require.NoError(t, err)
	require.NoError(t, w.Start(context.Background()))
	defer w.Close()

	require.NoError(t, basedata.WriteTelemetryCSV(dir+"/unrelated.csv"))
	time.Sleep(200 * time.Millisecond)

	second, err := c.Get(context.Background(), basedata.RaceID)
	require.NoError(t, err)
	assert.Same(t, first, second)
}
