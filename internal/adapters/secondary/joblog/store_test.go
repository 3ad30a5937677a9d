package joblog

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"elt-orchestration-service/internal/core/domain"
	"elt-orchestration-service/internal/project"
)

func newStore(t *testing.T) *Store {
	t.Helper()

	proj, err := project.Init(t.TempDir(), "joblog-test")
	require.NoError(t, err)
	return &Store{project: proj}
}

func TestWriterThenLatestLog(t *testing.T) {
	store := newStore(t)

	w, err := store.Writer("tap-a-to-target-b")
	require.NoError(t, err)
	_, err = w.Write([]byte("tap running\n"))
	require.NoError(t, err)
	require.NoError(t, w.Close())

	content, err := store.LatestLog("tap-a-to-target-b")
	require.NoError(t, err)
	assert.Equal(t, "tap running\n", content)
}

func TestLatestLog_PicksMostRecent(t *testing.T) {
	store := newStore(t)

	for _, line := range []string{"first run\n", "second run\n"} {
		w, err := store.Writer("job")
		require.NoError(t, err)
		_, err = w.Write([]byte(line))
		require.NoError(t, err)
		require.NoError(t, w.Close())
	}

	content, err := store.LatestLog("job")
	require.NoError(t, err)
	assert.Equal(t, "second run\n", content)
}

func TestLatestLog_NoneYet(t *testing.T) {
	store := newStore(t)

	_, err := store.LatestLog("never-ran")
	assert.ErrorIs(t, err, domain.ErrJobLogNotFound)
}
