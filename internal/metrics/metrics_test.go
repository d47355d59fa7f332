package metrics

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecorder(t *testing.T) {
	r := New()
	r.ObserveComparison(true)
	r.ObserveComparison(false)
	r.ObserveCountMismatch()
	r.SetSymbols(10, 3)
	r.ObserveEquivalence(3, false)

	assert.Equal(t, 2.0, testutil.ToFloat64(r.regionsCompared))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.regionMismatches))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.countMismatches))
	assert.Equal(t, 10.0, testutil.ToFloat64(r.symbols))
	assert.Equal(t, 3.0, testutil.ToFloat64(r.divergentSymbols))
	assert.Equal(t, 3.0, testutil.ToFloat64(r.binariesChecked))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.equivalenceFailures))

	families, err := r.Gatherer().Gather()
	require.NoError(t, err)
	assert.Len(t, families, 7)
}

func TestNilRecorder(t *testing.T) {
	var r *Recorder
	r.ObserveComparison(false)
	r.ObserveCountMismatch()
	r.SetSymbols(1, 1)
	r.ObserveEquivalence(1, true)
	assert.NoError(t, r.WriteTextfile(filepath.Join(t.TempDir(), "never")))
}

func TestWriteTextfile(t *testing.T) {
	r := New()
	r.ObserveComparison(true)

	path := filepath.Join(t.TempDir(), "renewal.prom")
	require.NoError(t, r.WriteTextfile(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "renewal_regions_compared_total 1")
}
