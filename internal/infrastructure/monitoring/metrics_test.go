package monitoring

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

// promauto registers in the global registry, so this package creates exactly
// one collector and every test shares it.
var metrics = NewMetrics()

func TestSnapshotTracksRequests(t *testing.T) {
	metrics.RecordHTTPRequest("GET", "/extensions", "200", 10*time.Millisecond, 0, 128)
	metrics.RecordHTTPRequest("POST", "/extensions/install", "422", 20*time.Millisecond, 256, 64)

	snap := metrics.GetSnapshot()
	assert.Equal(t, int64(2), snap.TotalRequests)
	assert.Equal(t, int64(1), snap.TotalErrors)
	assert.Equal(t, int64(2), snap.RequestCount)
	assert.InDelta(t, 0.030, snap.TotalDuration, 0.001)
}

func TestSnapshotTracksGauges(t *testing.T) {
	metrics.SetExtensionCounts(3, 2)
	metrics.IncWSConnections()
	metrics.IncWSConnections()
	metrics.DecWSConnections()

	snap := metrics.GetSnapshot()
	assert.Equal(t, int64(3), snap.InstalledCount)
	assert.Equal(t, int64(1), snap.ActiveConnections)
}

func TestUptimeDuration(t *testing.T) {
	assert.GreaterOrEqual(t, metrics.UptimeDuration(), time.Duration(0))
}

func TestCountersAcceptAllOutcomes(t *testing.T) {
	metrics.RecordRecoveryScan("found")
	metrics.RecordRecoveryScan("exhausted")
	metrics.RecordValidation("archive", "valid", time.Millisecond)
	metrics.RecordPartitionDerivation("per_origin")
	metrics.RecordGrantUpdate(true)
	metrics.RecordGrantUpdate(false)
	metrics.RecordWSMessage("out", "extension.installed")
	metrics.IncInstalls()
	metrics.IncRemovals()
	metrics.SetPolicyRevision(4)
}
