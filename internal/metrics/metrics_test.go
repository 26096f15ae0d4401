package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestCollectorRecords(t *testing.T) {
	c := NewCollector()

	c.RecordStatusChange("completed")
	c.RecordStatusChange("completed")
	c.RecordCache(true)
	c.RecordCache(false)
	c.RecordRebalance(3)
	c.RecordOrchestration(120*time.Millisecond, 2)
	c.RecordOptimization("greedy", 50*time.Millisecond, 10)
	c.SetTasksByStatus(map[string]int{"pending": 2, "completed": 1})

	require.Equal(t, 2.0, testutil.ToFloat64(c.statusChanges.WithLabelValues("completed")))
	require.Equal(t, 1.0, testutil.ToFloat64(c.cacheHits))
	require.Equal(t, 1.0, testutil.ToFloat64(c.cacheMisses))
	require.Equal(t, 1.0, testutil.ToFloat64(c.rebalances))
	require.Equal(t, 1.0, testutil.ToFloat64(c.orchestrations))
	require.Equal(t, 2.0, testutil.ToFloat64(c.scheduleWarnings))
	require.Equal(t, 2.0, testutil.ToFloat64(c.tasksByStatus.WithLabelValues("pending")))

	// SetTasksByStatus resets stale labels.
	c.SetTasksByStatus(map[string]int{"completed": 3})
	require.Equal(t, 0.0, testutil.ToFloat64(c.tasksByStatus.WithLabelValues("pending")))
	require.Equal(t, 3.0, testutil.ToFloat64(c.tasksByStatus.WithLabelValues("completed")))

	require.NotNil(t, c.Handler())
}
