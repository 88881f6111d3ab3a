package reporting

import (
	"context"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestCacheMetricsCountHitsAndMisses(t *testing.T) {
	require.NoError(t, SetupCacheMetrics(prometheus.NewRegistry()))

	cache := newCacheForTest(t)
	loader := func(ctx context.Context) (interface{}, error) {
		return map[string]string{"status": "ok"}, nil
	}

	var out map[string]string
	ctx := context.Background()
	require.NoError(t, cache.FetchJSON(ctx, "reporting:cachecheck:7", &out, loader))
	require.NoError(t, cache.FetchJSON(ctx, "reporting:cachecheck:7", &out, loader))

	require.Equal(t, float64(1), testutil.ToFloat64(cacheMissCounter.WithLabelValues("cachecheck")))
	require.Equal(t, float64(1), testutil.ToFloat64(cacheHitCounter.WithLabelValues("cachecheck")))
}

func TestReportLabel(t *testing.T) {
	require.Equal(t, "valuation", reportLabel("reporting:valuation:3"))
	require.Equal(t, "waste", reportLabel("reporting:waste:3:0:0"))
	require.Equal(t, "plain", reportLabel("plain"))
}
