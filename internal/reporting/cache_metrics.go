package reporting

import (
	"strings"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	cacheMetricsMu   sync.Mutex
	cacheMetricsDone bool
	cacheMetricsErr  error

	cacheHitCounter  *prometheus.CounterVec
	cacheMissCounter *prometheus.CounterVec
)

// SetupCacheMetrics registers hit and miss counters for the report cache.
// Registration happens once; later calls return the first result.
func SetupCacheMetrics(reg prometheus.Registerer) error {
	cacheMetricsMu.Lock()
	defer cacheMetricsMu.Unlock()
	if cacheMetricsDone {
		return cacheMetricsErr
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	hits := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "mealgrid_rms_report_cache_hits_total",
		Help: "Number of report cache hits.",
	}, []string{"report"})
	misses := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "mealgrid_rms_report_cache_miss_total",
		Help: "Number of report cache misses.",
	}, []string{"report"})
	for _, collector := range []prometheus.Collector{hits, misses} {
		if err := reg.Register(collector); err != nil {
			cacheMetricsErr = err
			cacheMetricsDone = true
			return cacheMetricsErr
		}
	}
	cacheHitCounter = hits
	cacheMissCounter = misses
	cacheMetricsDone = true
	return nil
}

func recordCacheHit(key string) {
	if cacheHitCounter == nil {
		return
	}
	cacheHitCounter.WithLabelValues(reportLabel(key)).Inc()
}

func recordCacheMiss(key string) {
	if cacheMissCounter == nil {
		return
	}
	cacheMissCounter.WithLabelValues(reportLabel(key)).Inc()
}

// reportLabel keeps the label space small: cache keys look like
// "reporting:<report>:<outlet>..." and only the report segment is kept.
func reportLabel(key string) string {
	parts := strings.SplitN(key, ":", 3)
	if len(parts) > 1 {
		return parts[1]
	}
	return key
}
