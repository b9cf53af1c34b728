package obs

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	buildInfoOnce sync.Once

	buildInfo = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "voltex",
			Name:      "build_info",
			Help:      "Voltex auth service build information.",
		},
		[]string{"version", "env"},
	)
)

// InitBuildInfo registers build_info once and sets it to 1 for the labels.
func InitBuildInfo(version, env string) {
	buildInfoOnce.Do(func() {
		prometheus.MustRegister(buildInfo)
	})
	buildInfo.WithLabelValues(version, env).Set(1)
}
