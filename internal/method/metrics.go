package method

import (
	"time"

	"git.ghink.net/ghink/host-checker/internal/model"
	"github.com/prometheus/client_golang/prometheus"
)

// WriteMetrics stores the outcome of a pass in node_exporter textfile format.
func WriteMetrics(path string, results []model.ProbeResult, finished time.Time) error {
	reg := prometheus.NewRegistry()

	up := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "host_checker_host_up",
		Help: "Whether the last probe of the host succeeded.",
	}, []string{"host"})
	rtt := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "host_checker_rtt_average_milliseconds",
		Help: "Average round-trip time reported by the last probe.",
	}, []string{"host"})
	failed := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "host_checker_failed_hosts",
		Help: "Number of hosts that failed the last probe.",
	})
	lastRun := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "host_checker_last_run_timestamp_seconds",
		Help: "Unix time the last pass finished.",
	})
	reg.MustRegister(up, rtt, failed, lastRun)

	for _, r := range results {
		if r.Alive {
			up.WithLabelValues(r.Host).Set(1)
		} else {
			up.WithLabelValues(r.Host).Set(0)
			failed.Inc()
		}
		if r.AvgRTT > 0 {
			rtt.WithLabelValues(r.Host).Set(float64(r.AvgRTT) / float64(time.Millisecond))
		}
	}
	lastRun.Set(float64(finished.Unix()))

	return prometheus.WriteToTextfile(path, reg)
}
