package report

import (
	"io"
	"sort"

	dto "github.com/prometheus/client_model/go"
	"github.com/prometheus/common/expfmt"
	"google.golang.org/protobuf/proto"

	"github.com/banshee-data/cutscan/internal/cutscan"
)

// MetricsFile is the Prometheus textfile-collector output of a run.
const MetricsFile = "cutscan.prom"

func gauge(name, help string, metrics ...*dto.Metric) *dto.MetricFamily {
	return &dto.MetricFamily{
		Name:   proto.String(name),
		Help:   proto.String(help),
		Type:   dto.MetricType_GAUGE.Enum(),
		Metric: metrics,
	}
}

func gaugeValue(v float64, labels ...string) *dto.Metric {
	m := &dto.Metric{Gauge: &dto.Gauge{Value: proto.Float64(v)}}
	for i := 0; i+1 < len(labels); i += 2 {
		m.Label = append(m.Label, &dto.LabelPair{
			Name:  proto.String(labels[i]),
			Value: proto.String(labels[i+1]),
		})
	}
	return m
}

// MetricFamilies describes the optimum of res as gauges labelled by signal.
func MetricFamilies(signal string, res *cutscan.Result) []*dto.MetricFamily {
	o := res.Optimal
	samples := []*dto.Metric{
		gaugeValue(float64(o.SignalTotal), "sample", signal, "role", "signal"),
	}
	bgs := append([]cutscan.SampleCount(nil), o.Backgrounds...)
	sort.Slice(bgs, func(i, j int) bool { return bgs[i].Label < bgs[j].Label })
	for _, bg := range bgs {
		samples = append(samples, gaugeValue(float64(bg.Total), "sample", bg.Label, "role", "background"))
	}

	return []*dto.MetricFamily{
		gauge("cutscan_grid_cuts", "Number of thresholds evaluated.",
			gaugeValue(float64(res.Grid.NCuts), "signal", signal)),
		gauge("cutscan_optimal_threshold", "Score threshold with the highest significance.",
			gaugeValue(o.Threshold, "signal", signal)),
		gauge("cutscan_max_significance", "S/sqrt(S+B) at the optimal threshold.",
			gaugeValue(o.Significance, "signal", signal)),
		gauge("cutscan_signal_efficiency", "Fraction of signal events passing the optimal cut.",
			gaugeValue(o.SignalEfficiency, "signal", signal)),
		gauge("cutscan_background_efficiency", "Fraction of background events passing the optimal cut.",
			gaugeValue(o.BackgroundEfficiency, "signal", signal)),
		gauge("cutscan_sample_events", "Events per input sample.", samples...),
	}
}

// WriteMetrics writes the families of MetricFamilies in the Prometheus text
// exposition format.
func WriteMetrics(out io.Writer, signal string, res *cutscan.Result) error {
	for _, mf := range MetricFamilies(signal, res) {
		if _, err := expfmt.MetricFamilyToText(out, mf); err != nil {
			return err
		}
	}
	return nil
}
