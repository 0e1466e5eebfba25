package metrics

import (
	"fmt"
	"io"
	"math"
	"strings"
)

// WriteText writes a snapshot of r in Prometheus text exposition format.
// Metric names have dots and dashes replaced by underscores and are
// prefixed with namespace when it is not empty. Histograms are written as
// summaries with _count and _sum plus _min, _max and _mean gauges.
func WriteText(w io.Writer, r *Registry, namespace string) error {
	s := r.Snapshot()
	var b strings.Builder

	for _, name := range sortedKeys(s.Counters) {
		pn := promName(namespace, name)
		writeHeader(&b, pn, "counter", name)
		fmt.Fprintf(&b, "%s %d\n", pn, s.Counters[name])
	}
	for _, name := range sortedKeys(s.Gauges) {
		pn := promName(namespace, name)
		writeHeader(&b, pn, "gauge", name)
		fmt.Fprintf(&b, "%s %d\n", pn, s.Gauges[name])
	}
	for _, name := range sortedKeys(s.Histograms) {
		h := s.Histograms[name]
		pn := promName(namespace, name)
		writeHeader(&b, pn, "summary", name)
		fmt.Fprintf(&b, "%s_count %d\n", pn, h.Count)
		fmt.Fprintf(&b, "%s_sum %s\n", pn, formatFloat(h.Sum))
		if h.Count > 0 {
			fmt.Fprintf(&b, "%s_min %s\n", pn, formatFloat(h.Min))
			fmt.Fprintf(&b, "%s_max %s\n", pn, formatFloat(h.Max))
			fmt.Fprintf(&b, "%s_mean %s\n", pn, formatFloat(h.Mean))
		}
	}
	_, err := io.WriteString(w, b.String())
	return err
}

func promName(namespace, name string) string {
	n := strings.NewReplacer(".", "_", "-", "_").Replace(name)
	if namespace != "" {
		return namespace + "_" + n
	}
	return n
}

func writeHeader(b *strings.Builder, name, typ, help string) {
	fmt.Fprintf(b, "# HELP %s %s\n", name, help)
	fmt.Fprintf(b, "# TYPE %s %s\n", name, typ)
}

func formatFloat(v float64) string {
	switch {
	case math.IsInf(v, 1):
		return "+Inf"
	case math.IsInf(v, -1):
		return "-Inf"
	case math.IsNaN(v):
		return "NaN"
	}
	return fmt.Sprintf("%g", v)
}
