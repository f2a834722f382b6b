// stats.go - Inferenz-Statistiken pro Modell-Instanz
//
// Zaehlt erfolgreiche Inferenzen, summiert die Dauer und haelt ein
// begrenztes Fenster der letzten Latenzen fuer P50/P95.
package model

import (
	"fmt"
	"io"
	"math"
	"sort"
	"sync"
	"time"

	"github.com/olekukonko/tablewriter"
	"gonum.org/v1/gonum/stat"
)

// maxSamples begrenzt das Latenz-Fenster fuer Perzentile
const maxSamples = 1024

// Stats ist ein Schnappschuss der Inferenz-Statistiken
type Stats struct {
	ModelID string `json:"model_id"`
	Backend string `json:"backend"`
	Device  string `json:"device"`
	DType   string `json:"dtype"`

	Inferences int     `json:"num_inferences"`
	TotalMs    float64 `json:"total_inference_time_ms"`
	AverageMs  float64 `json:"average_latency_ms"`
	P50Ms      float64 `json:"p50_latency_ms"`
	P95Ms      float64 `json:"p95_latency_ms"`
}

// Render schreibt die Statistiken als zweispaltige Tabelle
func (s Stats) Render(w io.Writer) {
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"Attribute", "Value"})
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAutoWrapText(false)

	table.AppendBulk([][]string{
		{"Model ID", s.ModelID},
		{"Backend", s.Backend},
		{"Device", s.Device},
		{"Dtype", s.DType},
		{"Number of Inferences", fmt.Sprint(s.Inferences)},
		{"Total Inference Time (ms)", formatMs(s.TotalMs)},
		{"Average Latency (ms)", formatMs(s.AverageMs)},
		{"P50 Latency (ms)", formatMs(s.P50Ms)},
		{"P95 Latency (ms)", formatMs(s.P95Ms)},
	})

	table.Render()
}

func formatMs(v float64) string {
	return fmt.Sprintf("%.4f", v)
}

// tracker sammelt Latenzen thread-sicher
type tracker struct {
	mu      sync.Mutex
	count   int
	total   time.Duration
	samples []float64
	next    int
}

func newTracker() *tracker {
	return &tracker{samples: make([]float64, 0, 64)}
}

func (t *tracker) observe(d time.Duration) {
	if t == nil {
		return
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	t.count++
	t.total += d

	ms := float64(d) / float64(time.Millisecond)
	if len(t.samples) < maxSamples {
		t.samples = append(t.samples, ms)
		return
	}
	t.samples[t.next] = ms
	t.next = (t.next + 1) % maxSamples
}

func (t *tracker) snapshot() Stats {
	if t == nil {
		return Stats{}
	}

	t.mu.Lock()
	count := t.count
	total := t.total
	sorted := make([]float64, len(t.samples))
	copy(sorted, t.samples)
	t.mu.Unlock()

	s := Stats{
		Inferences: count,
		TotalMs:    float64(total) / float64(time.Millisecond),
	}
	if count == 0 {
		return s
	}

	s.AverageMs = s.TotalMs / float64(count)

	sort.Float64s(sorted)
	s.P50Ms = quantile(0.50, sorted)
	s.P95Ms = quantile(0.95, sorted)
	return s
}

func quantile(p float64, sorted []float64) float64 {
	if len(sorted) == 0 {
		return 0
	}
	q := stat.Quantile(p, stat.Empirical, sorted, nil)
	if math.IsNaN(q) {
		return 0
	}
	return q
}
