package metrics

import (
	"bytes"
	"encoding/json"
	"math"
	"sync"
	"time"

	"github.com/google/uuid"
)

// StatsInfo carries product statistics. NaN statistics are encoded as
// null.
type StatsInfo struct {
	Min     *float64 `json:"min"`
	Max     *float64 `json:"max"`
	Mean    *float64 `json:"mean"`
	Valid   int      `json:"valid"`
	Invalid int      `json:"invalid"`
}

func NewStatsInfo(min, max, mean float64, valid, invalid int) *StatsInfo {
	return &StatsInfo{
		Min:     finite(min),
		Max:     finite(max),
		Mean:    finite(mean),
		Valid:   valid,
		Invalid: invalid,
	}
}

func finite(v float64) *float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}

type ProductInfo struct {
	Name     string         `json:"name"`
	Path     string         `json:"path"`
	Duration time.Duration  `json:"duration"`
	Stats    *StatsInfo     `json:"stats,omitempty"`
	Counts   map[string]int `json:"counts,omitempty"`
	Error    string         `json:"error,omitempty"`
}

type RunInfo struct {
	RunID          string         `json:"run_id"`
	StartTime      string         `json:"start_time"`
	Duration       time.Duration  `json:"duration"`
	Input          string         `json:"input"`
	OutputDir      string         `json:"output_dir"`
	SlopeAlgorithm string         `json:"slope_algorithm"`
	SlopeScheme    string         `json:"slope_scheme"`
	Width          int            `json:"width"`
	Height         int            `json:"height"`
	CellSize       float64        `json:"cell_size"`
	Products       []*ProductInfo `json:"products"`
	Error          string         `json:"error,omitempty"`
}

type MetricsCollector struct {
	Info   *RunInfo
	logger Logger
	start  time.Time
	mu     sync.Mutex
}

func NewMetricsCollector(logger Logger) *MetricsCollector {
	start := time.Now()
	return &MetricsCollector{
		Info: &RunInfo{
			RunID:     uuid.New().String(),
			StartTime: start.UTC().Format(time.RFC3339),
		},
		logger: logger,
		start:  start,
	}
}

// AddProduct records a finished product. It is safe for concurrent use.
func (m *MetricsCollector) AddProduct(p *ProductInfo) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Info.Products = append(m.Info.Products, p)
}

func (m *MetricsCollector) SetError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err != nil {
		m.Info.Error = err.Error()
	}
}

func (m *MetricsCollector) Log() {
	m.mu.Lock()
	m.Info.Duration = time.Since(m.start)
	m.mu.Unlock()

	if m.logger != nil {
		m.logger.Log(m.Info)
	}
}

func (i *RunInfo) ToJSON() (string, error) {
	buf := new(bytes.Buffer)
	enc := json.NewEncoder(buf)
	enc.SetEscapeHTML(false)
	err := enc.Encode(i)
	if err == nil {
		return buf.String(), nil
	} else {
		return "", err
	}
}
