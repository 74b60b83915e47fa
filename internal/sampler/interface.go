package sampler

import "context"

// SystemSample is one host-resource measurement, tagged with the cached
// host identity
type SystemSample struct {
	GroupKey    string  `json:"group_key"`
	CPUUsage    float64 `json:"cpu_usage"`
	MemoryUsage float64 `json:"memory_usage"`
	CPUTemp     float64 `json:"cpu_temp"`
	Timestamp   string  `json:"timestamp"`
}

// StockQuote is one fetched quote for a configured symbol
type StockQuote struct {
	Symbol        string  `json:"symbol"`
	Price         float64 `json:"price"`
	ChangePercent float64 `json:"change_percent"`
	Timestamp     string  `json:"timestamp"`
}

// Source produces one payload per collector tick. ok is false when no
// data is available this tick; sources never surface probe or provider
// failures to the caller.
type Source interface {
	Name() string
	Collect(ctx context.Context) (payload any, ok bool)
}
