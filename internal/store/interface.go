package store

import "context"

// SystemRecord is one persisted host-resource measurement. Numeric fields
// are pointers so rows ingested without them round-trip as JSON null.
type SystemRecord struct {
	ID              int64    `json:"id,omitempty"`
	GroupKey        string   `json:"group_key"`
	CPUUsage        *float64 `json:"cpu_usage"`
	MemoryUsage     *float64 `json:"memory_usage"`
	CPUTemp         *float64 `json:"cpu_temp"`
	RecordedAt      string   `json:"recorded_at"`
	ClientTimestamp *string  `json:"client_timestamp,omitempty"`
}

// StockRecord is one persisted stock-quote measurement
type StockRecord struct {
	ID              int64    `json:"id,omitempty"`
	Symbol          string   `json:"symbol"`
	Price           *float64 `json:"price"`
	ChangePercent   *float64 `json:"change_percent"`
	RecordedAt      string   `json:"recorded_at"`
	ClientTimestamp *string  `json:"client_timestamp,omitempty"`
}

// Counts reports per-family row counts
type Counts struct {
	System int64
	Stock  int64
}

// Repository defines the append-only time-series store. Rows are never
// updated in place; the insertion id is the only ordering primitive.
type Repository interface {
	InsertSystem(ctx context.Context, rec *SystemRecord) error
	InsertStocks(ctx context.Context, recs []*StockRecord) (int, error)

	LatestSystem(ctx context.Context) (*SystemRecord, error)
	SystemHistory(ctx context.Context, limit int) ([]*SystemRecord, error)
	SystemTable(ctx context.Context, groupKey string, limit int) ([]*SystemRecord, error)
	LatestStocks(ctx context.Context) ([]*StockRecord, error)
	StockHistory(ctx context.Context, symbol string, limit int) ([]*StockRecord, error)

	Counts(ctx context.Context) (Counts, error)
	PruneBefore(ctx context.Context, cutoff string) (Counts, error)
	ClearStocks(ctx context.Context) (int64, error)

	Close() error
}
