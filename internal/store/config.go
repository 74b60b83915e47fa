package store

const (
	defaultDirPerm = 0o755

	// TimeLayout is the storage format for recorded_at and pruning cutoffs
	TimeLayout = "2006-01-02 15:04:05"

	// UnknownGroupKey is stored when a resource payload carries no identity
	UnknownGroupKey = "unknown"

	DefaultSystemHistoryLimit = 100
	DefaultStockHistoryLimit  = 30
	DefaultTableLimit         = 100
)

type Config struct {
	DBPath string
}

func (c Config) Validate() error {
	if c.DBPath == "" {
		return errFactory.New(ErrInvalidDBPath)
	}
	return nil
}
