package sampler

import "codeberg.org/mutker/metricshub/internal/errors"

var errFactory = errors.New()

const (
	ErrNoSensor     = errors.ErrorCode("sampler_no_temperature_sensor")
	ErrQuoteFetch   = errors.ErrorCode("sampler_quote_fetch_failed")
	ErrQuoteInvalid = errors.ErrorCode("sampler_quote_invalid")
)

var errNoSensor = errFactory.New(ErrNoSensor)
