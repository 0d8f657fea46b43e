package repository

import (
	"errors"

	"github.com/greenfina/greenfina/pkg/instrument"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"
)

// NewInstruments records db.* metrics. Missing rows and keys are lookups,
// not failures.
func NewInstruments(meter metric.Meter, tracer trace.Tracer) *instrument.Instruments {
	return instrument.New(meter, tracer, "db", func(err error) bool {
		return errors.Is(err, gorm.ErrRecordNotFound) || errors.Is(err, redis.Nil)
	})
}
