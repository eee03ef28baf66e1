package temporal

import (
	"github.com/rs/zerolog"
	"go.temporal.io/sdk/log"
)

// TemporalAdapter routes SDK logs through zerolog.
type TemporalAdapter struct {
	logger zerolog.Logger
}

func NewTemporalAdapter(logger zerolog.Logger) log.Logger {
	return &TemporalAdapter{
		logger: logger.With().Str("component", "temporal-sdk").Logger(),
	}
}

// pairs walks keyvals as key/value pairs, tolerating odd lengths and non-string keys.
func pairs(keyvals []interface{}, fn func(key string, val interface{})) {
	if len(keyvals)%2 != 0 {
		keyvals = append(keyvals, "MISSING_VALUE")
	}
	for i := 0; i < len(keyvals); i += 2 {
		key, ok := keyvals[i].(string)
		if !ok {
			key = "INVALID_KEY"
		}
		fn(key, keyvals[i+1])
	}
}

func (a *TemporalAdapter) event(e *zerolog.Event, keyvals []interface{}) *zerolog.Event {
	pairs(keyvals, func(key string, val interface{}) {
		if err, ok := val.(error); ok {
			e = e.AnErr(key, err)
			return
		}
		e = e.Interface(key, val)
	})
	return e
}

func (a *TemporalAdapter) Debug(msg string, keyvals ...interface{}) {
	a.event(a.logger.Debug(), keyvals).Msg(msg)
}

func (a *TemporalAdapter) Info(msg string, keyvals ...interface{}) {
	a.event(a.logger.Info(), keyvals).Msg(msg)
}

func (a *TemporalAdapter) Warn(msg string, keyvals ...interface{}) {
	a.event(a.logger.Warn(), keyvals).Msg(msg)
}

func (a *TemporalAdapter) Error(msg string, keyvals ...interface{}) {
	a.event(a.logger.Error(), keyvals).Msg(msg)
}

// With implements log.WithLogger so workflow and activity loggers keep their tags.
func (a *TemporalAdapter) With(keyvals ...interface{}) log.Logger {
	ctx := a.logger.With()
	pairs(keyvals, func(key string, val interface{}) {
		if err, ok := val.(error); ok {
			ctx = ctx.AnErr(key, err)
			return
		}
		ctx = ctx.Interface(key, val)
	})
	return &TemporalAdapter{logger: ctx.Logger()}
}
