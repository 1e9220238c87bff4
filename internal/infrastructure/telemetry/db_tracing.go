package telemetry

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/uptrace/opentelemetry-go-extra/otelgorm"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// DBTracingConfig holds database span settings.
type DBTracingConfig struct {
	Enabled         bool
	LogFullSQL      bool // include bound values; never in production
	SlowQueryThresh time.Duration
	DBName          string
}

type dbContextKey string

const queryStartKey dbContextKey = "db_query_start"

// gormHook registers a before/after pair on every GORM processor. The before
// hook stamps the statement start time; the after hook receives the elapsed
// duration and the SQL verb of the processor.
func gormHook(db *gorm.DB, name string, after func(tx *gorm.DB, verb string, elapsed time.Duration)) error {
	before := func(tx *gorm.DB) {
		ctx := tx.Statement.Context
		if ctx == nil {
			ctx = context.Background()
		}
		tx.Statement.Context = context.WithValue(ctx, queryStartKey, time.Now())
	}
	wrap := func(verb string) func(*gorm.DB) {
		return func(tx *gorm.DB) {
			var elapsed time.Duration
			if tx.Statement.Context != nil {
				if start, ok := tx.Statement.Context.Value(queryStartKey).(time.Time); ok {
					elapsed = time.Since(start)
				}
			}
			op := verb
			if op == "" {
				op = detectOperationType(tx.Statement.SQL.String())
			}
			after(tx, op, elapsed)
		}
	}

	cb := db.Callback()
	steps := []struct {
		register func(string, func(*gorm.DB)) error
		after    func(string, func(*gorm.DB)) error
		verb     string
	}{
		{cb.Create().Before("gorm:create").Register, cb.Create().After("gorm:create").Register, "INSERT"},
		{cb.Query().Before("gorm:query").Register, cb.Query().After("gorm:query").Register, "SELECT"},
		{cb.Update().Before("gorm:update").Register, cb.Update().After("gorm:update").Register, "UPDATE"},
		{cb.Delete().Before("gorm:delete").Register, cb.Delete().After("gorm:delete").Register, "DELETE"},
		{cb.Row().Before("gorm:row").Register, cb.Row().After("gorm:row").Register, ""},
		{cb.Raw().Before("gorm:raw").Register, cb.Raw().After("gorm:raw").Register, ""},
	}
	for i, s := range steps {
		if err := s.register(fmt.Sprintf("%s:before_%d", name, i), before); err != nil {
			return err
		}
		if err := s.after(fmt.Sprintf("%s:after_%d", name, i), wrap(s.verb)); err != nil {
			return err
		}
	}
	return nil
}

// RegisterDBTracing installs otelgorm plus a hook that marks slow statements
// and tags the affected table on the active span.
func RegisterDBTracing(db *gorm.DB, cfg DBTracingConfig, logger *zap.Logger) error {
	if !cfg.Enabled {
		return nil
	}
	if cfg.SlowQueryThresh <= 0 {
		cfg.SlowQueryThresh = 200 * time.Millisecond
	}
	if cfg.DBName == "" {
		cfg.DBName = "auction"
	}

	// Registered first so the after hook runs while the otelgorm span is
	// still recording.
	if err := gormHook(db, "auction_tracing", func(tx *gorm.DB, _ string, elapsed time.Duration) {
		annotateSpan(tx, elapsed, cfg.SlowQueryThresh)
	}); err != nil {
		return fmt.Errorf("register slow query hook: %w", err)
	}

	opts := []otelgorm.Option{otelgorm.WithDBName(cfg.DBName)}
	if !cfg.LogFullSQL {
		opts = append(opts, otelgorm.WithoutQueryVariables())
	}
	if err := db.Use(otelgorm.NewPlugin(opts...)); err != nil {
		return fmt.Errorf("register otelgorm: %w", err)
	}

	logger.Info("Database tracing enabled",
		zap.Bool("log_full_sql", cfg.LogFullSQL),
		zap.Duration("slow_query_threshold", cfg.SlowQueryThresh),
	)
	return nil
}

func annotateSpan(tx *gorm.DB, elapsed, threshold time.Duration) {
	if tx.Statement.Context == nil {
		return
	}
	span := trace.SpanFromContext(tx.Statement.Context)
	if !span.IsRecording() {
		return
	}

	span.SetAttributes(attribute.Int64("db.rows_affected", tx.Statement.RowsAffected))
	if tx.Statement.Table != "" {
		span.SetAttributes(attribute.String("db.sql.table", tx.Statement.Table))
	}
	if tx.Error != nil && !errors.Is(tx.Error, gorm.ErrRecordNotFound) {
		span.RecordError(tx.Error)
		span.SetStatus(codes.Error, tx.Error.Error())
	}
	if elapsed > threshold {
		span.SetAttributes(
			attribute.Bool("db.slow_query", true),
			attribute.Int64("db.query_duration_ms", elapsed.Milliseconds()),
		)
	}
}
