package store

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
)

const maxLoggedSQL = 200

type queryStartKey struct{}

type queryStart struct {
	sql string
	at  time.Time
}

// queryTracer logs failed statements at debug level and slow ones at warn.
type queryTracer struct {
	logger zerolog.Logger
	slow   time.Duration
	now    func() time.Time
}

func (t *queryTracer) clock() time.Time {
	if t.now != nil {
		return t.now()
	}
	return time.Now()
}

func (t *queryTracer) TraceQueryStart(ctx context.Context, _ *pgx.Conn, data pgx.TraceQueryStartData) context.Context {
	return context.WithValue(ctx, queryStartKey{}, queryStart{sql: data.SQL, at: t.clock()})
}

func (t *queryTracer) TraceQueryEnd(ctx context.Context, _ *pgx.Conn, data pgx.TraceQueryEndData) {
	start, ok := ctx.Value(queryStartKey{}).(queryStart)
	if !ok {
		return
	}
	elapsed := t.clock().Sub(start.at)

	switch {
	case data.Err != nil && !errors.Is(data.Err, pgx.ErrNoRows) && !errors.Is(data.Err, context.Canceled):
		t.logger.Debug().
			Err(data.Err).
			Str("sql", compactSQL(start.sql)).
			Dur("elapsed", elapsed).
			Msg("query failed")
	case t.slow > 0 && elapsed >= t.slow:
		t.logger.Warn().
			Str("sql", compactSQL(start.sql)).
			Dur("elapsed", elapsed).
			Int64("rows", data.CommandTag.RowsAffected()).
			Msg("slow query")
	}
}

// compactSQL folds whitespace and truncates long statements for log lines.
func compactSQL(sql string) string {
	out := make([]byte, 0, len(sql))
	space := false
	for i := 0; i < len(sql); i++ {
		c := sql[i]
		if c == ' ' || c == '\n' || c == '\t' || c == '\r' {
			space = len(out) > 0
			continue
		}
		if space {
			out = append(out, ' ')
			space = false
		}
		out = append(out, c)
		if len(out) >= maxLoggedSQL {
			return string(out) + "..."
		}
	}
	return string(out)
}
