package db

import (
	"context"
	"fmt"

	"hitokoto/internal/models"
)

// Stats is the aggregate view of the hitokoto table.
type Stats struct {
	Count     int64
	MinLength int
	MaxLength int
}

// scanQuote scans a row into a Quote struct.
func scanQuote(row rowScanner) (*models.Quote, error) {
	var q models.Quote
	if err := row.Scan(
		&q.ID,
		&q.UUID,
		&q.Text,
		&q.Type,
		&q.FromSource,
		&q.FromWho,
		&q.Length,
	); err != nil {
		return nil, err
	}
	return &q, nil
}

// Stats returns row count and length bounds in a single statement, so the
// three values always describe the same state of the table.
func (d *DB) Stats(ctx context.Context) (Stats, error) {
	query, args, err := buildStatsQuery(d.dialect)
	if err != nil {
		return Stats{}, fmt.Errorf("failed to build stats query: %w", err)
	}

	var count int64
	var minLen, maxLen *int64
	if err := d.q.QueryRow(ctx, query, args...).Scan(&count, &minLen, &maxLen); err != nil {
		return Stats{}, wrapErr("stats", err)
	}

	stats := Stats{Count: count}
	if minLen != nil {
		stats.MinLength = int(*minLen)
	}
	if maxLen != nil {
		stats.MaxLength = int(*maxLen)
	}
	return stats, nil
}

// ListIdentifiers returns the uuid of every stored quote.
func (d *DB) ListIdentifiers(ctx context.Context) ([]string, error) {
	query, args, err := buildListIdentifiersQuery(d.dialect)
	if err != nil {
		return nil, fmt.Errorf("failed to build identifier query: %w", err)
	}

	rows, err := d.q.Query(ctx, query, args...)
	if err != nil {
		return nil, wrapErr("list identifiers", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, wrapErr("list identifiers", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapErr("list identifiers", err)
	}
	return ids, nil
}

// FetchByIdentifier retrieves a quote by its uuid.
func (d *DB) FetchByIdentifier(ctx context.Context, id string) (*models.Quote, error) {
	query, args, err := buildByIdentifierQuery(d.dialect, id)
	if err != nil {
		return nil, fmt.Errorf("failed to build identifier lookup: %w", err)
	}
	q, err := scanQuote(d.q.QueryRow(ctx, query, args...))
	if err != nil {
		return nil, wrapErr("fetch by identifier", err)
	}
	return q, nil
}

// FetchByOffset retrieves the quote at position n in primary-key order.
// It is not isolated from concurrent writes: a row inserted or deleted
// meanwhile shifts every later offset.
func (d *DB) FetchByOffset(ctx context.Context, n int64) (*models.Quote, error) {
	if n < 0 {
		return nil, ErrQuoteNotFound
	}
	query, args, err := buildByOffsetQuery(d.dialect, n)
	if err != nil {
		return nil, fmt.Errorf("failed to build offset lookup: %w", err)
	}
	q, err := scanQuote(d.q.QueryRow(ctx, query, args...))
	if err != nil {
		return nil, wrapErr("fetch by offset", err)
	}
	return q, nil
}

// FetchFilteredRandom runs a statement produced by BuildRandomQuery.
// Zero matching rows is ErrQuoteNotFound.
func (d *DB) FetchFilteredRandom(ctx context.Context, statement string, args []any) (*models.Quote, error) {
	q, err := scanQuote(d.q.QueryRow(ctx, statement, args...))
	if err != nil {
		return nil, wrapErr("fetch filtered random", err)
	}
	return q, nil
}

// ScanQuotes streams every stored quote to fn in primary-key order.
// Iteration stops at the first error returned by fn.
func (d *DB) ScanQuotes(ctx context.Context, fn func(*models.Quote) error) error {
	query, args, err := buildScanQuery(d.dialect)
	if err != nil {
		return fmt.Errorf("failed to build scan query: %w", err)
	}

	rows, err := d.q.Query(ctx, query, args...)
	if err != nil {
		return wrapErr("scan quotes", err)
	}
	defer rows.Close()

	for rows.Next() {
		q, err := scanQuote(rows)
		if err != nil {
			return wrapErr("scan quotes", err)
		}
		if err := fn(q); err != nil {
			return err
		}
	}
	return wrapErr("scan quotes", rows.Err())
}

// InsertQuotes writes quotes in one transaction. Quotes with a non-zero ID keep it.
func (d *DB) InsertQuotes(ctx context.Context, quotes []models.Quote) error {
	err := d.q.WithTx(ctx, func(tx execer) error {
		for i := range quotes {
			query, args, err := buildInsertQuery(d.dialect, &quotes[i])
			if err != nil {
				return fmt.Errorf("failed to build insert: %w", err)
			}
			if err := tx.Exec(ctx, query, args...); err != nil {
				return fmt.Errorf("failed to insert quote %s: %w", quotes[i].UUID, err)
			}
		}
		return nil
	})
	return wrapErr("insert quotes", err)
}

// CopyQuotes streams every quote of src into d inside one transaction and
// returns the number of rows written. Nothing is committed on failure.
func (d *DB) CopyQuotes(ctx context.Context, src *DB) (int64, error) {
	var copied int64
	err := d.q.WithTx(ctx, func(tx execer) error {
		return src.ScanQuotes(ctx, func(q *models.Quote) error {
			query, args, err := buildInsertQuery(d.dialect, q)
			if err != nil {
				return fmt.Errorf("failed to build insert: %w", err)
			}
			if err := tx.Exec(ctx, query, args...); err != nil {
				return fmt.Errorf("failed to copy quote %s: %w", q.UUID, err)
			}
			copied++
			return nil
		})
	})
	if err != nil {
		return 0, wrapErr("copy quotes", err)
	}
	return copied, nil
}

// Exec runs a statement that returns no rows, such as a pragma.
func (d *DB) Exec(ctx context.Context, statement string) error {
	return wrapErr("exec", d.q.Exec(ctx, statement))
}
