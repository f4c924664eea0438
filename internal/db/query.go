package db

import (
	"fmt"

	"github.com/doug-martin/goqu/v9"
	"github.com/doug-martin/goqu/v9/exp"

	"hitokoto/internal/models"
)

var (
	// Tables
	quoteTable = goqu.T("hitokoto")

	// Columns: hitokoto table
	quote_id         = goqu.C("id")
	quote_uuid       = goqu.C("uuid")
	quote_text       = goqu.C("text")
	quote_type       = goqu.C("type")
	quote_fromSource = goqu.C("from_source")
	quote_fromWho    = goqu.C("from_who")
	quote_length     = goqu.C("length")

	// quoteColumns is the standard column list for quote queries; scanQuote reads them in this order.
	quoteColumns = []any{quote_id, quote_uuid, quote_text, quote_type, quote_fromSource, quote_fromWho, quote_length}
)

// Filter narrows random selection. An empty Categories slice means no
// category filter; several categories are combined with OR.
type Filter struct {
	Categories []string
	MinLength  *int
	MaxLength  *int
}

// IsEmpty reports whether the filter places no constraint on selection.
func (f Filter) IsEmpty() bool {
	return len(f.Categories) == 0 && f.MinLength == nil && f.MaxLength == nil
}

func (d Dialect) builder() goqu.DialectWrapper {
	return goqu.Dialect(d.goquName())
}

// selectQuotes starts a prepared SELECT of all quote columns.
func (d Dialect) selectQuotes() *goqu.SelectDataset {
	return d.builder().From(quoteTable).Select(quoteColumns...).Prepared(true)
}

// BuildRandomQuery builds a single parameterized statement returning one
// random quote matching f. Every filter value is a bound parameter; only the
// number of IN placeholders depends on the filter. Category arguments keep
// the caller's order.
func BuildRandomQuery(f Filter, dialect Dialect) (string, []any, error) {
	var where []exp.Expression
	if len(f.Categories) > 0 {
		categories := make([]any, len(f.Categories))
		for i, c := range f.Categories {
			categories[i] = c
		}
		where = append(where, quote_type.In(categories...))
	}
	if f.MinLength != nil {
		where = append(where, quote_length.Gte(*f.MinLength))
	}
	if f.MaxLength != nil {
		where = append(where, quote_length.Lte(*f.MaxLength))
	}

	ds := dialect.selectQuotes()
	if len(where) > 0 {
		ds = ds.Where(where...)
	}
	query, args, err := ds.
		Order(goqu.L(dialect.RandomFunc()).Asc()).
		Limit(1).
		ToSQL()
	if err != nil {
		return "", nil, fmt.Errorf("failed to build random query: %w", err)
	}
	return query, args, nil
}

func buildStatsQuery(dialect Dialect) (string, []any, error) {
	return dialect.builder().
		From(quoteTable).
		Select(goqu.COUNT(goqu.Star()), goqu.MIN(quote_length), goqu.MAX(quote_length)).
		Prepared(true).
		ToSQL()
}

func buildListIdentifiersQuery(dialect Dialect) (string, []any, error) {
	return dialect.builder().From(quoteTable).Select(quote_uuid).Prepared(true).ToSQL()
}

func buildByIdentifierQuery(dialect Dialect, id string) (string, []any, error) {
	return dialect.selectQuotes().Where(quote_uuid.Eq(id)).Limit(1).ToSQL()
}

// buildByOffsetQuery orders by primary key so that an offset always names the same row
// while the table is unchanged.
func buildByOffsetQuery(dialect Dialect, offset int64) (string, []any, error) {
	return dialect.selectQuotes().Order(quote_id.Asc()).Limit(1).Offset(uint(offset)).ToSQL()
}

func buildScanQuery(dialect Dialect) (string, []any, error) {
	return dialect.selectQuotes().Order(quote_id.Asc()).ToSQL()
}

// buildInsertQuery keeps the stored id when q carries one.
func buildInsertQuery(dialect Dialect, q *models.Quote) (string, []any, error) {
	var fromWho any
	if q.FromWho != nil {
		fromWho = *q.FromWho
	}
	record := goqu.Record{
		"uuid":        q.UUID,
		"text":        q.Text,
		"type":        q.Type,
		"from_source": q.FromSource,
		"from_who":    fromWho,
		"length":      q.Length,
	}
	if q.ID != 0 {
		record["id"] = q.ID
	}
	return dialect.builder().Insert(quoteTable).Rows(record).Prepared(true).ToSQL()
}
