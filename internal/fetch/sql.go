package fetch

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"

	"github.com/koustreak/datri-datasets/internal/database"
	"github.com/koustreak/datri-datasets/internal/errs"
	"github.com/koustreak/datri-datasets/internal/logger"
)

// SQLFetcher reads a whole table with one SELECT and encodes the rows as a
// JSON array of objects, so SQL-backed datasets share the JSON decoder.
//
// Locators have the form sql://table?order=id&limit=1000&offset=0. Only
// "order" (ascending, repeatable), "limit" and "offset" are understood; any
// other key, or a query that does not parse, is InvalidInput.
type SQLFetcher struct {
	db      database.DB
	dialect database.Dialect
	log     *logger.Logger
}

// NewSQLFetcher returns a fetcher over db using dialect for query building.
func NewSQLFetcher(db database.DB, dialect database.Dialect, log *logger.Logger) *SQLFetcher {
	return &SQLFetcher{db: db, dialect: dialect, log: logger.OrNop(log)}
}

// Fetch implements Fetcher.
func (f *SQLFetcher) Fetch(ctx context.Context, loc Locator) (*Payload, error) {
	q, args, err := f.buildQuery(loc)
	if err != nil {
		return nil, err
	}

	rows, err := f.db.Query(ctx, q, args...)
	if err != nil {
		return nil, mapError(err, fmt.Sprintf("query %s", loc))
	}
	records, _, err := database.ScanRows(rows)
	if err != nil {
		return nil, mapError(err, fmt.Sprintf("scan %s", loc))
	}

	data, err := json.Marshal(records)
	if err != nil {
		return nil, errs.Wrap(errs.ErrKindQueryFailed, fmt.Sprintf("encode rows of %s", loc), err)
	}

	f.log.DebugWith("fetched", map[string]any{"locator": loc.String(), "rows": len(records)})

	return &Payload{Encoding: EncodingJSON, Data: data, Source: loc.String()}, nil
}

func (f *SQLFetcher) buildQuery(loc Locator) (string, []any, error) {
	u, err := loc.URL()
	if err != nil {
		return "", nil, err
	}
	if u.Host == "" {
		return "", nil, errs.New(errs.ErrKindInvalidInput, fmt.Sprintf("locator %q names no table", loc))
	}

	params, err := url.ParseQuery(u.RawQuery)
	if err != nil {
		return "", nil, errs.Wrap(errs.ErrKindInvalidInput, fmt.Sprintf("locator %q: bad query", loc), err)
	}
	for key := range params {
		switch key {
		case "order", "limit", "offset":
		default:
			return "", nil, errs.New(errs.ErrKindInvalidInput, fmt.Sprintf("locator %q: unknown parameter %q", loc, key))
		}
	}

	b := database.Select(u.Host, f.dialect)
	for _, col := range params["order"] {
		b.OrderBy(col, database.Asc)
	}
	if v := params.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return "", nil, errs.Wrap(errs.ErrKindInvalidInput, fmt.Sprintf("locator %q: bad limit", loc), err)
		}
		b.Limit(n)
	}
	if v := params.Get("offset"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return "", nil, errs.Wrap(errs.ErrKindInvalidInput, fmt.Sprintf("locator %q: bad offset", loc), err)
		}
		b.Offset(n)
	}
	return b.Build()
}
