package tableio

import (
	"context"
	"fmt"
	"time"

	"github.com/go-gota/gota/dataframe"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"

	"github.com/rohankatakam/neointerface/internal/errors"
)

// driverAliases maps user-facing names to registered database/sql drivers.
var driverAliases = map[string]string{
	"pgx":        "pgx",
	"postgresql": "pgx",
	"postgres":   "postgres", // lib/pq
	"pq":         "postgres",
	"sqlite":     "sqlite3",
	"sqlite3":    "sqlite3",
}

// DriverName resolves an alias such as "postgresql" or "sqlite".
func DriverName(name string) (string, error) {
	d, ok := driverAliases[name]
	if !ok {
		return "", errors.ValidationErrorf("unknown SQL driver %q (use pgx, postgres or sqlite3)", name)
	}
	return d, nil
}

// ReadSQL runs query against the database and returns the result set as
// a DataFrame. NULLs become missing values; column types are inferred.
func ReadSQL(ctx context.Context, driver, dsn, query string, args ...any) (dataframe.DataFrame, error) {
	name, err := DriverName(driver)
	if err != nil {
		return dataframe.DataFrame{}, err
	}

	db, err := sqlx.ConnectContext(ctx, name, dsn)
	if err != nil {
		return dataframe.DataFrame{}, errors.ExternalErrorf(err, "connect to %s", name)
	}
	defer db.Close()
	db.SetMaxOpenConns(1)
	db.SetConnMaxLifetime(5 * time.Minute)

	return QueryFrame(ctx, db, query, args...)
}

// QueryFrame runs query on an open connection; see ReadSQL.
func QueryFrame(ctx context.Context, db *sqlx.DB, query string, args ...any) (dataframe.DataFrame, error) {
	rows, err := db.QueryxContext(ctx, query, args...)
	if err != nil {
		return dataframe.DataFrame{}, errors.ExternalError(err, "sql query failed")
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return dataframe.DataFrame{}, errors.ExternalError(err, "read result columns")
	}

	records := [][]string{columns}
	for rows.Next() {
		row := make(map[string]any, len(columns))
		if err := rows.MapScan(row); err != nil {
			return dataframe.DataFrame{}, errors.ExternalError(err, "scan row")
		}
		cells := make([]string, len(columns))
		for i, col := range columns {
			cells[i] = cell(row[col])
		}
		records = append(records, cells)
	}
	if err := rows.Err(); err != nil {
		return dataframe.DataFrame{}, errors.ExternalError(err, "iterate rows")
	}

	if len(records) == 1 {
		return emptyFrame(columns), nil
	}
	df := dataframe.LoadRecords(records, dataframe.NaNValues(nanValues))
	if df.Err != nil {
		return df, errors.Wrap(df.Err, errors.ErrorTypeImport, errors.SeverityHigh, "build data frame from sql rows")
	}
	return df, nil
}

func cell(v any) string {
	switch t := v.(type) {
	case nil:
		return "NaN"
	case []byte:
		return string(t)
	case time.Time:
		return t.Format(time.RFC3339Nano)
	default:
		return fmt.Sprint(t)
	}
}
