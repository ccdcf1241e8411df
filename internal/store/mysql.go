package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/go-sql-driver/mysql"

	"github.com/iliyamo/account-allocator/internal/model"
)

// MySQL implements Store over an `accounts` table. The expected schema is
//
//	CREATE TABLE accounts (
//	    row_pos       INT UNSIGNED NOT NULL PRIMARY KEY,
//	    username      VARCHAR(190) NOT NULL,
//	    password      VARCHAR(190) NOT NULL,
//	    mail_address  VARCHAR(190) NOT NULL,
//	    mail_password VARCHAR(190) NOT NULL,
//	    state         VARCHAR(32)  NOT NULL DEFAULT 'FREE',
//	    assignee      VARCHAR(190) NOT NULL DEFAULT '',
//	    region        VARCHAR(64)  NOT NULL DEFAULT '',
//	    marker        VARCHAR(32)  NOT NULL DEFAULT 'NEUTRAL'
//	);
//
// row_pos is the stable zero-based row position; table order is row_pos
// ascending. The marker column carries the visual annotation that a
// spreadsheet backend would render as a row background color.
type MySQL struct {
	db *sql.DB
}

// Open connects to MySQL, verifies the connection and returns a MySQL
// store. The empty password form of the DSN is supported for local setups.
func Open(user, pass, host, port, name string) (*MySQL, error) {
	auth := user
	if pass != "" {
		auth = fmt.Sprintf("%s:%s", user, pass)
	}
	// parseTime=true -> DATETIME -> time.Time | loc=UTC keeps times consistent
	dsn := fmt.Sprintf("%s@tcp(%s:%s)/%s?charset=utf8mb4&parseTime=true&loc=UTC",
		auth, host, port, name)

	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, wrapErr(err)
	}

	// Pool settings
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(25)
	db.SetConnMaxLifetime(30 * time.Minute)

	// Ping with timeout
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		return nil, wrapErr(err)
	}
	return &MySQL{db: db}, nil
}

// DB exposes the underlying handle for lifecycle management in main.
func (s *MySQL) DB() *sql.DB { return s.db }

// Close releases the connection pool.
func (s *MySQL) Close() error { return s.db.Close() }

const accountColumns = `username, password, mail_address, mail_password, state, assignee, region`

// ReadAllRows returns every account row ordered by row position.
func (s *MySQL) ReadAllRows(ctx context.Context) ([]model.AccountRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+accountColumns+` FROM accounts ORDER BY row_pos`)
	if err != nil {
		return nil, wrapErr(err)
	}
	defer rows.Close()
	var out []model.AccountRecord
	for rows.Next() {
		var r model.AccountRecord
		if err := rows.Scan(&r.Username, &r.Password, &r.MailAddress, &r.MailPassword,
			&r.State, &r.Assignee, &r.Region); err != nil {
			return nil, wrapErr(err)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapErr(err)
	}
	return out, nil
}

// ReadRow returns the row at the given position or ErrRowOutOfRange.
func (s *MySQL) ReadRow(ctx context.Context, row int) (model.AccountRecord, error) {
	var r model.AccountRecord
	err := s.db.QueryRowContext(ctx,
		`SELECT `+accountColumns+` FROM accounts WHERE row_pos = ?`, row).
		Scan(&r.Username, &r.Password, &r.MailAddress, &r.MailPassword,
			&r.State, &r.Assignee, &r.Region)
	if errors.Is(err, sql.ErrNoRows) {
		return model.AccountRecord{}, ErrRowOutOfRange
	}
	if err != nil {
		return model.AccountRecord{}, wrapErr(err)
	}
	return r, nil
}

// WriteCell overwrites one cell of a row. The column name is resolved from
// a fixed set so no user input ever reaches the SQL text.
func (s *MySQL) WriteCell(ctx context.Context, row int, field model.Field, value string) error {
	var col string
	switch field {
	case model.FieldState:
		col = "state"
	case model.FieldAssignee:
		col = "assignee"
	case model.FieldRegion:
		col = "region"
	default:
		return fmt.Errorf("unwritable field %q", field)
	}
	res, err := s.db.ExecContext(ctx,
		`UPDATE accounts SET `+col+` = ? WHERE row_pos = ?`, value, row)
	if err != nil {
		return wrapErr(err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		// Either the row does not exist or the cell already held the value.
		// Distinguish with a point read so a missing row surfaces properly.
		if _, readErr := s.ReadRow(ctx, row); readErr != nil {
			return readErr
		}
	}
	return nil
}

// SetRowMarker stores the row's visual annotation in the marker column.
func (s *MySQL) SetRowMarker(ctx context.Context, row int, marker model.RowMarker) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE accounts SET marker = ? WHERE row_pos = ?`, string(marker), row)
	if err != nil {
		return wrapErr(err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		if _, readErr := s.ReadRow(ctx, row); readErr != nil {
			return readErr
		}
	}
	return nil
}
