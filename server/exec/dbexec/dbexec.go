/******************************************************************************
 *
 *  Description :
 *    MySQL-backed Command Executor. The emshop business core lives in the
 *    database as the stored routine `emshop_execute(command, params_json)`
 *    which returns a single JSON document {success, message, data}. This
 *    adapter only marshals parameters and decodes the result.
 *
 *****************************************************************************/
package dbexec

import (
	"context"
	"encoding/json"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/jmoiron/sqlx"

	"github.com/AshIgnis/JLU-Emshop-System-sub000/server/exec"
)

const (
	defaultMaxOpenConns = 16
	defaultConnLifetime = 5 * time.Minute
)

// Adapter implements exec.Executor on top of a MySQL connection pool.
type Adapter struct {
	db *sqlx.DB
}

// Open connects to MySQL using the given DSN and verifies the connection.
func Open(dsn string) (*Adapter, error) {
	db, err := sqlx.Connect("mysql", dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(defaultMaxOpenConns)
	db.SetConnMaxLifetime(defaultConnLifetime)
	return &Adapter{db: db}, nil
}

// Execute runs one business command and decodes its JSON result.
func (a *Adapter) Execute(ctx context.Context, command string, params map[string]any) (*exec.Result, error) {
	if params == nil {
		params = map[string]any{}
	}
	encoded, err := json.Marshal(params)
	if err != nil {
		return nil, err
	}

	var raw string
	if err = a.db.GetContext(ctx, &raw, "CALL emshop_execute(?, ?)", command, string(encoded)); err != nil {
		return nil, exec.ErrUnavailable
	}

	var res exec.Result
	if err = json.Unmarshal([]byte(raw), &res); err != nil {
		return nil, err
	}
	return &res, nil
}

// Close releases the connection pool.
func (a *Adapter) Close() error {
	return a.db.Close()
}
