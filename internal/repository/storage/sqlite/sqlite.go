package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	// import the SQLite driver to register it with the database/sql package.
	_ "github.com/mattn/go-sqlite3"
)

const schema = `CREATE TABLE IF NOT EXISTS results (
	game_id       TEXT PRIMARY KEY,
	player1       TEXT NOT NULL,
	player2       TEXT NOT NULL,
	seq           INTEGER NOT NULL,
	score_player1 INTEGER NOT NULL,
	score_player2 INTEGER NOT NULL,
	winner        TEXT NOT NULL DEFAULT '',
	finished_at   INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS results_finished_at ON results (finished_at DESC);`

// Storage - archive of finished games.
type Storage struct {
	Connection *sql.DB
}

func New(path string) (*Storage, error) {
	conn, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("can't open database: %w", err)
	}

	// sqlite serialises writers anyway
	conn.SetMaxOpenConns(1)

	if err = conn.Ping(); err != nil {
		return nil, fmt.Errorf("can't connect to database: %w", err)
	}

	return &Storage{Connection: conn}, nil
}

func (that *Storage) Init(ctx context.Context) error {
	_, err := that.Connection.ExecContext(ctx, schema)
	if err != nil {
		return fmt.Errorf("can't create table: %w", err)
	}

	return nil
}

func (that *Storage) Close() error {
	return that.Connection.Close()
}
