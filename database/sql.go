package database

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"regexp"

	_ "github.com/denisenkom/go-mssqldb"
	_ "github.com/go-sql-driver/mysql"
	_ "github.com/mattn/go-sqlite3"
)

var validTableName = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// SQLSink replaces the rows of one partition in a SQL table inside a single
// transaction, committed on Close.
type SQLSink struct {
	kind        string
	db          *sql.DB
	tx          *sql.Tx
	insert      *sql.Stmt
	partitionId int
	rows        int
}

// driver names and DDL per kind
var sqlDrivers = map[string]string{
	MYSQL:     "mysql",
	SQLSERVER: "sqlserver",
	SQLITE:    "sqlite3",
}

func createDistancesTable(kind, table string) string {
	if kind == SQLSERVER {
		return fmt.Sprintf(`
	  IF OBJECT_ID(N'%[1]s', N'U') IS NULL
	  CREATE TABLE %[1]s (
	  partition_id INT NOT NULL,
	  vertex NVARCHAR(255) NOT NULL,
	  distance FLOAT NOT NULL,
	  PRIMARY KEY (partition_id, vertex)
	  );`, table)
	}
	return fmt.Sprintf(`
	  CREATE TABLE IF NOT EXISTS %s (
	  partition_id INTEGER NOT NULL,
	  vertex VARCHAR(255) NOT NULL,
	  distance DOUBLE NOT NULL,
	  PRIMARY KEY (partition_id, vertex)
	  );`, table)
}

func placeholders(kind string, n int) []string {
	ps := make([]string, n)
	for i := range ps {
		if kind == SQLSERVER {
			ps[i] = fmt.Sprintf("@p%d", i+1)
		} else {
			ps[i] = "?"
		}
	}
	return ps
}

// NewSQLSink opens dsn with the driver of kind (MYSQL, SQLSERVER or
// SQLITE), creates table if needed and clears the partition's rows.
func NewSQLSink(ctx context.Context, kind string, dsn string, table string, partitionId int) (*SQLSink, error) {
	driver, ok := sqlDrivers[kind]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedOutput, kind)
	}
	if !validTableName.MatchString(table) {
		return nil, fmt.Errorf("invalid table name %q", table)
	}

	db, err := sql.Open(driver, dsn)
	if err != nil {
		log.Printf("NewSQLSink: error creating connection pool: %v\n", err)
		return nil, err
	}
	if _, err := db.ExecContext(ctx, createDistancesTable(kind, table)); err != nil {
		db.Close()
		log.Printf("NewSQLSink: failed to create table %v: %v\n", table, err)
		return nil, err
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		db.Close()
		return nil, err
	}
	p := placeholders(kind, 3)
	if _, err := tx.ExecContext(
		ctx, fmt.Sprintf("DELETE FROM %s WHERE partition_id = %s", table, p[0]), partitionId,
	); err != nil {
		tx.Rollback()
		db.Close()
		return nil, err
	}
	insert, err := tx.PrepareContext(ctx, fmt.Sprintf(
		"INSERT INTO %s (partition_id, vertex, distance) VALUES (%s, %s, %s)", table, p[0], p[1], p[2],
	))
	if err != nil {
		tx.Rollback()
		db.Close()
		return nil, err
	}
	return &SQLSink{kind: kind, db: db, tx: tx, insert: insert, partitionId: partitionId}, nil
}

func (s *SQLSink) WriteDistance(row DistanceRow) error {
	if _, err := s.insert.Exec(s.partitionId, row.Vertex, row.Distance); err != nil {
		return fmt.Errorf("insert %v: %w", row.Vertex, err)
	}
	s.rows++
	return nil
}

func (s *SQLSink) WritePair(row PairRow) error {
	return PairsUnsupported(s.kind)
}

func (s *SQLSink) Close(ctx context.Context) error {
	defer s.db.Close()
	s.insert.Close()
	if err := s.tx.Commit(); err != nil {
		log.Printf("Close: %s commit failed: %v\n", s.kind, err)
		return err
	}
	log.Printf("Close: %d rows of partition %d written to %s\n", s.rows, s.partitionId, s.kind)
	return nil
}
