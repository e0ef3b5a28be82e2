package database

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"strings"
	"time"

	"project/graph"
)

// DEFAULT_EDGE_TABLE holds edge lists uploaded to a SQL database.
const DEFAULT_EDGE_TABLE = "edges"

const maxParamsSQL = 2099

func createEdgesTable(kind, table string) string {
	if kind == SQLSERVER {
		return fmt.Sprintf(`
	  IF OBJECT_ID(N'%[1]s', N'U') IS NULL
	  CREATE TABLE %[1]s (
	  src NVARCHAR(255) NOT NULL,
	  dst NVARCHAR(255) NOT NULL,
	  weight FLOAT NOT NULL
	  );`, table)
	}
	return fmt.Sprintf(`
	  CREATE TABLE IF NOT EXISTS %s (
	  src VARCHAR(255) NOT NULL,
	  dst VARCHAR(255) NOT NULL,
	  weight DOUBLE NOT NULL
	  );`, table)
}

func openSQL(kind, dsn, table string) (*sql.DB, error) {
	driver, ok := sqlDrivers[kind]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedOutput, kind)
	}
	if !validTableName.MatchString(table) {
		return nil, fmt.Errorf("invalid table name %q", table)
	}
	return sql.Open(driver, dsn)
}

// UploadEdges stores every edge of src in table, creating it if needed.
// Vertex-only records are kept as rows with an empty dst.
func UploadEdges(ctx context.Context, kind, dsn, table string, src graph.Source) error {
	db, err := openSQL(kind, dsn, table)
	if err != nil {
		return err
	}
	defer db.Close()

	edges, err := src.Edges(ctx)
	if err != nil {
		return err
	}
	if _, err := db.ExecContext(ctx, createEdgesTable(kind, table)); err != nil {
		return err
	}
	return BulkInsert(ctx, db, kind, table, edges)
}

// BulkInsert writes edges with multi-row INSERT statements, each under the
// SQL Server parameter limit.
func BulkInsert(ctx context.Context, db *sql.DB, kind, table string, edges []graph.RawEdge) error {
	const numParams = 3
	bulks := Batches(edges, maxParamsSQL/numParams)

	for i, bulk := range bulks {
		startTime := time.Now()
		valueStrings := make([]string, 0, len(bulk))
		valueArgs := make([]interface{}, 0, len(bulk)*numParams)
		ps := placeholders(kind, len(bulk)*numParams)
		for j, e := range bulk {
			valueStrings = append(valueStrings, "("+strings.Join(ps[j*numParams:(j+1)*numParams], ", ")+")")
			dst := e.Dst
			if e.VertexOnly {
				dst = ""
			}
			valueArgs = append(valueArgs, e.Src, dst, e.Weight)
		}
		stmt := fmt.Sprintf("INSERT INTO %s (src, dst, weight) VALUES %s;",
			table, strings.Join(valueStrings, ","))
		if _, err := db.ExecContext(ctx, stmt, valueArgs...); err != nil {
			log.Printf("BulkInsert: failed to bulk insert rows: %v\n", err)
			return err
		}
		log.Printf("BulkInsert: inserted (%d/%d) time elapsed %v\n", i+1, len(bulks), time.Since(startTime))
	}
	return nil
}

// SQLEdgeSource reads an edge list written by UploadEdges.
type SQLEdgeSource struct {
	Kind  string
	DSN   string
	Table string
}

func (s *SQLEdgeSource) Edges(ctx context.Context) ([]graph.RawEdge, error) {
	table := s.Table
	if table == "" {
		table = DEFAULT_EDGE_TABLE
	}
	db, err := openSQL(s.Kind, s.DSN, table)
	if err != nil {
		return nil, err
	}
	defer db.Close()

	rows, err := db.QueryContext(ctx, fmt.Sprintf("SELECT src, dst, weight FROM %s", table))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var edges []graph.RawEdge
	for rows.Next() {
		var e graph.RawEdge
		if err := rows.Scan(&e.Src, &e.Dst, &e.Weight); err != nil {
			return nil, err
		}
		e.VertexOnly = e.Dst == ""
		edges = append(edges, e)
	}
	return edges, rows.Err()
}
