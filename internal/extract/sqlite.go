package extract

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"strings"

	_ "github.com/mattn/go-sqlite3"
)

// maxTableRows bounds how many rows of each table are rendered.
const maxTableRows = 1000

// extractSQLite dumps every user table of a SQLite database as its name,
// its columns, and up to maxTableRows rows.
func extractSQLite(ctx context.Context, content []byte) (string, error) {
	tmp, err := os.CreateTemp("", "kotae-upload-*.db")
	if err != nil {
		return "", fmt.Errorf("create temp database: %w", err)
	}
	path := tmp.Name()
	defer os.Remove(path)
	if _, err := tmp.Write(content); err != nil {
		_ = tmp.Close()
		return "", fmt.Errorf("write temp database: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("close temp database: %w", err)
	}

	db, err := sql.Open("sqlite3", "file:"+path+"?mode=ro")
	if err != nil {
		return "", fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	tables, err := tableNames(ctx, db)
	if err != nil {
		return "", err
	}
	var b strings.Builder
	for _, t := range tables {
		if err := dumpTable(ctx, db, t, &b); err != nil {
			return "", fmt.Errorf("table %s: %w", t, err)
		}
	}
	return strings.TrimSpace(b.String()), nil
}

func tableNames(ctx context.Context, db *sql.DB) ([]string, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT name FROM sqlite_master WHERE type = 'table' AND name NOT LIKE 'sqlite_%' ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("list tables: %w", err)
	}
	defer rows.Close()
	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

func dumpTable(ctx context.Context, db *sql.DB, table string, b *strings.Builder) error {
	quoted := `"` + strings.ReplaceAll(table, `"`, `""`) + `"`
	rows, err := db.QueryContext(ctx, fmt.Sprintf("SELECT * FROM %s LIMIT %d", quoted, maxTableRows))
	if err != nil {
		return err
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return err
	}
	fmt.Fprintf(b, "TABLE: %s\nCOLUMNS: %s\n", table, strings.Join(cols, ", "))

	values := make([]any, len(cols))
	ptrs := make([]any, len(cols))
	for i := range values {
		ptrs[i] = &values[i]
	}
	cells := make([]string, len(cols))
	for rows.Next() {
		if err := rows.Scan(ptrs...); err != nil {
			return err
		}
		for i, v := range values {
			cells[i] = formatCell(v)
		}
		b.WriteString(strings.Join(cells, " | "))
		b.WriteByte('\n')
	}
	b.WriteByte('\n')
	return rows.Err()
}

func formatCell(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case []byte:
		return string(x)
	default:
		return fmt.Sprint(x)
	}
}
