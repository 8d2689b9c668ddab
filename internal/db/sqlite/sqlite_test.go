package sqlite

import (
	"context"
	"testing"
)

func TestOpen_InMemoryAppliesSchema(t *testing.T) {
	conn, err := Open(context.Background(), ":memory:")
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer conn.Close()

	var n int
	err = conn.QueryRow(`SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name IN ('dishes', 'restaurants')`).Scan(&n)
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if n != 2 {
		t.Fatalf("expected 2 tables, got %d", n)
	}
}

func TestOpen_Idempotent(t *testing.T) {
	conn, err := Open(context.Background(), ":memory:")
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer conn.Close()

	if _, err := conn.Exec(Schema); err != nil {
		t.Fatalf("re-applying schema: %v", err)
	}
}
