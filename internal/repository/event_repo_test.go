package repository

import (
	"strings"
	"testing"
)

func TestListSessionEventsOrdersByInsertSequence(t *testing.T) {
	if !strings.Contains(listSessionEventsQuery, "ORDER BY seq ASC") {
		t.Fatalf("expected events to be ordered by seq, got %q", listSessionEventsQuery)
	}
	if strings.Contains(listSessionEventsQuery, "ORDER BY created_at") {
		t.Fatalf("created_at is shared within a transaction and cannot order events")
	}
}
