package pagination

import (
	"fmt"
	"testing"
	"time"
)

type row struct {
	createdAt time.Time
	id        string
}

func rowKey(r row) (time.Time, string) {
	return r.createdAt, r.id
}

// makeRows builds n rows in display order (created_at DESC, id DESC).
func makeRows(n int) []row {
	base := time.Date(2026, 2, 1, 12, 0, 0, 0, time.UTC)

	rows := make([]row, 0, n)
	for i := 0; i < n; i++ {
		rows = append(rows, row{
			createdAt: base.Add(-time.Duration(i) * time.Minute),
			id:        fmt.Sprintf("id-%03d", n-i),
		})
	}

	return rows
}

func TestClampPageSize(t *testing.T) {
	cfg := &Config{DefaultPageSize: 20, MaxPageSize: 100}

	tests := []struct {
		name string
		raw  string
		want int
	}{
		{name: "empty uses default", raw: "", want: 20},
		{name: "valid value", raw: "5", want: 5},
		{name: "over max clamps", raw: "500", want: 100},
		{name: "zero uses default", raw: "0", want: 20},
		{name: "negative uses default", raw: "-3", want: 20},
		{name: "garbage uses default", raw: "lots", want: 20},
		{name: "exactly max", raw: "100", want: 100},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := cfg.ClampPageSize(tt.raw); got != tt.want {
				t.Errorf("ClampPageSize(%q) = %d, want %d", tt.raw, got, tt.want)
			}
		})
	}
}

func TestBuildPageFirstPageWithMore(t *testing.T) {
	rows := makeRows(6) // pageSize+1 over-fetch result

	page := BuildPage(rows, 5, nil, rowKey)

	if len(page.Items) != 5 {
		t.Fatalf("len(Items) = %d, want 5", len(page.Items))
	}

	if page.Next == "" {
		t.Error("Next is empty, want forward cursor")
	}

	if page.Prev != "" {
		t.Error("Prev is non-empty on first page")
	}

	// Forward cursor points at the last returned item
	next, ok := DecodeCursor(page.Next)
	if !ok {
		t.Fatal("emitted Next cursor does not decode")
	}

	last := page.Items[4]
	if !next.CreatedAt.Equal(last.createdAt) || next.ID != last.id {
		t.Errorf("Next cursor = (%v, %q), want (%v, %q)", next.CreatedAt, next.ID, last.createdAt, last.id)
	}
}

func TestBuildPageLastPage(t *testing.T) {
	rows := makeRows(2) // fewer than pageSize, no extra row
	cursor := &Cursor{CreatedAt: time.Now(), ID: "id-900"}

	page := BuildPage(rows, 5, cursor, rowKey)

	if len(page.Items) != 2 {
		t.Fatalf("len(Items) = %d, want 2", len(page.Items))
	}

	if page.Next != "" {
		t.Error("Next is non-empty on the final page")
	}

	if page.Prev == "" {
		t.Error("Prev is empty, want backward cursor when the request carried a cursor")
	}
}

func TestBuildPageScenarioThreePages(t *testing.T) {
	// 12 rows total, page size 5: 5 + 5 + 2
	all := makeRows(12)

	// First page: store returns rows[0:6] (limit+1)
	first := BuildPage(append([]row(nil), all[0:6]...), 5, nil, rowKey)
	if len(first.Items) != 5 || first.Next == "" || first.Prev != "" {
		t.Fatalf("first page: items=%d next=%q prev=%q", len(first.Items), first.Next, first.Prev)
	}

	// Second page: resume after first.Next → rows[5:11]
	c1, ok := DecodeCursor(first.Next)
	if !ok {
		t.Fatal("first.Next does not decode")
	}

	second := BuildPage(append([]row(nil), all[5:11]...), 5, &c1, rowKey)
	if len(second.Items) != 5 || second.Next == "" || second.Prev == "" {
		t.Fatalf("second page: items=%d next=%q prev=%q", len(second.Items), second.Next, second.Prev)
	}

	// Third page: resume after second.Next → rows[10:12], only 2 rows left
	c2, ok := DecodeCursor(second.Next)
	if !ok {
		t.Fatal("second.Next does not decode")
	}

	third := BuildPage(append([]row(nil), all[10:12]...), 5, &c2, rowKey)
	if len(third.Items) != 2 {
		t.Fatalf("third page: items=%d, want 2", len(third.Items))
	}

	if third.Next != "" {
		t.Error("third page Next is non-empty, want null forward link")
	}

	if third.Prev == "" {
		t.Error("third page Prev is empty, want backward link")
	}

	// No gaps or duplicates across the three pages
	seen := make(map[string]bool)
	for _, p := range [][]row{first.Items, second.Items, third.Items} {
		for _, r := range p {
			if seen[r.id] {
				t.Errorf("item %q appears on more than one page", r.id)
			}

			seen[r.id] = true
		}
	}

	if len(seen) != 12 {
		t.Errorf("saw %d distinct items across pages, want 12", len(seen))
	}
}

func TestBuildPageOrderingStableAcrossPages(t *testing.T) {
	// Rows sharing one timestamp are tiebroken by descending id
	ts := time.Date(2026, 2, 1, 12, 0, 0, 0, time.UTC)
	rows := []row{
		{createdAt: ts, id: "id-5"},
		{createdAt: ts, id: "id-4"},
		{createdAt: ts, id: "id-3"},
	}

	page := BuildPage(rows, 2, nil, rowKey)

	if len(page.Items) != 2 {
		t.Fatalf("len(Items) = %d, want 2", len(page.Items))
	}

	next, _ := DecodeCursor(page.Next)
	if next.ID != "id-4" {
		t.Errorf("Next cursor id = %q, want boundary id-4", next.ID)
	}
}

func TestBuildPageBackward(t *testing.T) {
	// Backward scan: store returns rows ascending from the cursor position,
	// with one extra row signalling an earlier page.
	base := time.Date(2026, 2, 1, 12, 0, 0, 0, time.UTC)
	ascending := []row{
		{createdAt: base.Add(1 * time.Minute), id: "id-006"},
		{createdAt: base.Add(2 * time.Minute), id: "id-007"},
		{createdAt: base.Add(3 * time.Minute), id: "id-008"},
	}

	cursor := &Cursor{CreatedAt: base, ID: "id-005", Reverse: true}

	page := BuildPage(ascending, 2, cursor, rowKey)

	if len(page.Items) != 2 {
		t.Fatalf("len(Items) = %d, want 2", len(page.Items))
	}

	// Display order restored to created_at DESC
	if page.Items[0].id != "id-007" || page.Items[1].id != "id-006" {
		t.Errorf("Items = [%s %s], want [id-007 id-006]", page.Items[0].id, page.Items[1].id)
	}

	if page.Next == "" {
		t.Error("Next is empty, want forward link back to the page the client came from")
	}

	if page.Prev == "" {
		t.Error("Prev is empty, want backward link while earlier rows exist")
	}
}

func TestBuildPageEmpty(t *testing.T) {
	page := BuildPage(nil, 5, nil, rowKey)

	if len(page.Items) != 0 || page.Next != "" || page.Prev != "" {
		t.Errorf("empty input: items=%d next=%q prev=%q", len(page.Items), page.Next, page.Prev)
	}
}
