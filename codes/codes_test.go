package codes

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/use-agent/e7record/config"
)

func newTestResolver(url string) *Resolver {
	return NewResolver(config.SourceConfig{PortraitsURL: url, Timeout: 2 * time.Second}, "")
}

func TestTable_Lookup(t *testing.T) {
	table := NewTable(map[string]string{
		"c1001": "Ras",
		"c1002": "",
	})

	tests := []struct {
		id   string
		want string
	}{
		{"c1001", "Ras"},
		{"c1002", Unknown},
		{"missing", Unknown},
		{"", Unknown},
	}

	for _, tt := range tests {
		t.Run(tt.id, func(t *testing.T) {
			if got := table.Lookup(tt.id); got != tt.want {
				t.Errorf("Lookup(%q) = %q, want %q", tt.id, got, tt.want)
			}
		})
	}

	if table.Len() != 1 {
		t.Errorf("Len() = %d, want 1", table.Len())
	}
}

func TestTable_NilIsEmpty(t *testing.T) {
	var table *Table
	if got := table.Lookup("c1001"); got != Unknown {
		t.Errorf("nil table Lookup = %q, want %q", got, Unknown)
	}
	if table.Len() != 0 {
		t.Error("nil table should have zero entries")
	}
}

func TestResolver_Load(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"c1001": {"name": "Ras", "element": "fire"},
			"c2002": {"name": "Fighter Maya"},
			"c3003": "not an object",
			"c4004": {"element": "ice"}
		}`))
	}))
	defer srv.Close()

	table := newTestResolver(srv.URL).Load(context.Background())

	if table.Len() != 2 {
		t.Fatalf("Len() = %d, want 2", table.Len())
	}
	if got := table.Lookup("c2002"); got != "Fighter Maya" {
		t.Errorf("Lookup(c2002) = %q", got)
	}
	if got := table.Lookup("c3003"); got != Unknown {
		t.Errorf("malformed entry should resolve to Unknown, got %q", got)
	}
	if got := table.Lookup("c4004"); got != Unknown {
		t.Errorf("entry without name should resolve to Unknown, got %q", got)
	}
}

func TestResolver_LoadDegradesToEmpty(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{"server error", func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "down", http.StatusInternalServerError)
		}},
		{"not json", func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte("<html>maintenance</html>"))
		}},
		{"json array", func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`["c1001"]`))
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(tt.handler)
			defer srv.Close()

			table := newTestResolver(srv.URL).Load(context.Background())
			if table.Len() != 0 {
				t.Errorf("expected empty table, got %d entries", table.Len())
			}
			if got := table.Lookup("c1001"); got != Unknown {
				t.Errorf("Lookup = %q, want %q", got, Unknown)
			}
		})
	}
}

func TestResolver_LoadNetworkError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close() // nothing listens on url any more

	table := newTestResolver(url).Load(context.Background())
	if table == nil || table.Len() != 0 {
		t.Fatalf("network failure must yield an empty, non-nil table")
	}
}

func TestDecode(t *testing.T) {
	table, err := decode(strings.NewReader(`{"a": {"name": "Alpha"}}`))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if table.Lookup("a") != "Alpha" {
		t.Errorf("Lookup(a) = %q", table.Lookup("a"))
	}

	if _, err := decode(strings.NewReader(`{`)); err == nil {
		t.Error("truncated JSON should fail to decode")
	}
}
