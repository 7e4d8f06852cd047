package roster

import (
	"errors"
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/use-agent/e7record/config"
	"github.com/use-agent/e7record/internal/fixture"
	"github.com/use-agent/e7record/models"
)

type mapLookup map[string]string

func (m mapLookup) Lookup(id string) string {
	if n, ok := m[id]; ok {
		return n
	}
	return "Unknown"
}

var names = mapLookup{
	"a": "Alpha", "b": "Bravo", "c": "Charlie", "d": "Delta", "e": "Echo",
	"x": "Xray", "y": "Yankee", "z": "Zulu",
}

func newExtractor(t *testing.T) *Extractor {
	t.Helper()
	ext, err := NewExtractor(config.DefaultExtract(), names)
	if err != nil {
		t.Fatalf("NewExtractor: %v", err)
	}
	return ext
}

func entryOf(t *testing.T, b fixture.Battle) *goquery.Selection {
	t.Helper()
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(fixture.Page(b)))
	if err != nil {
		t.Fatalf("parse fixture: %v", err)
	}
	return doc.Find("li.battle-info").First()
}

func equal(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestClassify_Priority(t *testing.T) {
	tests := []struct {
		class string
		want  Status
	}{
		{"hero", Selected},
		{"", Selected},
		{"hero ban", Banned},
		{"hero preban-hero", Prebanned},
		{"ban preban-hero", Banned},
		{"preban-hero ban", Banned},
		{"banned", Selected}, // token match, not substring
		{"preban-heroic", Selected},
	}

	for _, tt := range tests {
		t.Run(tt.class, func(t *testing.T) {
			if got := DefaultClassifier.Classify(ParseMarkers(tt.class)); got != tt.want {
				t.Errorf("Classify(%q) = %v, want %v", tt.class, got, tt.want)
			}
		})
	}
}

func TestExtract_Buckets(t *testing.T) {
	ext := newExtractor(t)
	entry := entryOf(t, fixture.Battle{
		Turns: 10,
		Own: []fixture.Hero{
			{Code: "a"},
			{Code: "b", Class: "ban"},
			{Code: "c", Class: "preban-hero"},
			{Code: "d"},
			{Code: "e", Class: "preban-hero ban"},
		},
		Enemy: fixture.Heroes("x", "y"),
	})

	own := ext.Extract(entry, Own)
	if !equal(own.Selected, []string{"Alpha", "Delta"}) {
		t.Errorf("Selected = %v", own.Selected)
	}
	if !equal(own.Banned, []string{"Bravo", "Echo"}) {
		t.Errorf("Banned = %v", own.Banned)
	}
	if !equal(own.Prebanned, []string{"Charlie"}) {
		t.Errorf("Prebanned = %v", own.Prebanned)
	}
	if own.Len() != 5 {
		t.Errorf("partition lost items: Len() = %d, want 5", own.Len())
	}

	opp := ext.Extract(entry, Opponent)
	if !equal(opp.Selected, []string{"Xray", "Yankee"}) || len(opp.Banned) != 0 || len(opp.Prebanned) != 0 {
		t.Errorf("opponent roster = %+v", opp)
	}
}

func TestExtract_UnknownIcon(t *testing.T) {
	ext := newExtractor(t)
	entry := entryOf(t, fixture.Battle{Own: fixture.Heroes("a", "nope")})

	got := ext.Extract(entry, Own)
	if !equal(got.Selected, []string{"Alpha", "Unknown"}) {
		t.Errorf("Selected = %v", got.Selected)
	}
}

func TestExtract_SkipsMalformedItems(t *testing.T) {
	ext := newExtractor(t)
	entry := entryOf(t, fixture.Battle{
		Own: []fixture.Hero{
			{Code: "a"},
			{Code: "b", NoIcon: true},
			{Code: "c", NoClass: true},
			{Code: "d"},
		},
	})

	got := ext.Extract(entry, Own)
	if !equal(got.Selected, []string{"Alpha", "Delta"}) {
		t.Errorf("Selected = %v, want malformed items skipped", got.Selected)
	}
}

func TestExtract_NoContainers(t *testing.T) {
	ext := newExtractor(t)
	entry := entryOf(t, fixture.Battle{NoDetail: true})

	for _, side := range []Side{Own, Opponent} {
		if got := ext.Extract(entry, side); got.Len() != 0 {
			t.Errorf("%s: expected empty roster, got %+v", side, got)
		}
	}
}

func TestExtract_SidesDoNotLeak(t *testing.T) {
	ext := newExtractor(t)
	entry := entryOf(t, fixture.Battle{Own: fixture.Heroes("a")})

	if got := ext.Extract(entry, Opponent); got.Len() != 0 {
		t.Errorf("opponent should be empty, got %+v", got)
	}
}

func TestReadItem_Errors(t *testing.T) {
	ext := newExtractor(t)
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(
		`<ul><li class="hero"></li><li><span><img alt="a"></span></li><li class="hero"><span><img src="x"></span></li></ul>`))
	if err != nil {
		t.Fatal(err)
	}

	doc.Find("li").Each(func(i int, li *goquery.Selection) {
		_, err := ext.ReadItem(li)
		var xe *models.ExtractError
		if !errors.As(err, &xe) || xe.Code != models.ErrCodeItemMalformed {
			t.Errorf("item %d: err = %v, want ITEM_MALFORMED", i, err)
		}
	})
}

func TestNewExtractor_InvalidSelector(t *testing.T) {
	cfg := config.DefaultExtract()
	cfg.IconSelector = "span >"
	if _, err := NewExtractor(cfg, names); err == nil {
		t.Error("expected error for invalid selector")
	}
}
