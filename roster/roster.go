// Package roster extracts one team's characters from a rendered battle entry.
package roster

import (
	"fmt"
	"log/slog"

	"github.com/PuerkitoBio/goquery"
	"github.com/andybalholm/cascadia"
	"github.com/use-agent/e7record/config"
	"github.com/use-agent/e7record/models"
)

// Side selects which team of a battle entry to read.
type Side int

const (
	Own Side = iota
	Opponent
)

func (s Side) String() string {
	if s == Opponent {
		return "opponent"
	}
	return "own"
}

// Lookup resolves an icon identifier to a display name. It must be total.
type Lookup interface {
	Lookup(id string) string
}

// Item is one parsed roster entry before name resolution.
type Item struct {
	IconID  string
	Markers Markers
}

// Roster holds one side's resolved names per bucket, in rendered order.
type Roster struct {
	Selected  []string
	Banned    []string
	Prebanned []string
}

// Add appends name to the bucket for status.
func (r *Roster) Add(status Status, name string) {
	switch status {
	case Banned:
		r.Banned = append(r.Banned, name)
	case Prebanned:
		r.Prebanned = append(r.Prebanned, name)
	default:
		r.Selected = append(r.Selected, name)
	}
}

// Len returns the total number of items across buckets.
func (r Roster) Len() int {
	return len(r.Selected) + len(r.Banned) + len(r.Prebanned)
}

// Extractor reads rosters out of battle entries. Selectors are compiled once
// at construction; an Extractor is safe for concurrent use.
type Extractor struct {
	containers [2]cascadia.Selector
	item       cascadia.Selector
	icon       cascadia.Selector
	classifier Classifier
	names      Lookup
}

// NewExtractor compiles the configured selectors. Roster containers are the
// lists directly under a side's team block inside the battle detail.
func NewExtractor(cfg config.ExtractConfig, names Lookup) (*Extractor, error) {
	own, err := compile(cfg.DetailSelector + " > " + cfg.OwnTeamSelector + " > ul")
	if err != nil {
		return nil, err
	}
	enemy, err := compile(cfg.DetailSelector + " > " + cfg.EnemyTeamSelector + " > ul")
	if err != nil {
		return nil, err
	}
	item, err := compile("li")
	if err != nil {
		return nil, err
	}
	icon, err := compile(cfg.IconSelector)
	if err != nil {
		return nil, err
	}

	return &Extractor{
		containers: [2]cascadia.Selector{own, enemy},
		item:       item,
		icon:       icon,
		classifier: Classifier{BanClass: cfg.BanClass, PrebanClass: cfg.PrebanClass},
		names:      names,
	}, nil
}

func compile(sel string) (cascadia.Selector, error) {
	s, err := cascadia.Compile(sel)
	if err != nil {
		return nil, models.NewExtractError(models.ErrCodeInvalidInput,
			fmt.Sprintf("invalid selector %q", sel), err)
	}
	return s, nil
}

// Extract returns the roster of one side of entry. Items that cannot be read
// are logged and skipped; a side whose containers are missing yields an
// empty roster.
func (e *Extractor) Extract(entry *goquery.Selection, side Side) Roster {
	var r Roster

	containers := entry.FindMatcher(e.containers[side])
	if containers.Length() == 0 {
		slog.Debug("roster: no containers for side", "side", side.String())
		return r
	}

	containers.Each(func(_ int, ul *goquery.Selection) {
		ul.FindMatcher(e.item).Each(func(i int, li *goquery.Selection) {
			it, err := e.ReadItem(li)
			if err != nil {
				slog.Warn("roster: skipping item",
					"side", side.String(), "index", i, "error", err)
				return
			}
			r.Add(e.classifier.Classify(it.Markers), e.names.Lookup(it.IconID))
		})
	})

	return r
}

// ReadItem parses one roster list item. The icon identifier is the alt text
// of the item's portrait image.
func (e *Extractor) ReadItem(li *goquery.Selection) (Item, error) {
	img := li.FindMatcher(e.icon).First()
	if img.Length() == 0 {
		return Item{}, models.NewExtractError(models.ErrCodeItemMalformed, "item has no icon", nil)
	}
	alt, ok := img.Attr("alt")
	if !ok {
		return Item{}, models.NewExtractError(models.ErrCodeItemMalformed, "icon has no alt attribute", nil)
	}
	class, ok := li.Attr("class")
	if !ok {
		return Item{}, models.NewExtractError(models.ErrCodeItemMalformed, "item has no class attribute", nil)
	}
	return Item{IconID: alt, Markers: ParseMarkers(class)}, nil
}
