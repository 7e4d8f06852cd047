// Package battle assembles fixed-width battle records from rendered entries.
package battle

import (
	"fmt"
	"log/slog"

	"github.com/PuerkitoBio/goquery"
	"github.com/andybalholm/cascadia"
	"github.com/use-agent/e7record/config"
	"github.com/use-agent/e7record/models"
	"github.com/use-agent/e7record/roster"
)

// RosterExtractor returns one side's roster of a battle entry.
type RosterExtractor interface {
	Extract(entry *goquery.Selection, side roster.Side) roster.Roster
}

// Stats counts what happened to the entries of one Build call.
type Stats struct {
	Seen      int
	ZeroTurns int
	Failed    int
}

// Skipped is the number of entries that produced no record.
func (s Stats) Skipped() int { return s.ZeroTurns + s.Failed }

// Builder turns battle entries into records.
type Builder struct {
	ext     RosterExtractor
	entries cascadia.Selector
	outcome OutcomeClassifier
	cap     config.Capacity
}

// NewBuilder creates a Builder. Capacities larger than the record's fixed
// slot count are clamped to it.
func NewBuilder(ext RosterExtractor, cfg config.ExtractConfig) (*Builder, error) {
	entries, err := cascadia.Compile(cfg.EntrySelector)
	if err != nil {
		return nil, models.NewExtractError(models.ErrCodeInvalidInput,
			fmt.Sprintf("invalid entry selector %q", cfg.EntrySelector), err)
	}

	var side models.Side
	c := cfg.Capacity
	c.MaxSelected = clamp(c.MaxSelected, len(side.Characters))
	c.MaxBanned = clamp(c.MaxBanned, 1)
	c.MaxPrebanned = clamp(c.MaxPrebanned, len(side.Prebans))

	return &Builder{
		ext:     ext,
		entries: entries,
		outcome: OutcomeClassifier{WinClass: cfg.WinClass},
		cap:     c,
	}, nil
}

func clamp(n, limit int) int {
	return max(0, min(n, limit))
}

// BuildDocument finds the battle entries in doc and builds their records.
func (b *Builder) BuildDocument(doc *goquery.Document) ([]models.BattleRecord, Stats) {
	return b.Build(doc.FindMatcher(b.entries))
}

// Build folds entries, in rendered order, into records. PlayerID is the
// 1-based index into the returned slice, so skipped entries leave no gap.
// A failure in one entry is logged and that entry skipped.
func (b *Builder) Build(entries *goquery.Selection) ([]models.BattleRecord, Stats) {
	var stats Stats
	records := make([]models.BattleRecord, 0, entries.Length())

	entries.Each(func(i int, entry *goquery.Selection) {
		stats.Seen++
		rec, keep, err := b.buildSafe(entry)
		if err != nil {
			stats.Failed++
			slog.Warn("battle: skipping entry", "index", i, "error", err)
			return
		}
		if !keep {
			stats.ZeroTurns++
			slog.Debug("battle: skipping zero-turn entry", "index", i)
			return
		}
		rec.PlayerID = len(records) + 1
		records = append(records, rec)
	})

	slog.Info("battle records built",
		"seen", stats.Seen,
		"records", len(records),
		"zeroTurns", stats.ZeroTurns,
		"failed", stats.Failed,
	)
	return records, stats
}

// buildSafe confines a panic raised while reading one entry to that entry.
func (b *Builder) buildSafe(entry *goquery.Selection) (rec models.BattleRecord, keep bool, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = models.NewExtractError(models.ErrCodeBattleMalformed,
				fmt.Sprintf("panic while reading entry: %v", r), nil)
		}
	}()
	return b.BuildOne(entry)
}

// BuildOne assembles the record for a single entry. keep is false for
// zero-turn entries. The returned record has PlayerID 0; Build assigns it.
func (b *Builder) BuildOne(entry *goquery.Selection) (models.BattleRecord, bool, error) {
	class, ok := entry.Attr("class")
	if !ok {
		return models.BattleRecord{}, false, models.NewExtractError(
			models.ErrCodeBattleMalformed, "entry has no class attribute", nil)
	}

	outcome := b.outcome.Classify(roster.ParseMarkers(class), entry.Text())
	if outcome.ZeroTurns {
		return models.BattleRecord{}, false, nil
	}

	return models.BattleRecord{
		Own:      b.side(b.ext.Extract(entry, roster.Own)),
		Win:      outcome.Win,
		Opponent: b.side(b.ext.Extract(entry, roster.Opponent)),
	}, true, nil
}

// side truncates a roster to capacity. Slots past the available count keep
// their zero value, the empty string.
func (b *Builder) side(r roster.Roster) models.Side {
	var s models.Side
	copy(s.Characters[:b.cap.MaxSelected], r.Selected)
	if b.cap.MaxBanned > 0 && len(r.Banned) > 0 {
		s.Banned = r.Banned[0]
	}
	copy(s.Prebans[:b.cap.MaxPrebanned], r.Prebanned)
	return s
}
