// Package export writes battle records to a flat tabular file.
package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/use-agent/e7record/config"
	"github.com/use-agent/e7record/models"
	"github.com/xuri/excelize/v2"
)

// Supported formats.
const (
	FormatCSV  = "csv"
	FormatXLSX = "xlsx"
)

// SheetName is the worksheet used by the xlsx format.
const SheetName = "battles"

// Exporter writes records with the fixed column schema.
type Exporter struct {
	format string
}

// New creates an Exporter. An empty cfg.Format infers the format from the
// destination extension at export time.
func New(cfg config.ExportConfig) *Exporter {
	return &Exporter{format: strings.ToLower(cfg.Format)}
}

// FormatFor returns the format used for dest.
func (e *Exporter) FormatFor(dest string) string {
	if e.format != "" {
		return e.format
	}
	if strings.EqualFold(filepath.Ext(dest), ".xlsx") {
		return FormatXLSX
	}
	return FormatCSV
}

// Export overwrites dest with a header row and one row per record, in input
// order. The parent directory is created when missing.
func (e *Exporter) Export(records []models.BattleRecord, dest string) error {
	if dir := filepath.Dir(dest); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return models.NewExtractError(models.ErrCodeExportFailed, "create output directory", err)
		}
	}

	var err error
	switch format := e.FormatFor(dest); format {
	case FormatCSV:
		err = exportCSV(records, dest)
	case FormatXLSX:
		err = exportXLSX(records, dest)
	default:
		err = fmt.Errorf("unsupported format %q", format)
	}
	if err != nil {
		return models.NewExtractError(models.ErrCodeExportFailed, "write "+dest, err)
	}

	slog.Info("records exported", "path", dest, "rows", len(records))
	return nil
}

// WriteCSV streams the header and records to w as UTF-8 CSV.
func WriteCSV(w io.Writer, records []models.BattleRecord) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(models.Header()); err != nil {
		return err
	}
	for _, rec := range records {
		if err := cw.Write(rec.Row()); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func exportCSV(records []models.BattleRecord, dest string) error {
	f, err := os.Create(dest)
	if err != nil {
		return err
	}
	if err := WriteCSV(f, records); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func exportXLSX(records []models.BattleRecord, dest string) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", SheetName); err != nil {
		return err
	}

	sw, err := f.NewStreamWriter(SheetName)
	if err != nil {
		return err
	}

	if err := sw.SetRow("A1", toCells(models.Header())); err != nil {
		return err
	}
	for i, rec := range records {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		row := toCells(rec.Row())
		// player_id and win are numeric in the sheet.
		row[0] = rec.PlayerID
		if rec.Win {
			row[6] = 1
		} else {
			row[6] = 0
		}
		if err := sw.SetRow(cell, row); err != nil {
			return err
		}
	}
	if err := sw.Flush(); err != nil {
		return err
	}
	return f.SaveAs(dest)
}

func toCells(values []string) []interface{} {
	cells := make([]interface{}, len(values))
	for i, v := range values {
		cells[i] = v
	}
	return cells
}
