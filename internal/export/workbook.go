// Package export renders reports as XLSX workbooks.
package export

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"backoffice/internal/core"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
)

// ContentType is the MIME type of the produced workbooks.
const ContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

const (
	defaultSheet = "Sheet1"
	amountFormat = "#,##0.000"
	maxSheetName = 31
)

// Workbook is a rendered report.
type Workbook struct {
	f      *excelize.File
	styles styles
}

type styles struct {
	header  int
	amount  int
	lowest  int
	highest int
}

func newWorkbook(firstSheet string) (*Workbook, error) {
	f := excelize.NewFile()
	if err := f.SetSheetName(defaultSheet, firstSheet); err != nil {
		_ = f.Close()
		return nil, err
	}
	w := &Workbook{f: f}
	if err := w.initStyles(); err != nil {
		_ = f.Close()
		return nil, err
	}
	return w, nil
}

func (w *Workbook) initStyles() error {
	numFmt := amountFormat
	var err error
	if w.styles.header, err = w.f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}}); err != nil {
		return fmt.Errorf("header style: %w", err)
	}
	if w.styles.amount, err = w.f.NewStyle(&excelize.Style{CustomNumFmt: &numFmt}); err != nil {
		return fmt.Errorf("amount style: %w", err)
	}
	w.styles.lowest, err = w.f.NewStyle(&excelize.Style{
		CustomNumFmt: &numFmt,
		Font:         &excelize.Font{Bold: true, Color: "006100"},
		Fill:         excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"C6EFCE"}},
	})
	if err != nil {
		return fmt.Errorf("lowest style: %w", err)
	}
	w.styles.highest, err = w.f.NewStyle(&excelize.Style{
		CustomNumFmt: &numFmt,
		Font:         &excelize.Font{Color: "9C0006"},
		Fill:         excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"FFC7CE"}},
	})
	if err != nil {
		return fmt.Errorf("highest style: %w", err)
	}
	return nil
}

// WriteTo streams the workbook.
func (w *Workbook) WriteTo(out io.Writer) (int64, error) {
	return w.f.WriteTo(out)
}

// Save writes the workbook to path, creating parent directories.
func (w *Workbook) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create export directory: %w", err)
	}
	if err := w.f.SaveAs(path); err != nil {
		return fmt.Errorf("save workbook: %w", err)
	}
	return nil
}

func (w *Workbook) Close() error {
	return w.f.Close()
}

// FileName returns the conventional file name of an export.
func FileName(kind, id string) string {
	return fmt.Sprintf("%s-%s.xlsx", kind, id)
}

// sheetWriter appends rows to one sheet.
type sheetWriter struct {
	w     *Workbook
	sheet string
	row   int
}

func (w *Workbook) sheet(name string) *sheetWriter {
	return &sheetWriter{w: w, sheet: name, row: 1}
}

func (s *sheetWriter) cell(col int) string {
	name, _ := excelize.CoordinatesToCellName(col, s.row)
	return name
}

// put writes values from column A. decimal.Decimal values are stored as
// numbers with the amount format.
func (s *sheetWriter) put(values ...any) error {
	for i, v := range values {
		if err := s.set(i+1, v, 0); err != nil {
			return err
		}
	}
	s.row++
	return nil
}

func (s *sheetWriter) header(values ...any) error {
	if err := s.put(values...); err != nil {
		return err
	}
	first, _ := excelize.CoordinatesToCellName(1, s.row-1)
	last, _ := excelize.CoordinatesToCellName(max(len(values), 1), s.row-1)
	return s.w.f.SetCellStyle(s.sheet, first, last, s.w.styles.header)
}

func (s *sheetWriter) blank() {
	s.row++
}

func (s *sheetWriter) set(col int, v any, style int) error {
	cell := s.cell(col)
	if d, ok := v.(decimal.Decimal); ok {
		if style == 0 {
			style = s.w.styles.amount
		}
		if err := s.w.f.SetCellFloat(s.sheet, cell, d.InexactFloat64(), core.AmountScale, 64); err != nil {
			return err
		}
		return s.w.f.SetCellStyle(s.sheet, cell, cell, style)
	}
	if err := s.w.f.SetCellValue(s.sheet, cell, v); err != nil {
		return err
	}
	if style != 0 {
		return s.w.f.SetCellStyle(s.sheet, cell, cell, style)
	}
	return nil
}

func (s *sheetWriter) widths(widths ...float64) error {
	for i, wd := range widths {
		col, err := excelize.ColumnNumberToName(i + 1)
		if err != nil {
			return err
		}
		if err := s.w.f.SetColWidth(s.sheet, col, col, wd); err != nil {
			return err
		}
	}
	return nil
}

var sheetNameReplacer = strings.NewReplacer(
	":", " ", "\\", " ", "/", " ", "?", " ", "*", " ", "[", "(", "]", ")",
)

// sheetName turns free text into a valid, unused sheet name.
func sheetName(name string, used map[string]bool) string {
	base := strings.TrimSpace(sheetNameReplacer.Replace(name))
	base = strings.Trim(base, "'")
	if base == "" {
		base = "Sheet"
	}
	candidate := truncate(base, maxSheetName)
	for n := 2; used[strings.ToLower(candidate)]; n++ {
		suffix := fmt.Sprintf(" (%d)", n)
		candidate = truncate(base, maxSheetName-len(suffix)) + suffix
	}
	used[strings.ToLower(candidate)] = true
	return candidate
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
