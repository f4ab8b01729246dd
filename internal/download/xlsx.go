package download

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/leapstack-labs/leapexport/pkg/csvenc"
	"github.com/leapstack-labs/leapexport/pkg/record"
	"github.com/xuri/excelize/v2"
)

const (
	// maxSheetName is the longest sheet name Excel accepts.
	maxSheetName = 31
	// maxExactInt is the largest integer a float64 holds exactly (2^53).
	maxExactInt = 1 << 53
)

// XLSX builds a single-sheet workbook artifact from records.
// The header row follows the same first-record rule as the CSV encoder.
func XLSX(filename, sheet string, records []record.Record) (Artifact, error) {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	name := sheetName(sheet)
	if err := f.SetSheetName("Sheet1", name); err != nil {
		return Artifact{}, fmt.Errorf("failed to name sheet: %w", err)
	}

	header := csvenc.Header(records)
	if len(header) > 0 {
		cells := make([]any, len(header))
		for i, h := range header {
			cells[i] = h
		}
		if err := setRow(f, name, 1, cells); err != nil {
			return Artifact{}, err
		}
	}

	for i, rec := range records {
		cells := make([]any, len(header))
		for j, h := range header {
			v, _ := rec.Get(h)
			cells[j] = cellValue(v)
		}
		if err := setRow(f, name, i+2, cells); err != nil {
			return Artifact{}, err
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return Artifact{}, fmt.Errorf("failed to render workbook: %w", err)
	}
	return Artifact{Name: filename, MediaType: MediaTypeXLSX, Data: buf.Bytes()}, nil
}

func setRow(f *excelize.File, sheet string, row int, cells []any) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return fmt.Errorf("failed to address row %d: %w", row, err)
	}
	if err := f.SetSheetRow(sheet, cell, &cells); err != nil {
		return fmt.Errorf("failed to write row %d: %w", row, err)
	}
	return nil
}

// cellValue maps a record value onto the closest spreadsheet cell type.
func cellValue(v record.Value) any {
	switch v.Kind() {
	case record.KindNull:
		return nil
	case record.KindBool:
		b, _ := v.AsBool()
		return b
	case record.KindNumber:
		lit := v.String()
		if !strings.ContainsAny(lit, ".eE") {
			// Spreadsheets hold numbers as doubles; larger integers stay text.
			if n, err := strconv.ParseInt(lit, 10, 64); err == nil && n >= -maxExactInt && n <= maxExactInt {
				return n
			}
			return lit
		}
		if f, ok := v.AsFloat(); ok {
			return f
		}
		return lit
	default:
		return v.String()
	}
}

// sheetName strips characters Excel rejects and truncates to the limit.
func sheetName(s string) string {
	s = strings.Map(func(r rune) rune {
		if strings.ContainsRune(`:\/?*[]`, r) {
			return '_'
		}
		return r
	}, s)
	if s == "" {
		s = "Sheet1"
	}
	if r := []rune(s); len(r) > maxSheetName {
		s = string(r[:maxSheetName])
	}
	return s
}
