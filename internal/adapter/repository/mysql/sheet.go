package mysql

import (
	"context"
	"errors"
	"fmt"

	"change-approval/internal/domain/sheet"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	_ sheet.Sheet    = (*Sheet)(nil)
	_ sheet.Workbook = (*Workbook)(nil)
)

// Workbook stores named sheets in the sheets / sheet_rows tables.
type Workbook struct{ db *gorm.DB }

func NewWorkbook(db *gorm.DB) *Workbook { return &Workbook{db: db} }

func (w *Workbook) Migrate(ctx context.Context) error {
	return w.db.WithContext(ctx).AutoMigrate(&sheet.Table{}, &sheet.RowRecord{})
}

func (w *Workbook) Sheet(ctx context.Context, name string) (sheet.Sheet, error) {
	var t sheet.Table
	err := w.db.WithContext(ctx).Where("name = ?", name).First(&t).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, sheet.ErrSheetNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load sheet %q: %w", name, err)
	}
	return &Sheet{db: w.db, name: t.Name}, nil
}

// CreateSheet creates name with the given header row. An existing sheet is
// returned untouched.
func (w *Workbook) CreateSheet(ctx context.Context, name string, headers []string) (sheet.Sheet, error) {
	err := w.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&sheet.Table{Name: name})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 || len(headers) == 0 {
			return nil
		}
		return tx.Create(&sheet.RowRecord{
			SheetName: name,
			RowIndex:  sheet.HeaderRowIndex,
			Cells:     append([]string(nil), headers...),
		}).Error
	})
	if err != nil {
		return nil, fmt.Errorf("create sheet %q: %w", name, err)
	}
	return &Sheet{db: w.db, name: name}, nil
}

// Sheet is a gorm-backed sheet.Sheet. Rows without a stored record read as
// blank; a row exists when it is at or above the highest stored row.
type Sheet struct {
	db   *gorm.DB
	name string
}

func (s *Sheet) Name() string { return s.name }

func (s *Sheet) rows(ctx context.Context) *gorm.DB {
	return s.db.WithContext(ctx).Model(&sheet.RowRecord{}).Where("sheet_name = ?", s.name)
}

func (s *Sheet) LastRowIndex(ctx context.Context) (int, error) {
	return lastRow(s.rows(ctx))
}

func lastRow(q *gorm.DB) (int, error) {
	var last int
	if err := q.Select("COALESCE(MAX(row_index), 0)").Scan(&last).Error; err != nil {
		return 0, fmt.Errorf("last row: %w", err)
	}
	return last, nil
}

func (s *Sheet) LastColumnIndex(ctx context.Context) (int, error) {
	var recs []sheet.RowRecord
	if err := s.rows(ctx).Find(&recs).Error; err != nil {
		return 0, fmt.Errorf("last column: %w", err)
	}
	n := 0
	for _, r := range recs {
		if len(r.Cells) > n {
			n = len(r.Cells)
		}
	}
	return n, nil
}

func (s *Sheet) HeaderRow(ctx context.Context) ([]string, error) {
	var rec sheet.RowRecord
	err := s.rows(ctx).Where("row_index = ?", sheet.HeaderRowIndex).First(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("header row: %w", err)
	}
	return append([]string(nil), rec.Cells...), nil
}

func (s *Sheet) ReadRow(ctx context.Context, row int) ([]string, error) {
	last, err := s.LastRowIndex(ctx)
	if err != nil {
		return nil, err
	}
	if row < 1 || row > last {
		return nil, sheet.ErrRowOutOfRange
	}
	var rec sheet.RowRecord
	err = s.rows(ctx).Where("row_index = ?", row).First(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return []string{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read row %d: %w", row, err)
	}
	return append([]string(nil), rec.Cells...), nil
}

// ReadRange returns a rowCount x colCount grid; absent cells are "".
func (s *Sheet) ReadRange(ctx context.Context, rowStart, colStart, rowCount, colCount int) ([][]string, error) {
	if rowStart < 1 || rowCount < 0 {
		return nil, sheet.ErrRowOutOfRange
	}
	if colStart < 1 || colCount < 0 {
		return nil, sheet.ErrColumnOutOfRange
	}
	var recs []sheet.RowRecord
	err := s.rows(ctx).
		Where("row_index BETWEEN ? AND ?", rowStart, rowStart+rowCount-1).
		Order("row_index").
		Find(&recs).Error
	if err != nil {
		return nil, fmt.Errorf("read rows %d..%d: %w", rowStart, rowStart+rowCount-1, err)
	}
	out := make([][]string, rowCount)
	for i := range out {
		out[i] = make([]string, colCount)
	}
	for _, r := range recs {
		line := out[r.RowIndex-rowStart]
		for j := range line {
			if c := colStart + j; c <= len(r.Cells) {
				line[j] = r.Cells[c-1]
			}
		}
	}
	return out, nil
}

func (s *Sheet) WriteCell(ctx context.Context, row, col int, value string) error {
	if row < 1 {
		return sheet.ErrRowOutOfRange
	}
	if col < 1 {
		return sheet.ErrColumnOutOfRange
	}
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var rec sheet.RowRecord
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("sheet_name = ? AND row_index = ?", s.name, row).
			First(&rec).Error
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			last, err := lastRow(tx.Model(&sheet.RowRecord{}).Where("sheet_name = ?", s.name))
			if err != nil {
				return err
			}
			if row > last {
				return sheet.ErrRowOutOfRange
			}
			rec = sheet.RowRecord{SheetName: s.name, RowIndex: row}
		case err != nil:
			return fmt.Errorf("lock row %d: %w", row, err)
		}
		cells := sheet.Pad(append([]string(nil), rec.Cells...), col)
		cells[col-1] = value
		rec.Cells = cells
		if err := tx.Save(&rec).Error; err != nil {
			return fmt.Errorf("write row %d col %d: %w", row, col, err)
		}
		return nil
	})
}

// AppendRow writes values below the last row and returns its index.
func (s *Sheet) AppendRow(ctx context.Context, values []string) (int, error) {
	var row int
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		last, err := lastRow(tx.Model(&sheet.RowRecord{}).Where("sheet_name = ?", s.name))
		if err != nil {
			return err
		}
		row = last + 1
		return tx.Create(&sheet.RowRecord{
			SheetName: s.name,
			RowIndex:  row,
			Cells:     append([]string(nil), values...),
		}).Error
	})
	if err != nil {
		return 0, fmt.Errorf("append row: %w", err)
	}
	return row, nil
}
