package sheet

import (
	"time"

	"gorm.io/datatypes"
)

// Table: sheets
type Table struct {
	Name      string    `gorm:"column:name;size:64;primaryKey"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
}

func (Table) TableName() string { return "sheets" }

// Table: sheet_rows. One record per populated row; row 1 is the header.
type RowRecord struct {
	ID        uint64                      `gorm:"column:id;primaryKey;autoIncrement"`
	SheetName string                      `gorm:"column:sheet_name;size:64;not null;uniqueIndex:ux_sheet_rows_sheet_row"`
	RowIndex  int                         `gorm:"column:row_index;not null;uniqueIndex:ux_sheet_rows_sheet_row"`
	Cells     datatypes.JSONSlice[string] `gorm:"column:cells"`
	CreatedAt time.Time                   `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time                   `gorm:"column:updated_at;autoUpdateTime"`
}

func (RowRecord) TableName() string { return "sheet_rows" }
