package survey

import (
	"time"

	"gorm.io/datatypes"
)

// SheetRow backs the SQL row store: one positional row of a logical table,
// ordered by ID within Sheet.
type SheetRow struct {
	ID        uint64         `gorm:"primaryKey;autoIncrement;index:idx_sheet_row_table_id,priority:2" json:"id"`
	Sheet     string         `gorm:"column:table_name;type:text;not null;index:idx_sheet_row_table_id,priority:1" json:"table_name"`
	Values    datatypes.JSON `gorm:"column:row_values;not null" json:"values"`
	CreatedAt time.Time      `gorm:"not null;autoCreateTime" json:"created_at"`
}

func (SheetRow) TableName() string { return "sheet_row" }
