package rowstore

import (
	"context"
	"encoding/json"
	"fmt"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/yungbote/surveybridge-backend/internal/domain/survey"
	"github.com/yungbote/surveybridge-backend/internal/platform/logger"
)

type gormStore struct {
	db  *gorm.DB
	log *logger.Logger
}

// NewGormStore keeps every logical table in the sheet_row table; a row's
// position is its rank by id within its table.
func NewGormStore(db *gorm.DB, baseLog *logger.Logger) Store {
	return &gormStore{db: db, log: baseLog.With("store", "GormStore")}
}

func (s *gormStore) EnsureTables(ctx context.Context, tables ...Table) error {
	if err := s.db.WithContext(ctx).AutoMigrate(&survey.SheetRow{}); err != nil {
		return fmt.Errorf("migrate sheet_row: %w", err)
	}
	return nil
}

func (s *gormStore) FindRows(ctx context.Context, table Table, match func(Row) bool) ([]Row, error) {
	var recs []survey.SheetRow
	if err := s.db.WithContext(ctx).
		Where("table_name = ?", table.Name).
		Order("id ASC").
		Find(&recs).Error; err != nil {
		return nil, err
	}
	var out []Row
	for i, rec := range recs {
		var values []string
		if err := json.Unmarshal(rec.Values, &values); err != nil {
			return nil, fmt.Errorf("%s row id=%d: decode values: %w", table.Name, rec.ID, err)
		}
		row := Row{Ref: i + 1, Values: values}
		if match == nil || match(row) {
			out = append(out, row)
		}
	}
	return out, nil
}

func (s *gormStore) AppendRow(ctx context.Context, table Table, values []string) error {
	if err := CheckWidth(table, values); err != nil {
		return err
	}
	raw, err := json.Marshal(values)
	if err != nil {
		return err
	}
	rec := &survey.SheetRow{Sheet: table.Name, Values: datatypes.JSON(raw)}
	return s.db.WithContext(ctx).Create(rec).Error
}

func (s *gormStore) UpdateRow(ctx context.Context, table Table, ref int, values []string) error {
	if err := CheckWidth(table, values); err != nil {
		return err
	}
	raw, err := json.Marshal(values)
	if err != nil {
		return err
	}
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		ids, err := s.rowIDs(tx, table)
		if err != nil {
			return err
		}
		if ref < 1 || ref > len(ids) {
			return fmt.Errorf("%s ref %d: %w", table.Name, ref, ErrRowNotFound)
		}
		return tx.Model(&survey.SheetRow{}).
			Where("id = ?", ids[ref-1]).
			Update("row_values", datatypes.JSON(raw)).Error
	})
}

func (s *gormStore) DeleteRows(ctx context.Context, table Table, refs []int) error {
	refs = descendingRefs(refs)
	if len(refs) == 0 {
		return nil
	}
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		ids, err := s.rowIDs(tx, table)
		if err != nil {
			return err
		}
		victims := make([]uint64, 0, len(refs))
		for _, ref := range refs {
			if ref > len(ids) {
				return fmt.Errorf("%s ref %d: %w", table.Name, ref, ErrRowNotFound)
			}
			victims = append(victims, ids[ref-1])
		}
		return tx.Where("id IN ?", victims).Delete(&survey.SheetRow{}).Error
	})
}

func (s *gormStore) rowIDs(tx *gorm.DB, table Table) ([]uint64, error) {
	var ids []uint64
	if err := tx.Model(&survey.SheetRow{}).
		Where("table_name = ?", table.Name).
		Order("id ASC").
		Pluck("id", &ids).Error; err != nil {
		return nil, err
	}
	return ids, nil
}
