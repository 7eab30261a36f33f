package repository

import (
	"context"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"streak-keeper/internal/model"
)

const seededKey = "seeded"

// CategoryRepository persists the whole category collection in SQLite.
type CategoryRepository struct {
	db *gorm.DB
}

func NewCategoryRepository(db *gorm.DB) *CategoryRepository {
	return &CategoryRepository{db: db}
}

// Load returns every category ordered by id, or an empty slice.
func (r *CategoryRepository) Load(ctx context.Context) ([]model.Category, error) {
	var categories []model.Category
	if err := r.db.WithContext(ctx).Order("id ASC").Find(&categories).Error; err != nil {
		return nil, fmt.Errorf("load categories: %w", err)
	}
	return categories, nil
}

// Save replaces the stored collection with categories in one transaction.
func (r *CategoryRepository) Save(ctx context.Context, categories []model.Category) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(&model.Category{}).Error; err != nil {
			return fmt.Errorf("clear categories: %w", err)
		}
		if len(categories) == 0 {
			return nil
		}
		rows := make([]model.Category, len(categories))
		copy(rows, categories)
		if err := tx.Create(&rows).Error; err != nil {
			return fmt.Errorf("insert categories: %w", err)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("save categories: %w", err)
	}
	return nil
}

// Seeded reports whether this database has already been through first-run seeding.
func (r *CategoryRepository) Seeded(ctx context.Context) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&model.Setting{}).Where(&model.Setting{Key: seededKey}).Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("read seed marker: %w", err)
	}
	return count > 0, nil
}

// MarkSeeded records that first-run seeding is done.
func (r *CategoryRepository) MarkSeeded(ctx context.Context) error {
	setting := model.Setting{Key: seededKey, Value: "1"}
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(&setting).Error
	if err != nil {
		return fmt.Errorf("write seed marker: %w", err)
	}
	return nil
}
