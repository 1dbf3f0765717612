package sqlite

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/atvirokodosprendimai/editorjs/internal/adapters/sqlite/gormsqlite"
	"github.com/atvirokodosprendimai/editorjs/internal/core/domain"
)

type templateModel struct {
	Name        string    `gorm:"column:name;primaryKey"`
	BlockType   string    `gorm:"column:block_type;not null"`
	PrintFormat string    `gorm:"column:print_format;not null"`
	Revision    string    `gorm:"column:revision;not null"`
	CreatedAt   time.Time `gorm:"column:created_at;not null"`
	UpdatedAt   time.Time `gorm:"column:updated_at;not null"`
}

func (templateModel) TableName() string {
	return "editorjs_templates"
}

type templateFieldModel struct {
	TemplateName string `gorm:"column:template_name;primaryKey"`
	Idx          int    `gorm:"column:idx;primaryKey"`
	Key          string `gorm:"column:field_key;not null"`
	Type         string `gorm:"column:field_type;not null"`
	Nullable     bool   `gorm:"column:nullable;not null"`
}

func (templateFieldModel) TableName() string {
	return "editorjs_template_fields"
}

// TemplateRepository stores templates and their ordered field descriptors.
// Reads always hit the database.
type TemplateRepository struct {
	db *gormsqlite.DB
}

func NewTemplateRepository(db *gormsqlite.DB) *TemplateRepository {
	return &TemplateRepository{db: db}
}

func (r *TemplateRepository) Upsert(ctx context.Context, tmpl domain.Template) (domain.Template, error) {
	now := time.Now().UTC()
	model := templateModel{
		Name:        tmpl.Name,
		BlockType:   tmpl.Type,
		PrintFormat: tmpl.PrintFormat,
		Revision:    uuid.NewString(),
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	var out domain.Template
	err := r.db.WriteTX(ctx, func(tx *gormsqlite.Tx) error {
		err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "name"}},
			DoUpdates: clause.AssignmentColumns([]string{"block_type", "print_format", "revision", "updated_at"}),
		}).Create(&model).Error
		if err != nil {
			return fmt.Errorf("upsert template: %w", err)
		}

		if err := tx.Where("template_name = ?", tmpl.Name).Delete(&templateFieldModel{}).Error; err != nil {
			return fmt.Errorf("clear template fields: %w", err)
		}
		if len(tmpl.Fields) > 0 {
			fields := make([]templateFieldModel, 0, len(tmpl.Fields))
			for i, f := range tmpl.Fields {
				fields = append(fields, templateFieldModel{
					TemplateName: tmpl.Name,
					Idx:          i,
					Key:          f.Key,
					Type:         string(f.Type),
					Nullable:     f.Nullable,
				})
			}
			if err := tx.Create(&fields).Error; err != nil {
				return fmt.Errorf("insert template fields: %w", err)
			}
		}

		saved, err := loadTemplate(tx, tmpl.Name)
		if err != nil {
			return fmt.Errorf("load upserted template: %w", err)
		}
		out = saved
		return nil
	})
	if err != nil {
		return domain.Template{}, err
	}
	return out, nil
}

func (r *TemplateRepository) Get(ctx context.Context, name string) (domain.Template, error) {
	var out domain.Template
	err := r.db.ReadTX(ctx, func(tx *gormsqlite.Tx) error {
		tmpl, err := loadTemplate(tx, name)
		if err != nil {
			return err
		}
		out = tmpl
		return nil
	})
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.Template{}, domain.ErrNotFound
		}
		return domain.Template{}, fmt.Errorf("get template: %w", err)
	}
	return out, nil
}

func (r *TemplateRepository) Delete(ctx context.Context, name string) (bool, error) {
	var affected int64
	err := r.db.WriteTX(ctx, func(tx *gormsqlite.Tx) error {
		if err := tx.Where("template_name = ?", name).Delete(&templateFieldModel{}).Error; err != nil {
			return fmt.Errorf("delete template fields: %w", err)
		}
		res := tx.Where("name = ?", name).Delete(&templateModel{})
		if res.Error != nil {
			return fmt.Errorf("delete template: %w", res.Error)
		}
		affected = res.RowsAffected
		return nil
	})
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}

func (r *TemplateRepository) List(ctx context.Context, filter domain.TemplateFilter) ([]domain.Template, error) {
	var out []domain.Template
	err := r.db.ReadTX(ctx, func(tx *gormsqlite.Tx) error {
		query := tx.Model(&templateModel{})
		if filter.Prefix != "" {
			query = query.Where("name >= ? AND name < ?", filter.Prefix, filter.Prefix+"\uffff")
		}
		if filter.After != "" {
			query = query.Where("name > ?", filter.After)
		}
		if filter.Limit > 0 {
			query = query.Limit(filter.Limit)
		}

		var models []templateModel
		if err := query.Order("name ASC").Find(&models).Error; err != nil {
			return fmt.Errorf("list templates: %w", err)
		}
		if len(models) == 0 {
			return nil
		}

		names := make([]string, 0, len(models))
		for _, m := range models {
			names = append(names, m.Name)
		}
		var fields []templateFieldModel
		if err := tx.Where("template_name IN ?", names).Order("template_name ASC, idx ASC").Find(&fields).Error; err != nil {
			return fmt.Errorf("list template fields: %w", err)
		}
		byTemplate := make(map[string][]templateFieldModel, len(models))
		for _, f := range fields {
			byTemplate[f.TemplateName] = append(byTemplate[f.TemplateName], f)
		}

		out = make([]domain.Template, 0, len(models))
		for _, m := range models {
			out = append(out, toTemplateDomain(m, byTemplate[m.Name]))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func loadTemplate(tx *gormsqlite.Tx, name string) (domain.Template, error) {
	var model templateModel
	if err := tx.Where("name = ?", name).First(&model).Error; err != nil {
		return domain.Template{}, err
	}
	var fields []templateFieldModel
	if err := tx.Where("template_name = ?", name).Order("idx ASC").Find(&fields).Error; err != nil {
		return domain.Template{}, err
	}
	return toTemplateDomain(model, fields), nil
}

func toTemplateDomain(model templateModel, fields []templateFieldModel) domain.Template {
	descriptors := make([]domain.FieldDescriptor, 0, len(fields))
	for _, f := range fields {
		descriptors = append(descriptors, domain.FieldDescriptor{
			Key:      f.Key,
			Type:     domain.FieldType(f.Type),
			Nullable: f.Nullable,
		})
	}
	return domain.Template{
		Name:        model.Name,
		Type:        model.BlockType,
		PrintFormat: model.PrintFormat,
		Fields:      descriptors,
		Revision:    model.Revision,
		CreatedAt:   model.CreatedAt,
		UpdatedAt:   model.UpdatedAt,
	}
}
