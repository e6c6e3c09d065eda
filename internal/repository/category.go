package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"tasktracker/internal/models"
	"tasktracker/internal/text_processing"
)

// DefaultCategoryName is the label every classification path can fall
// back to. The category is created at bootstrap if missing.
const DefaultCategoryName = "Other"

type CategoryRepository interface {
	All() ([]models.Category, error)
	GetByID(id int64) (*models.Category, error)
	GetByName(name string) (*models.Category, error)
	GetOrCreate(name string) (*models.Category, error)
	// KeywordCategories returns non-default categories that carry a
	// processed keyword representation, for the keyword matcher.
	KeywordCategories() ([]models.Category, error)
	// Save inserts or updates a category, recomputing its normalized
	// keyword representation from the raw keyword field.
	Save(ctx context.Context, category *models.Category) error
}

type categoryRepository struct {
	db         *sqlx.DB
	normalizer text_processing.Normalizer
	logger     *zap.Logger
}

func NewCategoryRepository(db *sqlx.DB, normalizer text_processing.Normalizer, logger *zap.Logger) CategoryRepository {
	return &categoryRepository{db: db, normalizer: normalizer, logger: logger}
}

func (r *categoryRepository) All() ([]models.Category, error) {
	var categories []models.Category
	query := `SELECT id, name, description, keywords, processed_keywords FROM categories ORDER BY id`
	if err := r.db.Select(&categories, query); err != nil {
		return nil, err
	}
	return categories, nil
}

func (r *categoryRepository) GetByID(id int64) (*models.Category, error) {
	var category models.Category
	query := `SELECT id, name, description, keywords, processed_keywords FROM categories WHERE id = $1`
	if err := r.db.Get(&category, query, id); err != nil {
		return nil, err
	}
	return &category, nil
}

func (r *categoryRepository) GetByName(name string) (*models.Category, error) {
	var category models.Category
	query := `SELECT id, name, description, keywords, processed_keywords FROM categories WHERE name = $1`
	err := r.db.Get(&category, query, name)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &category, nil
}

func (r *categoryRepository) GetOrCreate(name string) (*models.Category, error) {
	category, err := r.GetByName(name)
	if err != nil {
		return nil, err
	}
	if category != nil {
		return category, nil
	}

	category = &models.Category{Name: name}
	query := `INSERT INTO categories (name, description, keywords, processed_keywords)
		VALUES ($1, '', '', '')
		ON CONFLICT (name) DO UPDATE SET name = EXCLUDED.name
		RETURNING id, name, description, keywords, processed_keywords`
	if err := r.db.QueryRowx(query, name).StructScan(category); err != nil {
		return nil, err
	}
	r.logger.Info("Category created", zap.String("name", name), zap.Int64("category_id", category.ID))
	return category, nil
}

func (r *categoryRepository) KeywordCategories() ([]models.Category, error) {
	var categories []models.Category
	query := `SELECT id, name, description, keywords, processed_keywords
		FROM categories
		WHERE processed_keywords <> '' AND name <> $1
		ORDER BY id`
	if err := r.db.Select(&categories, query, DefaultCategoryName); err != nil {
		return nil, err
	}
	return categories, nil
}

func (r *categoryRepository) Save(ctx context.Context, category *models.Category) error {
	category.ProcessedKeywords = ProcessKeywords(ctx, r.normalizer, category.Keywords)

	if category.ID == 0 {
		query := `INSERT INTO categories (name, description, keywords, processed_keywords)
			VALUES ($1, $2, $3, $4) RETURNING id`
		return r.db.QueryRowx(query, category.Name, category.Description,
			category.Keywords, category.ProcessedKeywords).Scan(&category.ID)
	}

	query := `UPDATE categories
		SET name = $1, description = $2, keywords = $3, processed_keywords = $4
		WHERE id = $5`
	result, err := r.db.Exec(query, category.Name, category.Description,
		category.Keywords, category.ProcessedKeywords, category.ID)
	if err != nil {
		return err
	}
	return requireRowsAffected(result, "category", category.ID)
}

// ProcessKeywords derives the normalized keyword representation from a raw
// comma-separated keyword field. Each comma-separated phrase becomes one
// keyword group of space-separated lemmas; empty and unnormalizable
// phrases are dropped. The result is deterministic for a given input.
func ProcessKeywords(ctx context.Context, normalizer text_processing.Normalizer, raw string) string {
	if raw == "" {
		return ""
	}

	var processed []string
	for _, phrase := range strings.Split(raw, ",") {
		cleaned := strings.TrimSpace(phrase)
		if cleaned == "" {
			continue
		}
		normalized, err := normalizer.Normalize(ctx, cleaned)
		if err != nil || normalized == "" {
			continue
		}
		processed = append(processed, normalized)
	}
	return strings.Join(processed, ",")
}
