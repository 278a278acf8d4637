package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"fintrack/internal/core"
)

const categoryColumns = "id, owner, name, type, division, is_active, created_at"

func scanCategory(s rowScanner) (core.Category, error) {
	var (
		c         core.Category
		typ       string
		division  string
		active    int
		createdAt int64
	)
	if err := s.Scan(&c.ID, &c.Owner, &c.Name, &typ, &division, &active, &createdAt); err != nil {
		return core.Category{}, err
	}
	c.Type = core.CategoryType(typ)
	c.Division = core.Division(division)
	c.IsActive = active != 0
	c.CreatedAt = fromUnixNano(createdAt)
	return c, nil
}

// InsertCategory returns core.ErrConflict when (owner, name, division) is taken.
func (r *SQLiteRepository) InsertCategory(ctx context.Context, c core.Category) (core.Category, error) {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	c.CreatedAt = fromUnixNano(unixNano(c.CreatedAt))

	_, err := r.db.ExecContext(ctx, "INSERT INTO categories ("+categoryColumns+") VALUES (?, ?, ?, ?, ?, ?, ?)",
		c.ID, c.Owner, c.Name, string(c.Type), string(c.Division), boolToInt(c.IsActive), unixNano(c.CreatedAt))
	if err != nil {
		if isUniqueViolation(err) {
			return core.Category{}, fmt.Errorf("category %q: %w", c.Name, core.ErrConflict)
		}
		return core.Category{}, fmt.Errorf("insert category: %w", err)
	}
	return c, nil
}

// ListCategories returns the owner's active categories. A non-empty typ keeps
// categories of that type plus those usable for both; an empty division keeps all.
func (r *SQLiteRepository) ListCategories(ctx context.Context, owner string, typ core.CategoryType, division core.Division) ([]core.Category, error) {
	query := "SELECT " + categoryColumns + " FROM categories WHERE owner = ? AND is_active = 1"
	args := []any{owner}
	if typ != "" {
		query += " AND type IN (?, ?)"
		args = append(args, string(typ), string(core.CategoryBoth))
	}
	if division != "" {
		query += " AND division = ?"
		args = append(args, string(division))
	}
	query += " ORDER BY name"

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query categories: %w", err)
	}
	defer rows.Close()

	categories := []core.Category{}
	for rows.Next() {
		c, err := scanCategory(rows)
		if err != nil {
			return nil, fmt.Errorf("scan category: %w", err)
		}
		categories = append(categories, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate categories: %w", err)
	}
	return categories, nil
}

func (r *SQLiteRepository) GetCategory(ctx context.Context, id string) (core.Category, error) {
	c, err := scanCategory(r.db.QueryRowContext(ctx, "SELECT "+categoryColumns+" FROM categories WHERE id = ?", id))
	if errors.Is(err, sql.ErrNoRows) {
		return core.Category{}, core.ErrNotFound
	}
	if err != nil {
		return core.Category{}, fmt.Errorf("get category: %w", err)
	}
	return c, nil
}

// DeactivateCategory hides a category from listings. Entries keep their category text.
func (r *SQLiteRepository) DeactivateCategory(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, "UPDATE categories SET is_active = 0 WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("deactivate category: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("deactivate category: %w", err)
	}
	if n == 0 {
		return core.ErrNotFound
	}
	return nil
}
