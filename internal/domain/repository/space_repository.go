package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"impactlab/internal/common"
	"impactlab/internal/domain/model"
	"strings"
)

type SpaceRepository interface {
	Create(ctx context.Context, space *model.Space) error
	Update(ctx context.Context, space *model.Space) error
	Delete(ctx context.Context, id string) error
	FindByID(ctx context.Context, id string) (*model.Space, error)
	FindBySlug(ctx context.Context, slug string) (*model.Space, error)
	List(ctx context.Context, limit, offset int, filter model.SpaceFilter) ([]model.Space, int, error)
}

type pgSpaceRepository struct {
	db *sql.DB
}

func NewPgSpaceRepository(db *sql.DB) SpaceRepository {
	return &pgSpaceRepository{db: db}
}

const spaceColumns = `s.id, s.name, s.slug, s.description, s.type, s.capacity, s.price_per_hour,
               s.amenities, s.images, s.status, s.created_at, s.updated_at`

func scanSpace(row interface{ Scan(...any) error }, s *model.Space) error {
	var amenities, images []byte
	if err := row.Scan(&s.ID, &s.Name, &s.Slug, &s.Description, &s.Type, &s.Capacity, &s.PricePerHour,
		&amenities, &images, &s.Status, &s.CreatedAt, &s.UpdatedAt); err != nil {
		return err
	}
	if err := decodeStringList(amenities, &s.Amenities); err != nil {
		return fmt.Errorf("amenities: %w", err)
	}
	if err := decodeStringList(images, &s.Images); err != nil {
		return fmt.Errorf("images: %w", err)
	}
	return nil
}

func decodeStringList(raw []byte, dst *[]string) error {
	*dst = []string{}
	if len(raw) == 0 {
		return nil
	}
	return json.Unmarshal(raw, dst)
}

func encodeStringList(list []string) string {
	if list == nil {
		list = []string{}
	}
	b, _ := json.Marshal(list)
	return string(b)
}

func (r *pgSpaceRepository) Create(ctx context.Context, s *model.Space) error {
	query := `INSERT INTO spaces (id, name, slug, description, type, capacity, price_per_hour, amenities, images, status)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8::jsonb, $9::jsonb, $10)
	          RETURNING created_at, updated_at`
	err := r.db.QueryRowContext(ctx, query, s.ID, s.Name, s.Slug, s.Description, s.Type, s.Capacity, s.PricePerHour,
		encodeStringList(s.Amenities), encodeStringList(s.Images), s.Status).Scan(&s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		if common.IsUniqueViolation(err) {
			return fmt.Errorf("space with this slug already exists: %w", common.ErrConflict)
		}
		return fmt.Errorf("pgSpaceRepository.Create: %w", err)
	}
	return nil
}

func (r *pgSpaceRepository) Update(ctx context.Context, s *model.Space) error {
	query := `UPDATE spaces SET
                name = $1, slug = $2, description = $3, type = $4, capacity = $5, price_per_hour = $6,
                amenities = $7::jsonb, images = $8::jsonb, status = $9, updated_at = CURRENT_TIMESTAMP
              WHERE id = $10
              RETURNING updated_at`
	err := r.db.QueryRowContext(ctx, query, s.Name, s.Slug, s.Description, s.Type, s.Capacity, s.PricePerHour,
		encodeStringList(s.Amenities), encodeStringList(s.Images), s.Status, s.ID).Scan(&s.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return common.ErrNotFound
		}
		if common.IsUniqueViolation(err) {
			return fmt.Errorf("space with this slug already exists: %w", common.ErrConflict)
		}
		return fmt.Errorf("pgSpaceRepository.Update: %w", err)
	}
	return nil
}

func (r *pgSpaceRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM spaces WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("pgSpaceRepository.Delete: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("pgSpaceRepository.Delete rows: %w", err)
	}
	if n == 0 {
		return common.ErrNotFound
	}
	return nil
}

func (r *pgSpaceRepository) FindByID(ctx context.Context, id string) (*model.Space, error) {
	return r.findOne(ctx, "s.id", id, "pgSpaceRepository.FindByID")
}

func (r *pgSpaceRepository) FindBySlug(ctx context.Context, slug string) (*model.Space, error) {
	return r.findOne(ctx, "s.slug", slug, "pgSpaceRepository.FindBySlug")
}

func (r *pgSpaceRepository) findOne(ctx context.Context, column, value, op string) (*model.Space, error) {
	query := `SELECT ` + spaceColumns + ` FROM spaces s WHERE ` + column + ` = $1`
	space := &model.Space{}
	if err := scanSpace(r.db.QueryRowContext(ctx, query, value), space); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return space, nil
}

// likeEscaper makes a search term match literally inside ILIKE.
var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// List builds the WHERE clause from whichever filter fields are set and
// returns one page plus the total number of matches.
func (r *pgSpaceRepository) List(ctx context.Context, limit, offset int, filter model.SpaceFilter) ([]model.Space, int, error) {
	var conditions []string
	var args []interface{}
	argID := 1

	if filter.Status != "" {
		conditions = append(conditions, fmt.Sprintf("s.status = $%d", argID))
		args = append(args, filter.Status)
		argID++
	}

	if filter.Type != "" {
		conditions = append(conditions, fmt.Sprintf("s.type = $%d", argID))
		args = append(args, filter.Type)
		argID++
	}

	if filter.MinCapacity > 0 {
		conditions = append(conditions, fmt.Sprintf("s.capacity >= $%d", argID))
		args = append(args, filter.MinCapacity)
		argID++
	}

	if filter.MaxPrice != nil {
		conditions = append(conditions, fmt.Sprintf("s.price_per_hour <= $%d", argID))
		args = append(args, *filter.MaxPrice)
		argID++
	}

	if len(filter.Amenities) > 0 {
		conditions = append(conditions, fmt.Sprintf("s.amenities @> $%d::jsonb", argID))
		args = append(args, encodeStringList(filter.Amenities))
		argID++
	}

	if filter.Search != "" {
		conditions = append(conditions, fmt.Sprintf("(s.name ILIKE $%d ESCAPE '\\' OR s.description ILIKE $%d ESCAPE '\\')", argID, argID))
		args = append(args, "%"+likeEscaper.Replace(filter.Search)+"%")
		argID++
	}

	var where string
	if len(conditions) > 0 {
		where = " WHERE " + strings.Join(conditions, " AND ")
	}

	var total int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM spaces s`+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("pgSpaceRepository.List count: %w", err)
	}

	query := `SELECT ` + spaceColumns + ` FROM spaces s` + where +
		fmt.Sprintf(" ORDER BY s.created_at DESC, s.id LIMIT $%d OFFSET $%d", argID, argID+1)
	args = append(args, limit, offset)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("pgSpaceRepository.List query: %w", err)
	}
	defer rows.Close()

	spaces := []model.Space{}
	for rows.Next() {
		var s model.Space
		if err := scanSpace(rows, &s); err != nil {
			return nil, 0, fmt.Errorf("pgSpaceRepository.List scan: %w", err)
		}
		spaces = append(spaces, s)
	}
	if err = rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("pgSpaceRepository.List rows.Err: %w", err)
	}
	return spaces, total, nil
}
