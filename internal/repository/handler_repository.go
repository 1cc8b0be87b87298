package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/FistoAR/AkiraServiceTool-sub000/internal/domain"
)

// HandlerRepository reads the live handler roster. The roster is owned by the
// surrounding staffing system; the engine never writes to it.
type HandlerRepository interface {
	GetByID(ctx context.Context, id string) (*domain.Handler, error)
	GetByEmail(ctx context.Context, email string) (*domain.Handler, error)
	List(ctx context.Context, filter HandlerFilter) ([]domain.Handler, error)
}

// HandlerFilter defines query params for roster listing.
type HandlerFilter struct {
	Department *string
	Role       *domain.HandlerRole
	Active     *bool
	Limit      int
	Offset     int
}

type handlerRepository struct {
	pool *pgxpool.Pool
}

// NewHandlerRepository instantiates the repository.
func NewHandlerRepository(pool *pgxpool.Pool) HandlerRepository {
	return &handlerRepository{pool: pool}
}

func (r *handlerRepository) GetByID(ctx context.Context, id string) (*domain.Handler, error) {
	const query = `
        SELECT id, name, email, password_hash, department, role, active_flag, created_at, updated_at
        FROM handlers WHERE id=$1`
	return r.fetchSingle(ctx, query, id)
}

func (r *handlerRepository) GetByEmail(ctx context.Context, email string) (*domain.Handler, error) {
	const query = `
        SELECT id, name, email, password_hash, department, role, active_flag, created_at, updated_at
        FROM handlers WHERE email=$1`
	return r.fetchSingle(ctx, query, email)
}

func (r *handlerRepository) fetchSingle(ctx context.Context, query string, arg any) (*domain.Handler, error) {
	var handler domain.Handler
	if err := r.pool.QueryRow(ctx, query, arg).Scan(
		&handler.ID,
		&handler.Name,
		&handler.Email,
		&handler.PasswordHash,
		&handler.Department,
		&handler.Role,
		&handler.Active,
		&handler.CreatedAt,
		&handler.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &handler, nil
}

func (r *handlerRepository) List(ctx context.Context, filter HandlerFilter) ([]domain.Handler, error) {
	query := `
        SELECT id, name, email, password_hash, department, role, active_flag, created_at, updated_at
        FROM handlers`
	args := []any{}
	clauses := []string{}

	if filter.Department != nil {
		args = append(args, *filter.Department)
		clauses = append(clauses, fmt.Sprintf("department=$%d", len(args)))
	}
	if filter.Role != nil {
		args = append(args, *filter.Role)
		clauses = append(clauses, fmt.Sprintf("role=$%d", len(args)))
	}
	if filter.Active != nil {
		args = append(args, *filter.Active)
		clauses = append(clauses, fmt.Sprintf("active_flag=$%d", len(args)))
	}
	if len(clauses) > 0 {
		query += " WHERE " + strings.Join(clauses, " AND ")
	}

	query += " ORDER BY id"
	limit := filter.Limit
	if limit <= 0 {
		limit = 500
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}
	query += fmt.Sprintf(" LIMIT %d OFFSET %d", limit, offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.Handler
	for rows.Next() {
		var handler domain.Handler
		if err := rows.Scan(
			&handler.ID,
			&handler.Name,
			&handler.Email,
			&handler.PasswordHash,
			&handler.Department,
			&handler.Role,
			&handler.Active,
			&handler.CreatedAt,
			&handler.UpdatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, handler)
	}
	return result, rows.Err()
}
