package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
)

// TicketLoadRepository supplies the per-handler active ticket counts the
// assignment policy balances on. A ticket is active while its status is not
// RESOLVED or CLOSED; the count binds to the ticket's current handler, not
// the original assignee.
type TicketLoadRepository interface {
	ActiveCounts(ctx context.Context) (map[string]int, error)
}

type ticketLoadRepository struct {
	pool *pgxpool.Pool
}

// NewTicketLoadRepository instantiates the repository.
func NewTicketLoadRepository(pool *pgxpool.Pool) TicketLoadRepository {
	return &ticketLoadRepository{pool: pool}
}

func (r *ticketLoadRepository) ActiveCounts(ctx context.Context) (map[string]int, error) {
	const query = `
        SELECT current_handler_id, COUNT(*)
        FROM tickets
        WHERE status NOT IN ('RESOLVED', 'CLOSED') AND current_handler_id IS NOT NULL
        GROUP BY current_handler_id`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var handlerID string
		var count int
		if err := rows.Scan(&handlerID, &count); err != nil {
			return nil, err
		}
		counts[handlerID] = count
	}
	return counts, rows.Err()
}
