package storage

import (
	"context"
	"fmt"

	"github.com/booking-sync/backend/internal/storage/models"
)

// ReservationRepository reads the confirmed reservation ledger. The ledger
// is maintained by the property management system; nothing here writes it.
type ReservationRepository struct {
	BaseRepository
}

// NewReservationRepository creates a new reservation repository.
func NewReservationRepository(db *DB) *ReservationRepository {
	return &ReservationRepository{
		BaseRepository: NewBaseRepository(db),
	}
}

// ListActiveByUnit returns the unit's reservations that still occupy it.
func (r *ReservationRepository) ListActiveByUnit(ctx context.Context, q Queryable, unitID string) ([]models.Reservation, error) {
	rows, err := r.q(q).QueryContext(ctx, `
		SELECT id, unit_id, check_in, check_out, guest_name, status, source
		FROM reservations
		WHERE unit_id = ? AND status != ?
		ORDER BY check_in, id
	`, unitID, models.ReservationStatusCancelled)
	if err != nil {
		return nil, fmt.Errorf("querying reservations: %w", err)
	}
	defer rows.Close()

	var out []models.Reservation
	for rows.Next() {
		var res models.Reservation
		if err := rows.Scan(
			&res.ID, &res.UnitID, &res.CheckIn, &res.CheckOut,
			&res.GuestName, &res.Status, &res.Source,
		); err != nil {
			return nil, fmt.Errorf("scanning reservation: %w", err)
		}
		out = append(out, res)
	}
	return out, rows.Err()
}
