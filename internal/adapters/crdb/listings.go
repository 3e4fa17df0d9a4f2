package crdb

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/stallworks/marketplace/internal/domain"
)

func (r *Repository) CreateListing(ctx context.Context, l domain.Listing) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO listings (id, owner_id, name, date, base_price, expected_attendance, contact_phone, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, l.ID, l.OwnerID, l.Name, l.Date, l.BasePrice, l.ExpectedAttendance, l.ContactPhone, l.CreatedAt)
	return err
}

func (r *Repository) GetListing(ctx context.Context, id uuid.UUID) (*domain.Listing, error) {
	var l domain.Listing
	err := r.pool.QueryRow(ctx, `
		SELECT id, owner_id, name, date, base_price, expected_attendance, contact_phone, created_at
		FROM listings WHERE id = $1
	`, id).Scan(&l.ID, &l.OwnerID, &l.Name, &l.Date, &l.BasePrice, &l.ExpectedAttendance, &l.ContactPhone, &l.CreatedAt)
	if err == pgx.ErrNoRows {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &l, nil
}

func (r *Repository) ListListingsByOwner(ctx context.Context, ownerID uuid.UUID) ([]domain.Listing, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, owner_id, name, date, base_price, expected_attendance, contact_phone, created_at
		FROM listings WHERE owner_id = $1 ORDER BY created_at DESC
	`, ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var listings []domain.Listing
	for rows.Next() {
		var l domain.Listing
		if err := rows.Scan(&l.ID, &l.OwnerID, &l.Name, &l.Date, &l.BasePrice, &l.ExpectedAttendance, &l.ContactPhone, &l.CreatedAt); err != nil {
			return nil, err
		}
		listings = append(listings, l)
	}
	return listings, rows.Err()
}
