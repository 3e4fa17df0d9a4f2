package crdb

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/stallworks/marketplace/internal/domain"
)

// CreateNegotiation inserts a pending negotiation. The partial unique index
// on (listing_id, vendor_id) WHERE status = 'pending' is the authority on the
// one-active-offer invariant; a conflicting insert affects zero rows.
func (r *Repository) CreateNegotiation(ctx context.Context, tx pgx.Tx, n domain.Negotiation) error {
	result, err := tx.Exec(ctx, `
		INSERT INTO negotiations (id, listing_id, vendor_id, proposed_price, commission, net_payout, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, 'pending', $7)
		ON CONFLICT (listing_id, vendor_id) WHERE status = 'pending' DO NOTHING
		RETURNING id
	`, n.ID, n.ListingID, n.VendorID, n.ProposedPrice, n.Commission, n.NetPayout, n.CreatedAt)
	if err != nil {
		return err
	}
	if result.RowsAffected() == 0 {
		return domain.ErrDuplicateOffer
	}
	return nil
}

func (r *Repository) GetNegotiation(ctx context.Context, id uuid.UUID) (*domain.Negotiation, error) {
	var n domain.Negotiation
	err := r.pool.QueryRow(ctx, `
		SELECT id, listing_id, vendor_id, proposed_price, commission, net_payout, status, created_at
		FROM negotiations WHERE id = $1
	`, id).Scan(&n.ID, &n.ListingID, &n.VendorID, &n.ProposedPrice, &n.Commission, &n.NetPayout, &n.Status, &n.CreatedAt)
	if err == pgx.ErrNoRows {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &n, nil
}

// SettleNegotiation moves a pending negotiation to a terminal status. The
// update is conditional on the current status so a second decision, or two
// near-simultaneous ones, cannot overwrite an already-settled negotiation.
func (r *Repository) SettleNegotiation(ctx context.Context, id uuid.UUID, status domain.NegotiationStatus) (*domain.Negotiation, error) {
	var n domain.Negotiation
	err := r.pool.QueryRow(ctx, `
		UPDATE negotiations SET status = $2
		WHERE id = $1 AND status = 'pending'
		RETURNING id, listing_id, vendor_id, proposed_price, commission, net_payout, status, created_at
	`, id, status).Scan(&n.ID, &n.ListingID, &n.VendorID, &n.ProposedPrice, &n.Commission, &n.NetPayout, &n.Status, &n.CreatedAt)
	if err == pgx.ErrNoRows {
		// Either absent or already terminal; read back to tell the two apart.
		existing, getErr := r.GetNegotiation(ctx, id)
		if getErr != nil {
			return nil, getErr
		}
		if existing.Status.Terminal() {
			return nil, domain.ErrInvalidTransition
		}
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &n, nil
}

func (r *Repository) ListNegotiationsByListing(ctx context.Context, listingID uuid.UUID) ([]domain.Negotiation, error) {
	return r.listNegotiations(ctx, `
		SELECT id, listing_id, vendor_id, proposed_price, commission, net_payout, status, created_at
		FROM negotiations WHERE listing_id = $1 ORDER BY created_at DESC
	`, listingID)
}

func (r *Repository) ListNegotiationsByVendor(ctx context.Context, vendorID uuid.UUID) ([]domain.Negotiation, error) {
	return r.listNegotiations(ctx, `
		SELECT id, listing_id, vendor_id, proposed_price, commission, net_payout, status, created_at
		FROM negotiations WHERE vendor_id = $1 ORDER BY created_at DESC
	`, vendorID)
}

func (r *Repository) ListNegotiationsByOrganizer(ctx context.Context, organizerID uuid.UUID) ([]domain.Negotiation, error) {
	return r.listNegotiations(ctx, `
		SELECT n.id, n.listing_id, n.vendor_id, n.proposed_price, n.commission, n.net_payout, n.status, n.created_at
		FROM negotiations n JOIN listings l ON l.id = n.listing_id
		WHERE l.owner_id = $1 ORDER BY n.created_at DESC
	`, organizerID)
}

func (r *Repository) listNegotiations(ctx context.Context, query string, arg any) ([]domain.Negotiation, error) {
	rows, err := r.pool.Query(ctx, query, arg)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var negotiations []domain.Negotiation
	for rows.Next() {
		var n domain.Negotiation
		if err := rows.Scan(&n.ID, &n.ListingID, &n.VendorID, &n.ProposedPrice, &n.Commission, &n.NetPayout, &n.Status, &n.CreatedAt); err != nil {
			return nil, err
		}
		negotiations = append(negotiations, n)
	}
	return negotiations, rows.Err()
}

// AggregateByListing sums approved negotiations for one listing and counts
// pending and approved ones.
func (r *Repository) AggregateByListing(ctx context.Context, listingID uuid.UUID) (*domain.RevenueSummary, error) {
	return r.aggregate(ctx, `
		SELECT
			COALESCE(SUM(proposed_price) FILTER (WHERE status = 'approved'), 0),
			COALESCE(SUM(commission) FILTER (WHERE status = 'approved'), 0),
			COALESCE(SUM(net_payout) FILTER (WHERE status = 'approved'), 0),
			COUNT(*) FILTER (WHERE status = 'pending'),
			COUNT(*) FILTER (WHERE status = 'approved')
		FROM negotiations WHERE listing_id = $1
	`, listingID)
}

// AggregateByOrganizer sums approved negotiations across every listing the
// organizer owns.
func (r *Repository) AggregateByOrganizer(ctx context.Context, organizerID uuid.UUID) (*domain.RevenueSummary, error) {
	return r.aggregate(ctx, `
		SELECT
			COALESCE(SUM(n.proposed_price) FILTER (WHERE n.status = 'approved'), 0),
			COALESCE(SUM(n.commission) FILTER (WHERE n.status = 'approved'), 0),
			COALESCE(SUM(n.net_payout) FILTER (WHERE n.status = 'approved'), 0),
			COUNT(*) FILTER (WHERE n.status = 'pending'),
			COUNT(*) FILTER (WHERE n.status = 'approved')
		FROM negotiations n JOIN listings l ON l.id = n.listing_id
		WHERE l.owner_id = $1
	`, organizerID)
}

func (r *Repository) aggregate(ctx context.Context, query string, arg any) (*domain.RevenueSummary, error) {
	var s domain.RevenueSummary
	err := r.pool.QueryRow(ctx, query, arg).Scan(&s.Gross, &s.Commission, &s.Net, &s.PendingCount, &s.ApprovedCount)
	if err != nil {
		return nil, err
	}
	return &s, nil
}
