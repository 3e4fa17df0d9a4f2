package negotiation

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/stallworks/marketplace/internal/domain"
	"github.com/stallworks/marketplace/internal/observability"
	"golang.org/x/sync/errgroup"
)

// Store is the slice of the record store the engine needs.
type Store interface {
	WithTx(ctx context.Context, fn func(tx pgx.Tx) error) error
	GetListing(ctx context.Context, id uuid.UUID) (*domain.Listing, error)
	CreateNegotiation(ctx context.Context, tx pgx.Tx, n domain.Negotiation) error
	GetNegotiation(ctx context.Context, id uuid.UUID) (*domain.Negotiation, error)
	SettleNegotiation(ctx context.Context, id uuid.UUID, status domain.NegotiationStatus) (*domain.Negotiation, error)
	ListNegotiationsByListing(ctx context.Context, listingID uuid.UUID) ([]domain.Negotiation, error)
	ListNegotiationsByVendor(ctx context.Context, vendorID uuid.UUID) ([]domain.Negotiation, error)
	AggregateByListing(ctx context.Context, listingID uuid.UUID) (*domain.RevenueSummary, error)
	AggregateByOrganizer(ctx context.Context, organizerID uuid.UUID) (*domain.RevenueSummary, error)
}

// OfferGuard absorbs double-submitted offers before they reach the store.
type OfferGuard interface {
	SetOfferGuard(ctx context.Context, listingID, vendorID string, ttl time.Duration) (bool, error)
	ReleaseOfferGuard(ctx context.Context, listingID, vendorID string) error
}

// Profiles supplies counterpart display fields for list enrichment.
type Profiles interface {
	GetMany(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]domain.Profile, error)
}

// Auditor records lifecycle events; failures are logged, never surfaced.
type Auditor interface {
	LogOffer(ctx context.Context, n domain.Negotiation) error
	LogDecision(ctx context.Context, actorID uuid.UUID, n domain.Negotiation) error
}

type Service struct {
	store    Store
	guard    OfferGuard
	profiles Profiles
	audit    Auditor
	guardTTL time.Duration
	logger   observability.Logger
}

func NewService(store Store, guard OfferGuard, profiles Profiles, audit Auditor, guardTTL time.Duration, logger observability.Logger) *Service {
	return &Service{
		store:    store,
		guard:    guard,
		profiles: profiles,
		audit:    audit,
		guardTTL: guardTTL,
		logger:   logger,
	}
}

// Create opens a pending negotiation for the acting vendor against a listing.
// The duplicate-active-offer invariant is re-checked on every attempt.
func (s *Service) Create(ctx context.Context, actor domain.Actor, listingID uuid.UUID, proposedPrice float64) (*domain.Negotiation, error) {
	if actor.Role != domain.RoleVendor {
		return nil, domain.ErrForbidden
	}
	if proposedPrice <= 0 {
		return nil, domain.ErrInvalidInput
	}
	if _, err := s.store.GetListing(ctx, listingID); err != nil {
		return nil, err
	}

	ok, err := s.guard.SetOfferGuard(ctx, listingID.String(), actor.ID.String(), s.guardTTL)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, domain.ErrDuplicateOffer
	}

	n := domain.NewNegotiation(listingID, actor.ID, proposedPrice)
	err = s.store.WithTx(ctx, func(tx pgx.Tx) error {
		return s.store.CreateNegotiation(ctx, tx, n)
	})
	if err != nil {
		if releaseErr := s.guard.ReleaseOfferGuard(ctx, listingID.String(), actor.ID.String()); releaseErr != nil {
			s.logger.Error("failed to release offer guard", releaseErr)
		}
		return nil, err
	}

	observability.NegotiationsCreated.Inc()
	if err := s.audit.LogOffer(ctx, n); err != nil {
		s.logger.Error("offer audit failed", err)
	}
	return &n, nil
}

// Transition settles a pending negotiation. Only the owning organizer may act,
// and a terminal negotiation is never overwritten.
func (s *Service) Transition(ctx context.Context, actor domain.Actor, negotiationID uuid.UUID, action domain.TransitionAction) (*domain.Negotiation, error) {
	status, ok := action.StatusFor()
	if !ok {
		return nil, domain.ErrInvalidInput
	}

	n, err := s.store.GetNegotiation(ctx, negotiationID)
	if err != nil {
		return nil, err
	}
	listing, err := s.store.GetListing(ctx, n.ListingID)
	if err != nil {
		return nil, err
	}
	if actor.Role != domain.RoleOrganizer || actor.ID != listing.OwnerID {
		return nil, domain.ErrForbidden
	}

	settled, err := s.store.SettleNegotiation(ctx, negotiationID, status)
	if err != nil {
		return nil, err
	}

	if err := s.guard.ReleaseOfferGuard(ctx, settled.ListingID.String(), settled.VendorID.String()); err != nil {
		s.logger.Error("failed to release offer guard", err)
	}
	observability.NegotiationsSettled.WithLabelValues(string(settled.Status)).Inc()
	if err := s.audit.LogDecision(ctx, actor.ID, *settled); err != nil {
		s.logger.Error("decision audit failed", err)
	}
	return settled, nil
}

// AggregateListing reports approved revenue and offer counts for one listing.
func (s *Service) AggregateListing(ctx context.Context, listingID uuid.UUID) (*domain.RevenueSummary, error) {
	if _, err := s.store.GetListing(ctx, listingID); err != nil {
		return nil, err
	}
	return s.store.AggregateByListing(ctx, listingID)
}

// AggregateOrganizer reports approved revenue across every listing the
// organizer owns.
func (s *Service) AggregateOrganizer(ctx context.Context, organizerID uuid.UUID) (*domain.RevenueSummary, error) {
	return s.store.AggregateByOrganizer(ctx, organizerID)
}

// ListForListing is the organizer view: newest-first negotiations on one
// listing, enriched with each vendor's stall profile.
func (s *Service) ListForListing(ctx context.Context, listingID uuid.UUID) ([]domain.NegotiationView, error) {
	listing, err := s.store.GetListing(ctx, listingID)
	if err != nil {
		return nil, err
	}
	negotiations, err := s.store.ListNegotiationsByListing(ctx, listingID)
	if err != nil {
		return nil, err
	}

	vendorIDs := make([]uuid.UUID, 0, len(negotiations))
	seen := make(map[uuid.UUID]bool)
	for _, n := range negotiations {
		if !seen[n.VendorID] {
			seen[n.VendorID] = true
			vendorIDs = append(vendorIDs, n.VendorID)
		}
	}
	profiles, err := s.profiles.GetMany(ctx, vendorIDs)
	if err != nil {
		return nil, err
	}

	views := make([]domain.NegotiationView, 0, len(negotiations))
	for _, n := range negotiations {
		view := domain.NegotiationView{Negotiation: n, ListingName: listing.Name}
		if p, ok := profiles[n.VendorID]; ok {
			view.StallName = p.StallName
			view.FoodCategory = p.FoodCategory
		}
		views = append(views, view)
	}
	return views, nil
}

// ListForVendor is the vendor view: newest-first negotiations across listings,
// enriched with each listing's name.
func (s *Service) ListForVendor(ctx context.Context, vendorID uuid.UUID) ([]domain.NegotiationView, error) {
	negotiations, err := s.store.ListNegotiationsByVendor(ctx, vendorID)
	if err != nil {
		return nil, err
	}

	listingIDs := make([]uuid.UUID, 0, len(negotiations))
	seen := make(map[uuid.UUID]bool)
	for _, n := range negotiations {
		if !seen[n.ListingID] {
			seen[n.ListingID] = true
			listingIDs = append(listingIDs, n.ListingID)
		}
	}

	names := make(map[uuid.UUID]string, len(listingIDs))
	g, gctx := errgroup.WithContext(ctx)
	results := make([]*domain.Listing, len(listingIDs))
	for i, id := range listingIDs {
		i, id := i, id
		g.Go(func() error {
			l, err := s.store.GetListing(gctx, id)
			if err != nil {
				return err
			}
			results[i] = l
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	for _, l := range results {
		names[l.ID] = l.Name
	}

	views := make([]domain.NegotiationView, 0, len(negotiations))
	for _, n := range negotiations {
		views = append(views, domain.NegotiationView{Negotiation: n, ListingName: names[n.ListingID]})
	}
	return views, nil
}
