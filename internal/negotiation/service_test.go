package negotiation_test

import (
	"context"
	"sort"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/stallworks/marketplace/internal/domain"
	"github.com/stallworks/marketplace/internal/negotiation"
	"github.com/stallworks/marketplace/internal/observability"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeStore struct {
	listings     map[uuid.UUID]domain.Listing
	negotiations map[uuid.UUID]domain.Negotiation
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		listings:     map[uuid.UUID]domain.Listing{},
		negotiations: map[uuid.UUID]domain.Negotiation{},
	}
}

func (f *fakeStore) WithTx(ctx context.Context, fn func(tx pgx.Tx) error) error {
	return fn(nil)
}

func (f *fakeStore) GetListing(ctx context.Context, id uuid.UUID) (*domain.Listing, error) {
	l, ok := f.listings[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &l, nil
}

func (f *fakeStore) CreateNegotiation(ctx context.Context, tx pgx.Tx, n domain.Negotiation) error {
	for _, existing := range f.negotiations {
		if existing.ListingID == n.ListingID && existing.VendorID == n.VendorID && existing.Status == domain.StatusPending {
			return domain.ErrDuplicateOffer
		}
	}
	f.negotiations[n.ID] = n
	return nil
}

func (f *fakeStore) GetNegotiation(ctx context.Context, id uuid.UUID) (*domain.Negotiation, error) {
	n, ok := f.negotiations[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &n, nil
}

func (f *fakeStore) SettleNegotiation(ctx context.Context, id uuid.UUID, status domain.NegotiationStatus) (*domain.Negotiation, error) {
	n, ok := f.negotiations[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	if n.Status.Terminal() {
		return nil, domain.ErrInvalidTransition
	}
	n.Status = status
	f.negotiations[id] = n
	return &n, nil
}

func (f *fakeStore) ListNegotiationsByListing(ctx context.Context, listingID uuid.UUID) ([]domain.Negotiation, error) {
	var out []domain.Negotiation
	for _, n := range f.negotiations {
		if n.ListingID == listingID {
			out = append(out, n)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (f *fakeStore) ListNegotiationsByVendor(ctx context.Context, vendorID uuid.UUID) ([]domain.Negotiation, error) {
	var out []domain.Negotiation
	for _, n := range f.negotiations {
		if n.VendorID == vendorID {
			out = append(out, n)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (f *fakeStore) AggregateByListing(ctx context.Context, listingID uuid.UUID) (*domain.RevenueSummary, error) {
	var s domain.RevenueSummary
	for _, n := range f.negotiations {
		if n.ListingID != listingID {
			continue
		}
		f.tally(&s, n)
	}
	return &s, nil
}

func (f *fakeStore) AggregateByOrganizer(ctx context.Context, organizerID uuid.UUID) (*domain.RevenueSummary, error) {
	var s domain.RevenueSummary
	for _, n := range f.negotiations {
		if l, ok := f.listings[n.ListingID]; !ok || l.OwnerID != organizerID {
			continue
		}
		f.tally(&s, n)
	}
	return &s, nil
}

func (f *fakeStore) tally(s *domain.RevenueSummary, n domain.Negotiation) {
	switch n.Status {
	case domain.StatusApproved:
		s.Gross += n.ProposedPrice
		s.Commission += n.Commission
		s.Net += n.NetPayout
		s.ApprovedCount++
	case domain.StatusPending:
		s.PendingCount++
	}
}

type fakeGuard struct {
	denyNext bool
	held     map[string]bool
	released []string
}

func newFakeGuard() *fakeGuard {
	return &fakeGuard{held: map[string]bool{}}
}

func (g *fakeGuard) SetOfferGuard(ctx context.Context, listingID, vendorID string, ttl time.Duration) (bool, error) {
	key := listingID + ":" + vendorID
	if g.denyNext || g.held[key] {
		return false, nil
	}
	g.held[key] = true
	return true, nil
}

func (g *fakeGuard) ReleaseOfferGuard(ctx context.Context, listingID, vendorID string) error {
	key := listingID + ":" + vendorID
	delete(g.held, key)
	g.released = append(g.released, key)
	return nil
}

type fakeProfiles struct {
	profiles map[uuid.UUID]domain.Profile
}

func (p *fakeProfiles) GetMany(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]domain.Profile, error) {
	out := map[uuid.UUID]domain.Profile{}
	for _, id := range ids {
		if prof, ok := p.profiles[id]; ok {
			out[id] = prof
		}
	}
	return out, nil
}

type fakeAuditor struct {
	offers    int
	decisions int
}

func (a *fakeAuditor) LogOffer(ctx context.Context, n domain.Negotiation) error {
	a.offers++
	return nil
}

func (a *fakeAuditor) LogDecision(ctx context.Context, actorID uuid.UUID, n domain.Negotiation) error {
	a.decisions++
	return nil
}

type fixture struct {
	svc       *negotiation.Service
	store     *fakeStore
	guard     *fakeGuard
	profiles  *fakeProfiles
	audit     *fakeAuditor
	organizer domain.Actor
	vendor    domain.Actor
	listing   domain.Listing
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := newFakeStore()
	guard := newFakeGuard()
	profiles := &fakeProfiles{profiles: map[uuid.UUID]domain.Profile{}}
	audit := &fakeAuditor{}

	organizer := domain.Actor{ID: uuid.New(), Role: domain.RoleOrganizer}
	vendor := domain.Actor{ID: uuid.New(), Role: domain.RoleVendor}
	listing := domain.Listing{
		ID:        uuid.New(),
		OwnerID:   organizer.ID,
		Name:      "Spring Food Fest",
		BasePrice: 2500,
		CreatedAt: time.Now(),
	}
	store.listings[listing.ID] = listing

	svc := negotiation.NewService(store, guard, profiles, audit, 30*time.Second, observability.NewLogger())
	return &fixture{
		svc:       svc,
		store:     store,
		guard:     guard,
		profiles:  profiles,
		audit:     audit,
		organizer: organizer,
		vendor:    vendor,
		listing:   listing,
	}
}

func TestCreate_DerivesCommission(t *testing.T) {
	f := newFixture(t)

	n, err := f.svc.Create(context.Background(), f.vendor, f.listing.ID, 3000)
	require.NoError(t, err)
	assert.Equal(t, 150.0, n.Commission)
	assert.Equal(t, 2850.0, n.NetPayout)
	assert.Equal(t, domain.StatusPending, n.Status)
	assert.Equal(t, 1, f.audit.offers)
}

func TestCreate_Validation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.Create(ctx, f.organizer, f.listing.ID, 100)
	assert.ErrorIs(t, err, domain.ErrForbidden)

	_, err = f.svc.Create(ctx, f.vendor, f.listing.ID, 0)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	_, err = f.svc.Create(ctx, f.vendor, f.listing.ID, -50)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	_, err = f.svc.Create(ctx, f.vendor, uuid.New(), 100)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestCreate_DuplicateActiveOffer(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.Create(ctx, f.vendor, f.listing.ID, 1000)
	require.NoError(t, err)

	_, err = f.svc.Create(ctx, f.vendor, f.listing.ID, 1200)
	assert.ErrorIs(t, err, domain.ErrDuplicateOffer)
}

func TestCreate_StoreConflictReleasesGuard(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	n := domain.NewNegotiation(f.listing.ID, f.vendor.ID, 1000)
	f.store.negotiations[n.ID] = n

	// The guard has no record of the first offer (e.g. its TTL lapsed), so
	// the store's invariant has to catch the duplicate.
	_, err := f.svc.Create(ctx, f.vendor, f.listing.ID, 1200)
	assert.ErrorIs(t, err, domain.ErrDuplicateOffer)
	assert.NotEmpty(t, f.guard.released)
}

func TestTransition_ApproveThenDecline(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	n, err := f.svc.Create(ctx, f.vendor, f.listing.ID, 2000)
	require.NoError(t, err)

	approved, err := f.svc.Transition(ctx, f.organizer, n.ID, domain.ActionApprove)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusApproved, approved.Status)

	_, err = f.svc.Transition(ctx, f.organizer, n.ID, domain.ActionDecline)
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)

	stored, err := f.store.GetNegotiation(ctx, n.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusApproved, stored.Status)
}

func TestTransition_Authorization(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	n, err := f.svc.Create(ctx, f.vendor, f.listing.ID, 2000)
	require.NoError(t, err)

	otherOrganizer := domain.Actor{ID: uuid.New(), Role: domain.RoleOrganizer}
	_, err = f.svc.Transition(ctx, otherOrganizer, n.ID, domain.ActionApprove)
	assert.ErrorIs(t, err, domain.ErrForbidden)

	// The vendor who opened the offer cannot settle it either.
	_, err = f.svc.Transition(ctx, f.vendor, n.ID, domain.ActionApprove)
	assert.ErrorIs(t, err, domain.ErrForbidden)

	// Ownership is checked even once the negotiation is terminal.
	_, err = f.svc.Transition(ctx, f.organizer, n.ID, domain.ActionDecline)
	require.NoError(t, err)
	_, err = f.svc.Transition(ctx, otherOrganizer, n.ID, domain.ActionApprove)
	assert.ErrorIs(t, err, domain.ErrForbidden)
}

func TestTransition_InvalidAction(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	n, err := f.svc.Create(ctx, f.vendor, f.listing.ID, 2000)
	require.NoError(t, err)

	_, err = f.svc.Transition(ctx, f.organizer, n.ID, domain.TransitionAction("withdraw"))
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	_, err = f.svc.Transition(ctx, f.organizer, uuid.New(), domain.ActionApprove)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestTransition_ReleasesGuardForNewOffer(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	n, err := f.svc.Create(ctx, f.vendor, f.listing.ID, 2000)
	require.NoError(t, err)

	_, err = f.svc.Transition(ctx, f.organizer, n.ID, domain.ActionDecline)
	require.NoError(t, err)

	// Declined is terminal, so the vendor may open a fresh offer.
	_, err = f.svc.Create(ctx, f.vendor, f.listing.ID, 1800)
	assert.NoError(t, err)
}

func TestAggregateOrganizer(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	vendors := []domain.Actor{
		{ID: uuid.New(), Role: domain.RoleVendor},
		{ID: uuid.New(), Role: domain.RoleVendor},
		{ID: uuid.New(), Role: domain.RoleVendor},
	}
	prices := []float64{1000, 2000, 500}
	var ids []uuid.UUID
	for i, v := range vendors {
		n, err := f.svc.Create(ctx, v, f.listing.ID, prices[i])
		require.NoError(t, err)
		ids = append(ids, n.ID)
	}
	for _, id := range ids[:2] {
		_, err := f.svc.Transition(ctx, f.organizer, id, domain.ActionApprove)
		require.NoError(t, err)
	}

	summary, err := f.svc.AggregateOrganizer(ctx, f.organizer.ID)
	require.NoError(t, err)
	assert.Equal(t, 3000.0, summary.Gross)
	assert.Equal(t, 150.0, summary.Commission)
	assert.Equal(t, 2850.0, summary.Net)
	assert.Equal(t, 1, summary.PendingCount)
	assert.Equal(t, 2, summary.ApprovedCount)

	perListing, err := f.svc.AggregateListing(ctx, f.listing.ID)
	require.NoError(t, err)
	assert.Equal(t, summary, perListing)
}

func TestListForListing_Enrichment(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.profiles.profiles[f.vendor.ID] = domain.Profile{
		ID:           f.vendor.ID,
		Role:         domain.RoleVendor,
		StallName:    "Momo Junction",
		FoodCategory: "Tibetan",
	}

	_, err := f.svc.Create(ctx, f.vendor, f.listing.ID, 1500)
	require.NoError(t, err)
	unknownVendor := domain.Actor{ID: uuid.New(), Role: domain.RoleVendor}
	_, err = f.svc.Create(ctx, unknownVendor, f.listing.ID, 900)
	require.NoError(t, err)

	views, err := f.svc.ListForListing(ctx, f.listing.ID)
	require.NoError(t, err)
	require.Len(t, views, 2)

	byVendor := map[uuid.UUID]domain.NegotiationView{}
	for _, v := range views {
		assert.Equal(t, f.listing.Name, v.ListingName)
		byVendor[v.VendorID] = v
	}
	assert.Equal(t, "Momo Junction", byVendor[f.vendor.ID].StallName)
	assert.Equal(t, "Tibetan", byVendor[f.vendor.ID].FoodCategory)
	assert.Empty(t, byVendor[unknownVendor.ID].StallName)
}

func TestListForVendor_Enrichment(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	second := domain.Listing{
		ID:        uuid.New(),
		OwnerID:   f.organizer.ID,
		Name:      "Winter Carnival",
		BasePrice: 4000,
		CreatedAt: time.Now().Add(time.Minute),
	}
	f.store.listings[second.ID] = second

	_, err := f.svc.Create(ctx, f.vendor, f.listing.ID, 1500)
	require.NoError(t, err)
	_, err = f.svc.Create(ctx, f.vendor, second.ID, 3500)
	require.NoError(t, err)

	views, err := f.svc.ListForVendor(ctx, f.vendor.ID)
	require.NoError(t, err)
	require.Len(t, views, 2)

	names := map[uuid.UUID]string{}
	for _, v := range views {
		names[v.ListingID] = v.ListingName
	}
	assert.Equal(t, "Spring Food Fest", names[f.listing.ID])
	assert.Equal(t, "Winter Carnival", names[second.ID])
}
