package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stallworks/marketplace/internal/adapters/crdb"
	mongoadapter "github.com/stallworks/marketplace/internal/adapters/mongo"
	"github.com/stallworks/marketplace/internal/config"
	"github.com/stallworks/marketplace/internal/conversation"
	"github.com/stallworks/marketplace/internal/domain"
	"github.com/stallworks/marketplace/internal/idempotency"
	"github.com/stallworks/marketplace/internal/negotiation"
)

type Handlers struct {
	cfg           *config.Config
	repo          *crdb.Repository
	negotiations  *negotiation.Service
	conversations *conversation.Service
	profiles      *mongoadapter.ProfileRepository
	idemp         *idempotency.Idempotency
}

func NewHandlers(cfg *config.Config, repo *crdb.Repository, negotiations *negotiation.Service, conversations *conversation.Service, profiles *mongoadapter.ProfileRepository, idemp *idempotency.Idempotency) *Handlers {
	return &Handlers{
		cfg:           cfg,
		repo:          repo,
		negotiations:  negotiations,
		conversations: conversations,
		profiles:      profiles,
		idemp:         idemp,
	}
}

// writeDomainError maps the error taxonomy onto status codes so the
// application layer can tell validation, authorization, conflict and
// transport failures apart.
func writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		http.Error(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, domain.ErrInvalidInput):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, domain.ErrForbidden):
		http.Error(w, err.Error(), http.StatusForbidden)
	case errors.Is(err, domain.ErrDuplicateOffer),
		errors.Is(err, domain.ErrInvalidTransition),
		errors.Is(err, domain.ErrSerializationFailure):
		http.Error(w, err.Error(), http.StatusConflict)
	default:
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) []byte {
	data, _ := json.Marshal(v)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(data)
	return data
}

func (h *Handlers) CreateListing(w http.ResponseWriter, r *http.Request) {
	actor, ok := ActorFromContext(r.Context())
	if !ok || actor.Role != domain.RoleOrganizer {
		http.Error(w, "only organizers may create listings", http.StatusForbidden)
		return
	}

	var req struct {
		Name               string    `json:"name"`
		Date               time.Time `json:"date"`
		BasePrice          float64   `json:"base_price"`
		ExpectedAttendance int       `json:"expected_attendance"`
		ContactPhone       *string   `json:"contact_phone"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if req.Name == "" || req.BasePrice <= 0 {
		http.Error(w, "name and a positive base price are required", http.StatusBadRequest)
		return
	}

	listing := domain.Listing{
		ID:                 uuid.New(),
		OwnerID:            actor.ID,
		Name:               req.Name,
		Date:               req.Date,
		BasePrice:          req.BasePrice,
		ExpectedAttendance: req.ExpectedAttendance,
		ContactPhone:       req.ContactPhone,
		CreatedAt:          time.Now().UTC(),
	}
	if err := h.repo.CreateListing(r.Context(), listing); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, listing)
}

func (h *Handlers) GetListing(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "invalid id", http.StatusBadRequest)
		return
	}
	listing, err := h.repo.GetListing(r.Context(), id)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, listing)
}

func (h *Handlers) ListMyListings(w http.ResponseWriter, r *http.Request) {
	actor, ok := ActorFromContext(r.Context())
	if !ok || actor.Role != domain.RoleOrganizer {
		http.Error(w, "only organizers have listings", http.StatusForbidden)
		return
	}
	listings, err := h.repo.ListListingsByOwner(r.Context(), actor.ID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	if listings == nil {
		listings = []domain.Listing{}
	}
	writeJSON(w, http.StatusOK, listings)
}

func (h *Handlers) CreateNegotiation(w http.ResponseWriter, r *http.Request) {
	key := r.Header.Get("Idempotency-Key")
	existing, err := h.idemp.Get(r.Context(), key)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if existing != nil {
		w.WriteHeader(existing.Status)
		w.Write(existing.Result)
		return
	}

	actor, ok := ActorFromContext(r.Context())
	if !ok {
		http.Error(w, "unauthenticated", http.StatusUnauthorized)
		return
	}

	var req struct {
		ListingID     uuid.UUID `json:"listing_id"`
		ProposedPrice float64   `json:"proposed_price"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	n, err := h.negotiations.Create(r.Context(), actor, req.ListingID, req.ProposedPrice)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	data := writeJSON(w, http.StatusCreated, n)
	h.idemp.Set(r.Context(), key, idempotency.Response{Status: http.StatusCreated, Result: data})
}

func (h *Handlers) DecideNegotiation(w http.ResponseWriter, r *http.Request) {
	actor, ok := ActorFromContext(r.Context())
	if !ok {
		http.Error(w, "unauthenticated", http.StatusUnauthorized)
		return
	}
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "invalid id", http.StatusBadRequest)
		return
	}

	var req struct {
		Action domain.TransitionAction `json:"action"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	n, err := h.negotiations.Transition(r.Context(), actor, id, req.Action)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, n)
}

func (h *Handlers) ListNegotiations(w http.ResponseWriter, r *http.Request) {
	if s := r.URL.Query().Get("listing_id"); s != "" {
		id, err := uuid.Parse(s)
		if err != nil {
			http.Error(w, "invalid listing_id", http.StatusBadRequest)
			return
		}
		views, err := h.negotiations.ListForListing(r.Context(), id)
		if err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, views)
		return
	}
	if s := r.URL.Query().Get("vendor_id"); s != "" {
		id, err := uuid.Parse(s)
		if err != nil {
			http.Error(w, "invalid vendor_id", http.StatusBadRequest)
			return
		}
		views, err := h.negotiations.ListForVendor(r.Context(), id)
		if err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, views)
		return
	}
	// No filter: organizers get every negotiation across their listings.
	actor, ok := ActorFromContext(r.Context())
	if !ok || actor.Role != domain.RoleOrganizer {
		http.Error(w, "listing_id or vendor_id is required", http.StatusBadRequest)
		return
	}
	negotiations, err := h.repo.ListNegotiationsByOrganizer(r.Context(), actor.ID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	if negotiations == nil {
		negotiations = []domain.Negotiation{}
	}
	writeJSON(w, http.StatusOK, negotiations)
}

func (h *Handlers) ListingRevenue(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "invalid id", http.StatusBadRequest)
		return
	}
	summary, err := h.negotiations.AggregateListing(r.Context(), id)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

func (h *Handlers) OrganizerRevenue(w http.ResponseWriter, r *http.Request) {
	actor, ok := ActorFromContext(r.Context())
	if !ok || actor.Role != domain.RoleOrganizer {
		http.Error(w, "only organizers have a revenue view", http.StatusForbidden)
		return
	}
	summary, err := h.negotiations.AggregateOrganizer(r.Context(), actor.ID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

func (h *Handlers) ConversationHistory(w http.ResponseWriter, r *http.Request) {
	actor, ok := ActorFromContext(r.Context())
	if !ok {
		http.Error(w, "unauthenticated", http.StatusUnauthorized)
		return
	}
	peer, err := uuid.Parse(chi.URLParam(r, "peer"))
	if err != nil {
		http.Error(w, "invalid peer id", http.StatusBadRequest)
		return
	}
	messages, err := h.conversations.History(r.Context(), actor.ID, peer)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	if messages == nil {
		messages = []domain.Message{}
	}
	writeJSON(w, http.StatusOK, messages)
}

func (h *Handlers) SendMessage(w http.ResponseWriter, r *http.Request) {
	key := r.Header.Get("Idempotency-Key")
	existing, err := h.idemp.Get(r.Context(), key)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if existing != nil {
		w.WriteHeader(existing.Status)
		w.Write(existing.Result)
		return
	}

	actor, ok := ActorFromContext(r.Context())
	if !ok {
		http.Error(w, "unauthenticated", http.StatusUnauthorized)
		return
	}
	peer, err := uuid.Parse(chi.URLParam(r, "peer"))
	if err != nil {
		http.Error(w, "invalid peer id", http.StatusBadRequest)
		return
	}

	var req struct {
		Body string `json:"body"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	m, err := h.conversations.Send(r.Context(), actor, peer, req.Body)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	data := writeJSON(w, http.StatusCreated, m)
	h.idemp.Set(r.Context(), key, idempotency.Response{Status: http.StatusCreated, Result: data})
}

// StreamConversation pushes new messages for one conversation over SSE. The
// subscription is torn down the moment the client disconnects.
func (h *Handlers) StreamConversation(w http.ResponseWriter, r *http.Request) {
	actor, ok := ActorFromContext(r.Context())
	if !ok {
		http.Error(w, "unauthenticated", http.StatusUnauthorized)
		return
	}
	peer, err := uuid.Parse(chi.URLParam(r, "peer"))
	if err != nil {
		http.Error(w, "invalid peer id", http.StatusBadRequest)
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	sub, err := h.conversations.Subscribe(r.Context(), actor.ID, peer)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	defer sub.Close()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			return
		case m, ok := <-sub.C():
			if !ok {
				return
			}
			data, err := json.Marshal(m)
			if err != nil {
				continue
			}
			w.Write([]byte("data: "))
			w.Write(data)
			w.Write([]byte("\n\n"))
			flusher.Flush()
		}
	}
}

func (h *Handlers) GetProfile(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "invalid id", http.StatusBadRequest)
		return
	}
	profile, err := h.profiles.Get(r.Context(), id)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, profile)
}

func (h *Handlers) UpsertProfile(w http.ResponseWriter, r *http.Request) {
	actor, ok := ActorFromContext(r.Context())
	if !ok {
		http.Error(w, "unauthenticated", http.StatusUnauthorized)
		return
	}

	var req struct {
		StallName    string `json:"stall_name"`
		FoodCategory string `json:"food_category"`
		Phone        string `json:"phone"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	profile := domain.Profile{
		ID:           actor.ID,
		Role:         actor.Role,
		StallName:    req.StallName,
		FoodCategory: req.FoodCategory,
		Phone:        req.Phone,
	}
	if err := h.profiles.Upsert(r.Context(), profile); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, profile)
}

func (h *Handlers) Healthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("OK"))
}

func (h *Handlers) Readyz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("Ready"))
}
