package domain

import (
	"time"

	"github.com/google/uuid"
)

type Role string

const (
	RoleVendor    Role = "vendor"
	RoleOrganizer Role = "organizer"
)

// Actor is the authenticated identity attached to every write. Credential
// management lives in the external identity provider; the core only carries
// id and role.
type Actor struct {
	ID   uuid.UUID
	Role Role
}

type Listing struct {
	ID                 uuid.UUID `json:"id"`
	OwnerID            uuid.UUID `json:"owner_id"`
	Name               string    `json:"name"`
	Date               time.Time `json:"date"`
	BasePrice          float64   `json:"base_price"`
	ExpectedAttendance int       `json:"expected_attendance"`
	ContactPhone       *string   `json:"contact_phone,omitempty"`
	CreatedAt          time.Time `json:"created_at"`
}

type NegotiationStatus string

const (
	StatusPending  NegotiationStatus = "pending"
	StatusApproved NegotiationStatus = "approved"
	StatusDeclined NegotiationStatus = "declined"
)

// Terminal reports whether the status can no longer change.
func (s NegotiationStatus) Terminal() bool {
	return s == StatusApproved || s == StatusDeclined
}

type TransitionAction string

const (
	ActionApprove TransitionAction = "approve"
	ActionDecline TransitionAction = "decline"
)

type Negotiation struct {
	ID            uuid.UUID         `json:"id"`
	ListingID     uuid.UUID         `json:"listing_id"`
	VendorID      uuid.UUID         `json:"vendor_id"`
	ProposedPrice float64           `json:"proposed_price"`
	Commission    float64           `json:"commission"`
	NetPayout     float64           `json:"net_payout"`
	Status        NegotiationStatus `json:"status"`
	CreatedAt     time.Time         `json:"created_at"`
}

type Message struct {
	ID         uuid.UUID `json:"id"`
	SenderID   uuid.UUID `json:"sender_id"`
	ReceiverID uuid.UUID `json:"receiver_id"`
	Body       string    `json:"body"`
	CreatedAt  time.Time `json:"created_at"`
}

// Profile holds the display fields kept in the profile store. Vendor-only
// fields stay empty until the first save.
type Profile struct {
	ID           uuid.UUID `json:"id"`
	Role         Role      `json:"role"`
	StallName    string    `json:"stall_name"`
	FoodCategory string    `json:"food_category"`
	Phone        string    `json:"phone"`
}

// NegotiationView is a negotiation enriched with counterpart display fields.
// The join is read-time only, never stored.
type NegotiationView struct {
	Negotiation
	ListingName  string `json:"listing_name"`
	StallName    string `json:"stall_name,omitempty"`
	FoodCategory string `json:"food_category,omitempty"`
}

// RevenueSummary aggregates approved negotiations for one listing or for an
// organizer's whole portfolio.
type RevenueSummary struct {
	Gross         float64 `json:"gross"`
	Commission    float64 `json:"commission"`
	Net           float64 `json:"net"`
	PendingCount  int     `json:"pending_count"`
	ApprovedCount int     `json:"approved_count"`
}
