package domain

import (
	"time"

	"github.com/google/uuid"
)

// CommissionRate is the fixed platform-wide cut applied to every negotiated
// price.
const CommissionRate = 0.05

// NewNegotiation builds a pending negotiation with the commission and net
// payout derived from the proposed price.
func NewNegotiation(listingID, vendorID uuid.UUID, proposedPrice float64) Negotiation {
	commission := proposedPrice * CommissionRate
	return Negotiation{
		ID:            uuid.New(),
		ListingID:     listingID,
		VendorID:      vendorID,
		ProposedPrice: proposedPrice,
		Commission:    commission,
		NetPayout:     proposedPrice - commission,
		Status:        StatusPending,
		CreatedAt:     time.Now().UTC(),
	}
}

// StatusFor maps a transition action to the status it settles on.
func (a TransitionAction) StatusFor() (NegotiationStatus, bool) {
	switch a {
	case ActionApprove:
		return StatusApproved, true
	case ActionDecline:
		return StatusDeclined, true
	}
	return "", false
}
