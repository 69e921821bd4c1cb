// models/commission.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Commission status values
const (
	CommissionStatusPending     = "pending"
	CommissionStatusNegotiating = "negotiating"
	CommissionStatusAccepted    = "accepted"
	CommissionStatusRejected    = "rejected"
)

// Commission type records which side made the most recent active proposal
const (
	CommissionTypeManagerOffer = "manager_offer"
	CommissionTypeAdminCounter = "admin_counter"
)

// Negotiation ledger actions
const (
	NegotiationActionOffer          = "offer"
	NegotiationActionOfferUpdated   = "offer_updated"
	NegotiationActionAdminAccept    = "admin_accept"
	NegotiationActionAdminReject    = "admin_reject"
	NegotiationActionAdminCounter   = "admin_counter"
	NegotiationActionManagerAccept  = "manager_accept_counter"
	NegotiationActionManagerReject  = "manager_reject_counter"
	NegotiationActionManagerCounter = "manager_counter"
)

// Actor roles
const (
	RoleManager = "manager"
	RoleAdmin   = "admin"
)

// Response actions shared by admin and manager response operations
const (
	ResponseActionAccept  = "accept"
	ResponseActionReject  = "reject"
	ResponseActionCounter = "counter"
)

// Commission percentages must be economically meaningful and capped at 100%
const (
	MinCommissionPercentage = 0.1
	MaxCommissionPercentage = 100.0
)

// NegotiationEntry is one record in the append-only negotiation ledger.
// Entries are never mutated or truncated after being appended.
type NegotiationEntry struct {
	Action     string             `bson:"action" json:"action"`
	ByUser     primitive.ObjectID `bson:"byUser" json:"byUser"`
	ByRole     string             `bson:"byRole" json:"byRole"`
	Percentage *float64           `bson:"percentage,omitempty" json:"percentage,omitempty"`
	Note       string             `bson:"note,omitempty" json:"note,omitempty"`
	At         time.Time          `bson:"at" json:"at"`
}

// NegotiationActor identifies who is driving a transition. One shared
// transition path serves both sides instead of per-role duplicates.
type NegotiationActor struct {
	Role   string
	UserID primitive.ObjectID
}

// Commission is the negotiable percentage agreement between a manager and
// the platform over a service's revenue. The top-level fields are the
// authoritative state; the negotiation history is audit-only and never read
// back to reconstruct state.
type Commission struct {
	ID                     primitive.ObjectID  `bson:"_id,omitempty" json:"id"`
	ManagerID              primitive.ObjectID  `bson:"managerId" json:"managerId"`
	ServiceID              primitive.ObjectID  `bson:"serviceId" json:"serviceId"`
	OfferedPercentage      float64             `bson:"offeredPercentage" json:"offeredPercentage"`
	AdminCounterPercentage *float64            `bson:"adminCounterPercentage,omitempty" json:"adminCounterPercentage,omitempty"`
	FinalPercentage        *float64            `bson:"finalPercentage,omitempty" json:"finalPercentage,omitempty"`
	Status                 string              `bson:"status" json:"status"`
	Type                   string              `bson:"type" json:"type"`
	ManagerNotes           string              `bson:"managerNotes,omitempty" json:"managerNotes,omitempty"`
	AdminNotes             string              `bson:"adminNotes,omitempty" json:"adminNotes,omitempty"`
	AdminRespondedBy       *primitive.ObjectID `bson:"adminRespondedBy,omitempty" json:"adminRespondedBy,omitempty"`
	AdminRespondedAt       *time.Time          `bson:"adminRespondedAt,omitempty" json:"adminRespondedAt,omitempty"`
	ManagerResponse        string              `bson:"managerResponse,omitempty" json:"managerResponse,omitempty"`
	ManagerRespondedAt     *time.Time          `bson:"managerRespondedAt,omitempty" json:"managerRespondedAt,omitempty"`
	AgreedAt               *time.Time          `bson:"agreedAt,omitempty" json:"agreedAt,omitempty"`
	AgreedBy               *primitive.ObjectID `bson:"agreedBy,omitempty" json:"agreedBy,omitempty"`
	NegotiationHistory     []NegotiationEntry  `bson:"negotiationHistory" json:"negotiationHistory"`
	CreatedAt              time.Time           `bson:"createdAt" json:"createdAt"`
	UpdatedAt              time.Time           `bson:"updatedAt" json:"updatedAt"`
}

// ValidCommissionPercentage reports whether p lies in the allowed range.
func ValidCommissionPercentage(p float64) bool {
	return p >= MinCommissionPercentage && p <= MaxCommissionPercentage
}

// NewCommissionOffer creates a commission in its initial pending state from
// a manager's offer.
func NewCommissionOffer(managerID, serviceID primitive.ObjectID, percentage float64, notes string, now time.Time) (*Commission, error) {
	if !ValidCommissionPercentage(percentage) {
		return nil, NewValidationError("offered percentage must be between %g and %g", MinCommissionPercentage, MaxCommissionPercentage)
	}

	commission := &Commission{
		ManagerID:         managerID,
		ServiceID:         serviceID,
		OfferedPercentage: percentage,
		Status:            CommissionStatusPending,
		Type:              CommissionTypeManagerOffer,
		ManagerNotes:      notes,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	commission.appendHistory(NegotiationActionOffer, NegotiationActor{Role: RoleManager, UserID: managerID}, &percentage, notes, now)
	return commission, nil
}

// ResubmitOffer replaces the current offer on an existing commission in
// place instead of creating a duplicate record for the same service. The
// negotiation restarts from pending with the admin-side response fields
// cleared.
func (c *Commission) ResubmitOffer(managerID primitive.ObjectID, percentage float64, notes string, now time.Time) error {
	if !ValidCommissionPercentage(percentage) {
		return NewValidationError("offered percentage must be between %g and %g", MinCommissionPercentage, MaxCommissionPercentage)
	}
	if c.ManagerID != managerID {
		return NewForbiddenError("commission belongs to another manager")
	}
	if c.IsFinalized() {
		return NewInvalidStateError("commission negotiation is already finalized")
	}

	c.OfferedPercentage = percentage
	c.Status = CommissionStatusPending
	c.Type = CommissionTypeManagerOffer
	c.ManagerNotes = notes
	c.clearAdminResponse()
	c.UpdatedAt = now
	c.appendHistory(NegotiationActionOfferUpdated, NegotiationActor{Role: RoleManager, UserID: managerID}, &percentage, notes, now)
	return nil
}

// ApplyAdminResponse transitions the commission according to the admin's
// accept, reject or counter decision.
func (c *Commission) ApplyAdminResponse(adminID primitive.ObjectID, action string, counterPercentage *float64, notes string, now time.Time) error {
	if c.IsFinalized() {
		return NewInvalidStateError("commission negotiation is already finalized")
	}

	actor := NegotiationActor{Role: RoleAdmin, UserID: adminID}

	switch action {
	case ResponseActionAccept:
		agreed := c.OfferedPercentage
		c.Status = CommissionStatusAccepted
		c.FinalPercentage = &agreed
		c.AgreedAt = &now
		c.AgreedBy = &adminID
		c.appendHistory(NegotiationActionAdminAccept, actor, &agreed, notes, now)

	case ResponseActionReject:
		c.Status = CommissionStatusRejected
		c.appendHistory(NegotiationActionAdminReject, actor, nil, notes, now)

	case ResponseActionCounter:
		if counterPercentage == nil {
			return NewValidationError("counter percentage is required for a counter offer")
		}
		if !ValidCommissionPercentage(*counterPercentage) {
			return NewValidationError("counter percentage must be between %g and %g", MinCommissionPercentage, MaxCommissionPercentage)
		}
		counter := *counterPercentage
		c.Status = CommissionStatusNegotiating
		c.Type = CommissionTypeAdminCounter
		c.AdminCounterPercentage = &counter
		c.appendHistory(NegotiationActionAdminCounter, actor, &counter, notes, now)

	default:
		return NewValidationError("invalid action %q: must be accept, reject or counter", action)
	}

	c.AdminRespondedBy = &adminID
	c.AdminRespondedAt = &now
	c.AdminNotes = notes
	c.UpdatedAt = now
	return nil
}

// ApplyManagerResponse transitions the commission according to the manager's
// reaction to an outstanding admin counter offer.
func (c *Commission) ApplyManagerResponse(managerID primitive.ObjectID, response string, counterPercentage *float64, notes string, now time.Time) error {
	if c.ManagerID != managerID {
		return NewForbiddenError("commission belongs to another manager")
	}
	if c.IsFinalized() {
		return NewInvalidStateError("commission negotiation is already finalized")
	}
	if c.Status != CommissionStatusNegotiating || c.AdminCounterPercentage == nil {
		return NewInvalidStateError("no admin counter offer to respond to")
	}

	actor := NegotiationActor{Role: RoleManager, UserID: managerID}

	switch response {
	case ResponseActionAccept:
		agreed := *c.AdminCounterPercentage
		c.Status = CommissionStatusAccepted
		c.FinalPercentage = &agreed
		c.AgreedAt = &now
		c.AgreedBy = &managerID
		c.appendHistory(NegotiationActionManagerAccept, actor, &agreed, notes, now)

	case ResponseActionReject:
		c.Status = CommissionStatusRejected
		c.appendHistory(NegotiationActionManagerReject, actor, nil, notes, now)

	case ResponseActionCounter:
		if counterPercentage == nil {
			return NewValidationError("counter percentage is required for a counter offer")
		}
		if !ValidCommissionPercentage(*counterPercentage) {
			return NewValidationError("counter percentage must be between %g and %g", MinCommissionPercentage, MaxCommissionPercentage)
		}
		counter := *counterPercentage
		c.OfferedPercentage = counter
		c.Status = CommissionStatusPending
		c.Type = CommissionTypeManagerOffer
		c.clearAdminResponse()
		c.appendHistory(NegotiationActionManagerCounter, actor, &counter, notes, now)

	default:
		return NewValidationError("invalid response %q: must be accept, reject or counter", response)
	}

	c.ManagerResponse = response
	c.ManagerNotes = notes
	c.ManagerRespondedAt = &now
	c.UpdatedAt = now
	return nil
}

// IsFinalized reports whether the commission reached a terminal state.
func (c *Commission) IsFinalized() bool {
	return c.Status == CommissionStatusAccepted || c.Status == CommissionStatusRejected
}

// ServiceCommissionStatus maps the commission status onto the vocabulary
// stored on the linked service (accepted reads as agreed there).
func (c *Commission) ServiceCommissionStatus() string {
	if c.Status == CommissionStatusAccepted {
		return ServiceCommissionAgreed
	}
	return c.Status
}

func (c *Commission) appendHistory(action string, actor NegotiationActor, percentage *float64, note string, at time.Time) {
	c.NegotiationHistory = append(c.NegotiationHistory, NegotiationEntry{
		Action:     action,
		ByUser:     actor.UserID,
		ByRole:     actor.Role,
		Percentage: percentage,
		Note:       note,
		At:         at,
	})
}

// clearAdminResponse removes the outstanding admin counter when the manager
// takes the negotiation back to pending.
func (c *Commission) clearAdminResponse() {
	c.AdminCounterPercentage = nil
	c.AdminNotes = ""
	c.AdminRespondedBy = nil
	c.AdminRespondedAt = nil
}

// CommissionOfferRequest is the manager's offer submission body
type CommissionOfferRequest struct {
	ServiceID  string  `json:"serviceId" validate:"required"`
	Percentage float64 `json:"percentage" validate:"required"`
	Notes      string  `json:"notes,omitempty"`
}

// AdminCommissionResponseRequest is the admin's response body
type AdminCommissionResponseRequest struct {
	Action            string   `json:"action" validate:"required,oneof=accept reject counter"`
	CounterPercentage *float64 `json:"counterPercentage,omitempty"`
	Notes             string   `json:"notes,omitempty"`
}

// ManagerCommissionResponseRequest is the manager's response to a counter
type ManagerCommissionResponseRequest struct {
	Response          string   `json:"response" validate:"required,oneof=accept reject counter"`
	CounterPercentage *float64 `json:"counterPercentage,omitempty"`
	Notes             string   `json:"notes,omitempty"`
}

// BulkAdminCommissionRequest applies one admin response to many commissions
type BulkAdminCommissionRequest struct {
	CommissionIDs     []string `json:"commissionIds" validate:"required,min=1"`
	Action            string   `json:"action" validate:"required,oneof=accept reject counter"`
	CounterPercentage *float64 `json:"counterPercentage,omitempty"`
	Notes             string   `json:"notes,omitempty"`
}

// BulkCommissionResult is the per-item outcome of a bulk admin response
type BulkCommissionResult struct {
	ID      string `json:"id"`
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}
