// models/service.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Commission status vocabulary as stored on the service projection
const (
	ServiceCommissionPending     = "pending"
	ServiceCommissionNegotiating = "negotiating"
	ServiceCommissionAgreed      = "agreed"
	ServiceCommissionRejected    = "rejected"
)

// Service is a manager-owned listing in the catalog. The commission fields
// are a denormalized projection of the linked Commission record; the
// commission record stays authoritative.
type Service struct {
	ID          primitive.ObjectID `json:"id,omitempty" bson:"_id,omitempty"`
	ManagerID   primitive.ObjectID `json:"managerId" bson:"managerId"`
	CategoryID  primitive.ObjectID `json:"categoryId,omitempty" bson:"categoryId,omitempty"`
	Title       string             `json:"title" bson:"title"`
	Description string             `json:"description,omitempty" bson:"description,omitempty"`
	Price       float64            `json:"price" bson:"price"`
	Images      []string           `json:"images,omitempty" bson:"images,omitempty"`
	Rating      float64            `json:"rating" bson:"rating"`
	RatingCount int                `json:"ratingCount" bson:"ratingCount"`
	IsActive    bool               `json:"isActive" bson:"isActive"`

	CommissionStatus          string              `json:"commissionStatus,omitempty" bson:"commissionStatus,omitempty"`
	FinalCommissionPercentage *float64            `json:"finalCommissionPercentage,omitempty" bson:"finalCommissionPercentage,omitempty"`
	CommissionID              *primitive.ObjectID `json:"commissionId,omitempty" bson:"commissionId,omitempty"`

	CreatedAt time.Time `json:"createdAt" bson:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt" bson:"updatedAt"`
}

// ServiceCommissionProjection carries the commission fields pushed onto a
// service after every negotiation transition.
type ServiceCommissionProjection struct {
	CommissionStatus          string
	FinalCommissionPercentage *float64
	CommissionID              primitive.ObjectID
}

// CreateServiceRequest is the manager's listing creation body. An optional
// commission percentage submits the initial offer alongside the listing.
type CreateServiceRequest struct {
	Title                string   `json:"title" validate:"required"`
	Description          string   `json:"description,omitempty"`
	Price                float64  `json:"price" validate:"required,gt=0"`
	CategoryID           string   `json:"categoryId,omitempty"`
	Images               []string `json:"images,omitempty"`
	CommissionPercentage *float64 `json:"commissionPercentage,omitempty"`
	CommissionNotes      string   `json:"commissionNotes,omitempty"`
}

// UpdateServiceRequest carries the mutable listing fields
type UpdateServiceRequest struct {
	Title       string   `json:"title,omitempty"`
	Description string   `json:"description,omitempty"`
	Price       *float64 `json:"price,omitempty"`
	CategoryID  string   `json:"categoryId,omitempty"`
	Images      []string `json:"images,omitempty"`
	IsActive    *bool    `json:"isActive,omitempty"`
}
