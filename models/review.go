// models/review.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Review is a user's rating of a service, with an optional manager reply
type Review struct {
	ID        primitive.ObjectID `json:"id,omitempty" bson:"_id,omitempty"`
	ServiceID primitive.ObjectID `json:"serviceId" bson:"serviceId"`
	UserID    primitive.ObjectID `json:"userId" bson:"userId"`
	Rating    int                `json:"rating" bson:"rating"`
	Comment   string             `json:"comment,omitempty" bson:"comment,omitempty"`
	Reply     string             `json:"reply,omitempty" bson:"reply,omitempty"`
	RepliedAt *time.Time         `json:"repliedAt,omitempty" bson:"repliedAt,omitempty"`
	CreatedAt time.Time          `json:"createdAt" bson:"createdAt"`
}

type CreateReviewRequest struct {
	ServiceID string `json:"serviceId" validate:"required"`
	Rating    int    `json:"rating" validate:"required,min=1,max=5"`
	Comment   string `json:"comment,omitempty"`
}

type ReviewReplyRequest struct {
	Reply string `json:"reply" validate:"required"`
}
