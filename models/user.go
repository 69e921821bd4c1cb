// models/user.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// User roles
const (
	UserTypeUser    = "user"
	UserTypeManager = "manager"
	UserTypeAdmin   = "admin"
)

// User model
type User struct {
	ID             primitive.ObjectID `json:"id,omitempty" bson:"_id,omitempty"`
	Email          string             `json:"email" bson:"email"`
	Password       string             `json:"password,omitempty" bson:"password"`
	FullName       string             `json:"fullName" bson:"fullName"`
	UserType       string             `json:"userType" bson:"userType"` // "user", "manager", "admin"
	Phone          string             `json:"phone,omitempty" bson:"phone,omitempty"`
	IsActive       bool               `json:"isActive" bson:"isActive"`
	LastActivityAt time.Time          `json:"lastActivityAt" bson:"lastActivityAt"`
	ProfilePic     string             `json:"profilePic,omitempty" bson:"profilePic,omitempty"`
	Location       *Location          `json:"location,omitempty" bson:"location,omitempty"`
	BusinessName   string             `json:"businessName,omitempty" bson:"businessName,omitempty"`
	Description    string             `json:"description,omitempty" bson:"description,omitempty"`
	Rating         float64            `json:"rating,omitempty" bson:"rating,omitempty"`
	CreatedAt      time.Time          `json:"createdAt" bson:"createdAt"`
	UpdatedAt      time.Time          `json:"updatedAt" bson:"updatedAt"`
}

// Location model
type Location struct {
	Country  string  `json:"country" bson:"country"`
	City     string  `json:"city" bson:"city"`
	District string  `json:"district,omitempty" bson:"district,omitempty"`
	Lat      float64 `json:"lat" bson:"lat"`
	Lng      float64 `json:"lng" bson:"lng"`
}

// SignupRequest is the registration body
type SignupRequest struct {
	Email        string `json:"email" validate:"required,email"`
	Password     string `json:"password" validate:"required,min=8"`
	FullName     string `json:"fullName" validate:"required"`
	UserType     string `json:"userType" validate:"omitempty,oneof=user manager"`
	Phone        string `json:"phone,omitempty"`
	BusinessName string `json:"businessName,omitempty"`
}

// LoginRequest is the login body
type LoginRequest struct {
	Email      string `json:"email" validate:"required,email"`
	Password   string `json:"password" validate:"required"`
	RememberMe bool   `json:"rememberMe,omitempty"`
}

// ChangePasswordRequest carries the old and new password
type ChangePasswordRequest struct {
	OldPassword string `json:"oldPassword" validate:"required"`
	NewPassword string `json:"newPassword" validate:"required,min=8"`
}

// UpdateProfileRequest carries the mutable profile fields
type UpdateProfileRequest struct {
	FullName     string    `json:"fullName,omitempty"`
	Phone        string    `json:"phone,omitempty"`
	BusinessName string    `json:"businessName,omitempty"`
	Description  string    `json:"description,omitempty"`
	Location     *Location `json:"location,omitempty"`
}

// Response model
type Response struct {
	Status  int         `json:"status"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}
