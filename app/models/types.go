package models

import (
	"time"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// Author is the embedded author card of a post. It is a value object, not a
// reference into a user store: profiles are matched by Name.
type Author struct {
	ID               string `json:"id,omitempty" yaml:"id,omitempty"`
	Name             string `json:"name" yaml:"name" validate:"required,min=2,max=50"`
	Verified         bool   `json:"verified" yaml:"verified"`
	CredibilityScore int    `json:"credibilityScore" yaml:"credibilityScore" validate:"gte=0,lte=100"`
	HelpfulnessScore int    `json:"helpfulnessScore" yaml:"helpfulnessScore" validate:"gte=0,lte=100"`
}

// Post is a feed record. Once appended to a store it is never modified.
type Post struct {
	ID            string    `json:"id" yaml:"id" validate:"required"`
	Title         string    `json:"title" yaml:"title" validate:"required,min=3,max=200"`
	Preview       string    `json:"preview" yaml:"preview"`
	Content       string    `json:"content,omitempty" yaml:"content,omitempty"`
	Tags          []string  `json:"tags" yaml:"tags" validate:"max=10,dive,min=1,max=30"`
	Author        Author    `json:"author" yaml:"author"`
	AccuracyScore int       `json:"accuracyScore" yaml:"accuracyScore" validate:"gte=0,lte=100"`
	HelpfulCount  int       `json:"helpfulCount" yaml:"helpfulCount" validate:"gte=0"`
	ReplyCount    int       `json:"replyCount" yaml:"replyCount" validate:"gte=0"`
	Timestamp     string    `json:"timestamp" yaml:"timestamp"`
	CreatedAt     time.Time `json:"createdAt,omitzero" yaml:"-"`
}

// PostInput is what a member submits when writing a new post.
type PostInput struct {
	Title   string   `json:"title" validate:"required,min=3,max=200"`
	Content string   `json:"content" validate:"required,min=10"`
	Tags    []string `json:"tags" validate:"max=10,dive,min=1,max=30"`
	Author  Author   `json:"author"`
}

// Reply is an answer to a post. Replies never change their parent post.
type Reply struct {
	ID        int       `json:"id" validate:"gte=0"`
	PostID    string    `json:"postId" validate:"required"`
	Author    string    `json:"author" validate:"required,min=2,max=50"`
	Content   string    `json:"content" validate:"required,min=1,max=1000"`
	CreatedAt time.Time `json:"createdAt" validate:"required"`
}

// Category is a tag group offered by the category selector.
type Category struct {
	ID    string `json:"id"`
	Label string `json:"label"`
}
