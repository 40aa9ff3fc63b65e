package api

import (
	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/laguz/internal/tree"
)

// CreateItemRequest is the request body for creating an item.
type CreateItemRequest struct {
	Type     string `json:"type" example:"note"`
	Name     string `json:"name,omitempty" example:"Projects"`
	Title    string `json:"title,omitempty" example:"Untitled"`
	Content  string `json:"content,omitempty"`
	ParentID string `json:"parentId,omitempty"`
}

// Validate checks the request shape.
func (r CreateItemRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Type, validation.Required,
			validation.In(string(tree.TypeFolder), string(tree.TypeNote))),
	)
}

// UpdateItemRequest is the request body for updating an item. Nil fields are
// left untouched, mirroring the partial-update semantics of the client.
type UpdateItemRequest struct {
	Name    *string `json:"name,omitempty"`
	Title   *string `json:"title,omitempty"`
	Content *string `json:"content,omitempty"`
}

// ForestResponse wraps the user's full forest.
type ForestResponse struct {
	Folders []*tree.Item `json:"folders"`
}

// ItemResponse wraps a single item.
type ItemResponse struct {
	Item *tree.Item `json:"item"`
}

// MessageResponse carries a human-readable confirmation.
type MessageResponse struct {
	Message string `json:"message"`
}
