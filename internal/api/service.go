package api

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/starford/laguz/internal/apperr"
	"github.com/starford/laguz/internal/tree"
	"github.com/starford/laguz/internal/userstore"
)

// Service applies folder-tree mutations to a user's stored forest.
//
// Each operation loads the forest, mutates it through the tree package, and
// writes the whole forest back, mirroring how the store-level document model
// works: the forest is one atomic value per user.
type Service struct {
	users  *userstore.Store
	logger *slog.Logger
}

// NewService creates the folders API service.
func NewService(users *userstore.Store, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{users: users, logger: logger}
}

// Forest returns the user's full forest.
func (s *Service) Forest(ctx context.Context, userID string) ([]*tree.Item, error) {
	return s.users.Load(ctx, userID)
}

func (s *Service) loadTree(ctx context.Context, userID string) (*tree.Tree, error) {
	items, err := s.users.Load(ctx, userID)
	if err != nil {
		return nil, err
	}
	t := tree.New()
	t.SetItems(items)
	return t, nil
}

// CreateItem appends a new item to the user's forest and returns it with its
// server-assigned ID. ParentID, when set, must resolve to an existing
// folder (apperr.ErrParentNotFound otherwise).
func (s *Service) CreateItem(ctx context.Context, userID string, req CreateItemRequest) (*tree.Item, error) {
	t, err := s.loadTree(ctx, userID)
	if err != nil {
		return nil, err
	}

	now := time.Now().UnixMilli()
	item := &tree.Item{
		ID:         req.Type + "_" + uuid.NewString(),
		Type:       tree.ItemType(req.Type),
		CreatedAt:  now,
		LastUpdate: now,
	}
	switch item.Type {
	case tree.TypeFolder:
		item.Name = req.Name
		if item.Name == "" {
			item.Name = "New Folder"
		}
	case tree.TypeNote:
		item.Title = req.Title
		if item.Title == "" {
			item.Title = "Untitled"
		}
		item.Content = req.Content
	}

	if err := t.Append(item, req.ParentID); err != nil {
		return nil, err
	}
	if err := s.users.Save(ctx, userID, t.Items()); err != nil {
		return nil, err
	}
	return t.Subtree(item.ID), nil
}

// UpdateItem applies field changes to an existing item. Folders accept name;
// notes accept title and content and refresh lastUpdate. Fields not
// applicable to the item's type are ignored.
func (s *Service) UpdateItem(ctx context.Context, userID, id string, req UpdateItemRequest) (*tree.Item, error) {
	t, err := s.loadTree(ctx, userID)
	if err != nil {
		return nil, err
	}
	item := t.Find(id)
	if item == nil {
		return nil, apperr.ErrItemNotFound
	}
	switch item.Type {
	case tree.TypeFolder:
		if req.Name != nil {
			item.Name = *req.Name
		}
	case tree.TypeNote:
		if req.Title != nil {
			item.Title = *req.Title
		}
		if req.Content != nil {
			item.Content = *req.Content
		}
		item.LastUpdate = time.Now().UnixMilli()
	}
	if err := s.users.Save(ctx, userID, t.Items()); err != nil {
		return nil, err
	}
	return t.Subtree(id), nil
}

// DeleteItem removes an item and its subtree from the user's forest.
func (s *Service) DeleteItem(ctx context.Context, userID, id string) error {
	t, err := s.loadTree(ctx, userID)
	if err != nil {
		return err
	}
	if !t.Remove(id) {
		return apperr.ErrItemNotFound
	}
	return s.users.Save(ctx, userID, t.Items())
}
