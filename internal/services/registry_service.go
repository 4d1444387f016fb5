package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"farmtrack/internal/amqp"
	"farmtrack/internal/core"
	"farmtrack/internal/store"

	"github.com/google/uuid"
)

// ErrDuplicateName is returned when a registry entry would collide with an
// existing one, compared case-insensitively.
var ErrDuplicateName = errors.New("name already exists")

// RegistryService manages the category and subcategory registries.
type RegistryService struct {
	store      store.Store
	amqpClient *amqp.Client
}

func NewRegistryService(st store.Store, amqpClient *amqp.Client) *RegistryService {
	return &RegistryService{
		store:      st,
		amqpClient: amqpClient,
	}
}

// ListSubcategories returns the registry with the load-time invariants
// applied: the reserved Others entry present, name duplicates pruned.
func (s *RegistryService) ListSubcategories(ctx context.Context, user string) ([]core.Subcategory, error) {
	subs, err := s.store.ListSubcategories(ctx, user)
	if err != nil {
		return nil, fmt.Errorf("list subcategories: %w", err)
	}
	return core.EnsureOthers(subs), nil
}

// CreateSubcategory adds a subcategory. Names are unique case-insensitively;
// a duplicate is rejected rather than silently pruned later.
func (s *RegistryService) CreateSubcategory(ctx context.Context, user string, sc core.Subcategory) (core.Subcategory, error) {
	if err := sc.Validate(); err != nil {
		return core.Subcategory{}, err
	}

	existing, err := s.ListSubcategories(ctx, user)
	if err != nil {
		return core.Subcategory{}, err
	}
	if _, ok := core.FindByName(existing, sc.Name); ok {
		return core.Subcategory{}, fmt.Errorf("subcategory %q: %w", sc.Name, ErrDuplicateName)
	}

	if sc.ID == "" {
		sc.ID = uuid.NewString()
	}
	if sc.CreatedAt == "" {
		sc.CreatedAt = time.Now().UTC().Format(time.RFC3339)
	}

	if err := s.store.PutSubcategory(ctx, user, sc); err != nil {
		return core.Subcategory{}, fmt.Errorf("save subcategory: %w", err)
	}
	s.publishRegistry(ctx, user, store.CollectionSubcategories, sc.ID, amqp.OpPut)
	return sc, nil
}

// DeleteSubcategory removes a subcategory from the registry. The reserved
// Others entry cannot be deleted. Expenses keep any money attributed to the
// removed id; it just stops appearing in named distributions.
func (s *RegistryService) DeleteSubcategory(ctx context.Context, user, id string) error {
	if id == core.OthersSubcategoryID {
		return core.ErrReservedSubcategory
	}
	if err := s.store.DeleteSubcategory(ctx, user, id); err != nil {
		return fmt.Errorf("delete subcategory: %w", err)
	}
	s.publishRegistry(ctx, user, store.CollectionSubcategories, id, amqp.OpDelete)
	return nil
}

func (s *RegistryService) ListCategories(ctx context.Context, user string) ([]core.Category, error) {
	cats, err := s.store.ListCategories(ctx, user)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	return cats, nil
}

// CreateCategory adds a category. Unknown subcategory ids in the selection
// are dropped; the reserved Others id never needs selecting.
func (s *RegistryService) CreateCategory(ctx context.Context, user string, c core.Category) (core.Category, error) {
	if err := c.Validate(); err != nil {
		return core.Category{}, err
	}

	cats, err := s.store.ListCategories(ctx, user)
	if err != nil {
		return core.Category{}, fmt.Errorf("list categories: %w", err)
	}
	for _, existing := range cats {
		if existing.ID != c.ID && strings.EqualFold(existing.Name, c.Name) {
			return core.Category{}, fmt.Errorf("category %q: %w", c.Name, ErrDuplicateName)
		}
	}

	subs, err := s.ListSubcategories(ctx, user)
	if err != nil {
		return core.Category{}, err
	}
	c.SubcategoryIDs = pruneUnknown(c.SubcategoryIDs, subs)

	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	if c.CreatedAt == "" {
		c.CreatedAt = time.Now().UTC().Format(time.RFC3339)
	}

	if err := s.store.PutCategory(ctx, user, c); err != nil {
		return core.Category{}, fmt.Errorf("save category: %w", err)
	}
	s.publishRegistry(ctx, user, store.CollectionCategories, c.ID, amqp.OpPut)
	return c, nil
}

// UpdateCategory overwrites an existing category. Expense snapshots of the
// old name are left alone.
func (s *RegistryService) UpdateCategory(ctx context.Context, user string, c core.Category) (core.Category, error) {
	cats, err := s.store.ListCategories(ctx, user)
	if err != nil {
		return core.Category{}, fmt.Errorf("list categories: %w", err)
	}
	found := false
	for _, existing := range cats {
		if existing.ID == c.ID {
			found = true
			if c.CreatedAt == "" {
				c.CreatedAt = existing.CreatedAt
			}
			break
		}
	}
	if !found {
		return core.Category{}, store.ErrNotFound
	}
	return s.CreateCategory(ctx, user, c)
}

func (s *RegistryService) DeleteCategory(ctx context.Context, user, id string) error {
	if err := s.store.DeleteCategory(ctx, user, id); err != nil {
		return fmt.Errorf("delete category: %w", err)
	}
	s.publishRegistry(ctx, user, store.CollectionCategories, id, amqp.OpDelete)
	return nil
}

func pruneUnknown(ids []string, subs []core.Subcategory) []string {
	known := make(map[string]bool, len(subs))
	for _, sc := range subs {
		known[sc.ID] = true
	}
	out := make([]string, 0, len(ids))
	seen := make(map[string]bool, len(ids))
	for _, id := range ids {
		if known[id] && !seen[id] {
			out = append(out, id)
			seen[id] = true
		}
	}
	return out
}

func (s *RegistryService) publishRegistry(ctx context.Context, user, collection, docID, op string) {
	publishSync(ctx, s.amqpClient, user, collection, docID, op)
}
