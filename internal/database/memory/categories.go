package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/benvon/taskboard/internal/database"
	"github.com/benvon/taskboard/internal/models"
	"github.com/google/uuid"
)

// CategoryRepository is the in-memory category repository
type CategoryRepository struct {
	s *Store
}

var _ database.CategoryRepositoryInterface = (*CategoryRepository)(nil)

// nameTaken reports whether the owner has another category with the same name.
// Caller holds the lock.
func (r *CategoryRepository) nameTaken(c *models.Category) bool {
	for _, existing := range r.s.categories {
		if existing.UserID == c.UserID && existing.ID != c.ID && existing.Name == c.Name {
			return true
		}
	}
	return false
}

// Create stores a category, rejecting duplicate names per owner
func (r *CategoryRepository) Create(ctx context.Context, category *models.Category) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("failed to create category: %w", err)
	}

	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, exists := r.s.categories[category.ID]; exists || r.nameTaken(category) {
		return fmt.Errorf("failed to create category: %w", database.ErrDuplicate)
	}

	now := r.s.now()
	category.CreatedAt = now
	category.UpdatedAt = now
	r.s.categories[category.ID] = copyCategory(category)
	return nil
}

// GetByID returns a category regardless of owner
func (r *CategoryRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Category, error) {
	if err := r.s.wait(ctx); err != nil {
		return nil, fmt.Errorf("failed to get category: %w", err)
	}

	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	category, ok := r.s.categories[id]
	if !ok {
		return nil, fmt.Errorf("failed to get category: %w", database.ErrNotFound)
	}
	return copyCategory(category), nil
}

// ListByUser returns the owner's categories ordered by name
func (r *CategoryRepository) ListByUser(ctx context.Context, ownerID uuid.UUID) ([]*models.Category, error) {
	if err := r.s.wait(ctx); err != nil {
		return nil, fmt.Errorf("failed to query categories: %w", err)
	}

	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	categories := make([]*models.Category, 0)
	for _, category := range r.s.categories {
		if category.UserID == ownerID {
			categories = append(categories, copyCategory(category))
		}
	}
	sort.Slice(categories, func(i, j int) bool {
		return strings.Compare(categories[i].Name, categories[j].Name) < 0
	})
	return categories, nil
}

// Update renames or recolors a category owned by category.UserID
func (r *CategoryRepository) Update(ctx context.Context, category *models.Category) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("failed to update category: %w", err)
	}

	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	existing, ok := r.s.categories[category.ID]
	if !ok || existing.UserID != category.UserID {
		return fmt.Errorf("failed to update category: %w", database.ErrNotFound)
	}
	if r.nameTaken(category) {
		return fmt.Errorf("failed to update category: %w", database.ErrDuplicate)
	}

	category.CreatedAt = existing.CreatedAt
	category.UpdatedAt = r.s.now()
	r.s.categories[category.ID] = copyCategory(category)
	return nil
}

// Delete removes a category and detaches its tasks
func (r *CategoryRepository) Delete(ctx context.Context, ownerID, id uuid.UUID) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("failed to delete category: %w", err)
	}

	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	existing, ok := r.s.categories[id]
	if !ok || existing.UserID != ownerID {
		return fmt.Errorf("failed to delete category: %w", database.ErrNotFound)
	}
	delete(r.s.categories, id)

	for _, task := range r.s.tasks {
		if task.CategoryID != nil && *task.CategoryID == id {
			task.CategoryID = nil
		}
	}
	return nil
}
