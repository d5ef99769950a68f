package memory

import (
	"context"
	"fmt"

	"github.com/benvon/taskboard/internal/database"
	"github.com/benvon/taskboard/internal/models"
	"github.com/google/uuid"
)

// UserRepository is the in-memory user repository
type UserRepository struct {
	s *Store
}

var _ database.UserRepositoryInterface = (*UserRepository)(nil)

// Create stores a user, rejecting duplicate IDs and emails
func (r *UserRepository) Create(ctx context.Context, user *models.User) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("failed to create user: %w", err)
	}

	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for _, existing := range r.s.users {
		if existing.ID == user.ID || existing.Email == user.Email {
			return fmt.Errorf("failed to create user: %w", database.ErrDuplicate)
		}
	}

	now := r.s.now()
	user.CreatedAt = now
	user.UpdatedAt = now
	stored := *user
	r.s.users[user.ID] = &stored
	return nil
}

// GetByID retrieves a user by ID
func (r *UserRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	if err := r.s.wait(ctx); err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	user, ok := r.s.users[id]
	if !ok {
		return nil, fmt.Errorf("failed to get user: %w", database.ErrNotFound)
	}
	found := *user
	return &found, nil
}

// GetByEmail retrieves a user by email
func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	if err := r.s.wait(ctx); err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	for _, user := range r.s.users {
		if user.Email == email {
			found := *user
			return &found, nil
		}
	}
	return nil, fmt.Errorf("failed to get user: %w", database.ErrNotFound)
}

// Delete removes a user with all of their categories and tasks
func (r *UserRepository) Delete(ctx context.Context, id uuid.UUID) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("failed to delete user: %w", err)
	}

	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.users[id]; !ok {
		return fmt.Errorf("failed to delete user: %w", database.ErrNotFound)
	}
	delete(r.s.users, id)

	for taskID, task := range r.s.tasks {
		if task.UserID == id {
			delete(r.s.tasks, taskID)
		}
	}
	for categoryID, category := range r.s.categories {
		if category.UserID == id {
			delete(r.s.categories, categoryID)
		}
	}
	return nil
}
