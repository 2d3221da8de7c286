// Package directory holds the users and groups of the directory and keeps the
// membership relation consistent from both sides.
//
// For every user U and group G, G is in U's groups exactly when U is in G's
// members. Every Store implementation must hold that after each call returns.
package directory

import (
	"context"

	"github.com/EO-DataHub/eodhp-directory-services/models"
)

// Store is the contract shared by the in-memory and SQL backends.
type Store interface {
	// CreateUser inserts u and adds u.UserID to every group in u.Groups.
	CreateUser(ctx context.Context, u models.User) error
	GetUser(ctx context.Context, userID string) (*models.User, error)
	// UpdateUser replaces the user's fields and reconciles its memberships.
	UpdateUser(ctx context.Context, userID string, u models.User) error
	// DeleteUser removes the user and retracts it from every group.
	DeleteUser(ctx context.Context, userID string) error

	CreateGroup(ctx context.Context, groupID string, members []string) error
	GetGroup(ctx context.Context, groupID string) (*models.Group, error)
	// GetUsersForGroup returns the full records of the group's members. An
	// existing group with no members yields an empty slice.
	GetUsersForGroup(ctx context.Context, groupID string) ([]models.User, error)
	// UpdateGroup sets the member list and reconciles every affected user.
	UpdateGroup(ctx context.Context, groupID string, members []string) error
	// DeleteGroup removes the group and retracts it from every user.
	DeleteGroup(ctx context.Context, groupID string) error

	ListUsers(ctx context.Context) ([]models.User, error)
	ListGroups(ctx context.Context) ([]models.Group, error)

	UserExists(ctx context.Context, userID string) bool
	GroupExists(ctx context.Context, groupID string) bool

	Close() error
}
