// Package manifest drives a directory store to the state described in a YAML
// file, using only Store operations.
package manifest

import (
	"context"
	"fmt"
	"os"

	"github.com/EO-DataHub/eodhp-directory-services/internal/directory"
	"github.com/EO-DataHub/eodhp-directory-services/models"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"gopkg.in/yaml.v2"
)

// GroupEntry declares a group. A nil Members leaves the member list to follow
// from the users that name the group; a non-nil list is applied last and wins.
type GroupEntry struct {
	GroupID string   `yaml:"groupid" validate:"required"`
	Members []string `yaml:"members" validate:"omitempty,dive,required"`
}

type UserEntry struct {
	UserID    string   `yaml:"userid" validate:"required"`
	FirstName string   `yaml:"first_name"`
	LastName  string   `yaml:"last_name"`
	Groups    []string `yaml:"groups" validate:"omitempty,dive,required"`
}

// Manifest is the desired state of the directory.
type Manifest struct {
	Groups []GroupEntry `yaml:"groups" validate:"dive"`
	Users  []UserEntry  `yaml:"users" validate:"dive"`
}

// Report counts the changes made by Apply.
type Report struct {
	GroupsCreated int
	GroupsUpdated int
	GroupsDeleted int
	UsersCreated  int
	UsersUpdated  int
	UsersDeleted  int
}

var validate = validator.New()

// Load reads and validates a manifest file.
func Load(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read manifest: %w", err)
	}
	return Parse(data)
}

// Parse decodes and validates a manifest document.
func Parse(data []byte) (*Manifest, error) {
	var m Manifest
	if err := yaml.UnmarshalStrict(data, &m); err != nil {
		return nil, fmt.Errorf("failed to parse manifest: %w", err)
	}
	if err := validate.Struct(m); err != nil {
		return nil, fmt.Errorf("invalid manifest: %w", err)
	}

	seen := make(map[string]struct{}, len(m.Groups))
	for _, g := range m.Groups {
		if _, dup := seen[g.GroupID]; dup {
			return nil, fmt.Errorf("invalid manifest: group '%s' declared twice", g.GroupID)
		}
		seen[g.GroupID] = struct{}{}
	}
	seen = make(map[string]struct{}, len(m.Users))
	for _, u := range m.Users {
		if _, dup := seen[u.UserID]; dup {
			return nil, fmt.Errorf("invalid manifest: user '%s' declared twice", u.UserID)
		}
		seen[u.UserID] = struct{}{}
	}
	return &m, nil
}

// Apply creates the declared groups, then creates or updates the declared
// users, then applies explicit member lists. With prune set, users and groups
// missing from the manifest are deleted afterwards. Apply stops at the first
// store error; every change before it has been committed.
func Apply(ctx context.Context, store directory.Store, m *Manifest, prune bool) (Report, error) {
	logger := zerolog.Ctx(ctx)
	var report Report

	for _, g := range m.Groups {
		if store.GroupExists(ctx, g.GroupID) {
			continue
		}
		if err := store.CreateGroup(ctx, g.GroupID, nil); err != nil {
			return report, fmt.Errorf("create group '%s': %w", g.GroupID, err)
		}
		report.GroupsCreated++
		logger.Info().Str("groupid", g.GroupID).Msg("Group created")
	}

	for _, u := range m.Users {
		user := models.User{UserID: u.UserID, FirstName: u.FirstName, LastName: u.LastName, Groups: u.Groups}
		if user.Groups == nil {
			user.Groups = []string{}
		}

		if store.UserExists(ctx, u.UserID) {
			if err := store.UpdateUser(ctx, u.UserID, user); err != nil {
				return report, fmt.Errorf("update user '%s': %w", u.UserID, err)
			}
			report.UsersUpdated++
			logger.Info().Str("userid", u.UserID).Msg("User updated")
			continue
		}

		if err := store.CreateUser(ctx, user); err != nil {
			return report, fmt.Errorf("create user '%s': %w", u.UserID, err)
		}
		report.UsersCreated++
		logger.Info().Str("userid", u.UserID).Msg("User created")
	}

	for _, g := range m.Groups {
		if g.Members == nil {
			continue
		}
		if err := store.UpdateGroup(ctx, g.GroupID, g.Members); err != nil {
			return report, fmt.Errorf("update group '%s': %w", g.GroupID, err)
		}
		report.GroupsUpdated++
		logger.Info().Str("groupid", g.GroupID).Int("member_count", len(g.Members)).Msg("Group members set")
	}

	if !prune {
		return report, nil
	}

	return report, pruneStore(ctx, store, m, &report)
}

func pruneStore(ctx context.Context, store directory.Store, m *Manifest, report *Report) error {
	logger := zerolog.Ctx(ctx)

	wantUsers := make(map[string]struct{}, len(m.Users))
	for _, u := range m.Users {
		wantUsers[u.UserID] = struct{}{}
	}
	wantGroups := make(map[string]struct{}, len(m.Groups))
	for _, g := range m.Groups {
		wantGroups[g.GroupID] = struct{}{}
	}

	users, err := store.ListUsers(ctx)
	if err != nil {
		return fmt.Errorf("list users: %w", err)
	}
	for _, u := range users {
		if _, ok := wantUsers[u.UserID]; ok {
			continue
		}
		if err := store.DeleteUser(ctx, u.UserID); err != nil {
			return fmt.Errorf("delete user '%s': %w", u.UserID, err)
		}
		report.UsersDeleted++
		logger.Info().Str("userid", u.UserID).Msg("User pruned")
	}

	groups, err := store.ListGroups(ctx)
	if err != nil {
		return fmt.Errorf("list groups: %w", err)
	}
	for _, g := range groups {
		if _, ok := wantGroups[g.GroupID]; ok {
			continue
		}
		if err := store.DeleteGroup(ctx, g.GroupID); err != nil {
			return fmt.Errorf("delete group '%s': %w", g.GroupID, err)
		}
		report.GroupsDeleted++
		logger.Info().Str("groupid", g.GroupID).Msg("Group pruned")
	}
	return nil
}
