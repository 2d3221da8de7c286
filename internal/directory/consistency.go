package directory

import (
	"context"
	"errors"
	"fmt"
)

// CheckConsistency walks every user and group in s and returns one joined
// error describing each one-sided membership edge or dangling reference, or
// nil when both views of the relation agree.
func CheckConsistency(ctx context.Context, s Store) error {
	users, err := s.ListUsers(ctx)
	if err != nil {
		return fmt.Errorf("error listing users: %w", err)
	}
	groups, err := s.ListGroups(ctx)
	if err != nil {
		return fmt.Errorf("error listing groups: %w", err)
	}

	members := make(map[string]set, len(groups))
	for _, g := range groups {
		members[g.GroupID] = newSet(g.Members)
	}
	userGroups := make(map[string]set, len(users))
	for _, u := range users {
		userGroups[u.UserID] = newSet(u.Groups)
	}

	var errs []error
	for _, u := range users {
		for _, groupID := range u.Groups {
			m, ok := members[groupID]
			switch {
			case !ok:
				errs = append(errs, fmt.Errorf("user '%s' references missing group '%s'", u.UserID, groupID))
			case !m.has(u.UserID):
				errs = append(errs, fmt.Errorf("user '%s' lists group '%s' but is not one of its members", u.UserID, groupID))
			}
		}
	}
	for _, g := range groups {
		for _, userID := range g.Members {
			ug, ok := userGroups[userID]
			switch {
			case !ok:
				errs = append(errs, fmt.Errorf("group '%s' references missing user '%s'", g.GroupID, userID))
			case !ug.has(g.GroupID):
				errs = append(errs, fmt.Errorf("group '%s' lists member '%s' but the user does not list it", g.GroupID, userID))
			}
		}
	}
	return errors.Join(errs...)
}
