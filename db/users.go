package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"

	"github.com/EO-DataHub/eodhp-directory-services/internal/directory"
	"github.com/EO-DataHub/eodhp-directory-services/models"
	"github.com/jmoiron/sqlx"
)

type userRow struct {
	UserID    string `db:"userid"`
	FirstName string `db:"first_name"`
	LastName  string `db:"last_name"`
}

type edgeRow struct {
	UserID  string `db:"userid"`
	GroupID string `db:"groupid"`
}

// CreateUser inserts the user and one membership edge per listed group.
func (d *DirectoryDB) CreateUser(ctx context.Context, u models.User) error {
	return d.withTx(ctx, func(tx *sqlx.Tx) error {
		exists, err := d.userExists(ctx, tx, u.UserID)
		if err != nil {
			return err
		}
		if exists {
			return directory.UserAlreadyExists(u.UserID)
		}
		if err := d.checkGroups(ctx, tx, u.Groups); err != nil {
			return err
		}

		err = d.exec(ctx, tx, `
			INSERT INTO directory_users (userid, first_name, last_name)
			VALUES (?, ?, ?)`,
			u.UserID, u.FirstName, u.LastName)
		if err != nil {
			if isUniqueViolation(err) {
				return directory.UserAlreadyExists(u.UserID)
			}
			return fmt.Errorf("error inserting user: %w", err)
		}

		for _, groupID := range directory.Normalize(u.Groups) {
			if err := d.addEdge(ctx, tx, u.UserID, groupID); err != nil {
				return fmt.Errorf("error adding user to group: %w", err)
			}
		}

		d.Log.Debug().Str("userid", u.UserID).Int("groups", len(u.Groups)).Msg("user created")
		return nil
	})
}

// GetUser retrieves a single user with its current groups.
func (d *DirectoryDB) GetUser(ctx context.Context, userID string) (*models.User, error) {
	var user *models.User
	err := d.withTx(ctx, func(tx *sqlx.Tx) error {
		var row userRow
		err := tx.GetContext(ctx, &row, d.DB.Rebind(
			`SELECT userid, first_name, last_name FROM directory_users WHERE userid = ?`), userID)
		if errors.Is(err, sql.ErrNoRows) {
			return directory.UserNotFound(userID)
		}
		if err != nil {
			return fmt.Errorf("error retrieving user: %w", err)
		}

		groups, err := d.userGroups(ctx, tx, userID)
		if err != nil {
			return err
		}

		user = &models.User{
			UserID:    row.UserID,
			FirstName: row.FirstName,
			LastName:  row.LastName,
			Groups:    groups,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return user, nil
}

// UpdateUser replaces the user's names and applies the membership delta
// between the stored groups and u.Groups.
func (d *DirectoryDB) UpdateUser(ctx context.Context, userID string, u models.User) error {
	if u.UserID != userID {
		return directory.IdentityMismatch(u.UserID, userID)
	}

	return d.withTx(ctx, func(tx *sqlx.Tx) error {
		exists, err := d.userExists(ctx, tx, userID)
		if err != nil {
			return err
		}
		if !exists {
			return directory.UserNotFound(userID)
		}
		if err := d.checkGroups(ctx, tx, u.Groups); err != nil {
			return err
		}

		current, err := d.userGroups(ctx, tx, userID)
		if err != nil {
			return err
		}
		added, removed := directory.Diff(current, u.Groups)

		err = d.exec(ctx, tx, `
			UPDATE directory_users SET first_name = ?, last_name = ? WHERE userid = ?`,
			u.FirstName, u.LastName, userID)
		if err != nil {
			return fmt.Errorf("error updating user: %w", err)
		}

		for _, groupID := range removed {
			if err := d.removeEdge(ctx, tx, userID, groupID); err != nil {
				return fmt.Errorf("error removing user from group: %w", err)
			}
		}
		for _, groupID := range added {
			if err := d.addEdge(ctx, tx, userID, groupID); err != nil {
				return fmt.Errorf("error adding user to group: %w", err)
			}
		}

		d.Log.Debug().Str("userid", userID).Strs("added", added).Strs("removed", removed).Msg("user updated")
		return nil
	})
}

// DeleteUser removes the user and every membership edge that references it.
func (d *DirectoryDB) DeleteUser(ctx context.Context, userID string) error {
	return d.withTx(ctx, func(tx *sqlx.Tx) error {
		exists, err := d.userExists(ctx, tx, userID)
		if err != nil {
			return err
		}
		if !exists {
			return directory.UserNotFound(userID)
		}

		if err := d.exec(ctx, tx, `DELETE FROM directory_memberships WHERE userid = ?`, userID); err != nil {
			return fmt.Errorf("error removing user memberships: %w", err)
		}
		if err := d.exec(ctx, tx, `DELETE FROM directory_users WHERE userid = ?`, userID); err != nil {
			return fmt.Errorf("error deleting user: %w", err)
		}

		d.Log.Debug().Str("userid", userID).Msg("user deleted")
		return nil
	})
}

// ListUsers retrieves every user with its groups.
func (d *DirectoryDB) ListUsers(ctx context.Context) ([]models.User, error) {
	var users []models.User
	err := d.withTx(ctx, func(tx *sqlx.Tx) error {
		var rows []userRow
		if err := tx.SelectContext(ctx, &rows,
			`SELECT userid, first_name, last_name FROM directory_users`); err != nil {
			return fmt.Errorf("error retrieving users: %w", err)
		}

		var edges []edgeRow
		if err := tx.SelectContext(ctx, &edges,
			`SELECT userid, groupid FROM directory_memberships`); err != nil {
			return fmt.Errorf("error retrieving memberships: %w", err)
		}

		users = assembleUsers(rows, edges)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return users, nil
}

// userGroups returns the sorted group ids of a user.
func (d *DirectoryDB) userGroups(ctx context.Context, tx *sqlx.Tx, userID string) ([]string, error) {
	var groups []string
	err := tx.SelectContext(ctx, &groups, d.DB.Rebind(
		`SELECT groupid FROM directory_memberships WHERE userid = ?`), userID)
	if err != nil {
		return nil, fmt.Errorf("error retrieving user groups: %w", err)
	}
	return directory.Normalize(groups), nil
}

// assembleUsers joins user rows with their membership edges, sorted by userid.
func assembleUsers(rows []userRow, edges []edgeRow) []models.User {
	groups := make(map[string][]string, len(rows))
	for _, e := range edges {
		groups[e.UserID] = append(groups[e.UserID], e.GroupID)
	}

	users := make([]models.User, 0, len(rows))
	for _, row := range rows {
		users = append(users, models.User{
			UserID:    row.UserID,
			FirstName: row.FirstName,
			LastName:  row.LastName,
			Groups:    directory.Normalize(groups[row.UserID]),
		})
	}
	sort.Slice(users, func(i, j int) bool { return users[i].UserID < users[j].UserID })
	return users
}
