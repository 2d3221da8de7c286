package db

import (
	"context"
	"fmt"
	"sort"

	"github.com/EO-DataHub/eodhp-directory-services/internal/directory"
	"github.com/EO-DataHub/eodhp-directory-services/models"
	"github.com/jmoiron/sqlx"
)

// CreateGroup inserts a group and one membership edge per initial member.
func (d *DirectoryDB) CreateGroup(ctx context.Context, groupID string, members []string) error {
	return d.withTx(ctx, func(tx *sqlx.Tx) error {
		exists, err := d.groupExists(ctx, tx, groupID)
		if err != nil {
			return err
		}
		if exists {
			return directory.GroupAlreadyExists(groupID)
		}
		if err := d.checkUsers(ctx, tx, members); err != nil {
			return err
		}

		if err := d.exec(ctx, tx, `INSERT INTO directory_groups (groupid) VALUES (?)`, groupID); err != nil {
			if isUniqueViolation(err) {
				return directory.GroupAlreadyExists(groupID)
			}
			return fmt.Errorf("error inserting group: %w", err)
		}

		for _, userID := range directory.Normalize(members) {
			if err := d.addEdge(ctx, tx, userID, groupID); err != nil {
				return fmt.Errorf("error adding member to group: %w", err)
			}
		}

		d.Log.Debug().Str("groupid", groupID).Int("members", len(members)).Msg("group created")
		return nil
	})
}

// GetGroup retrieves a group and its member userids.
func (d *DirectoryDB) GetGroup(ctx context.Context, groupID string) (*models.Group, error) {
	var group *models.Group
	err := d.withTx(ctx, func(tx *sqlx.Tx) error {
		exists, err := d.groupExists(ctx, tx, groupID)
		if err != nil {
			return err
		}
		if !exists {
			return directory.GroupNotFound(groupID)
		}

		members, err := d.groupMembers(ctx, tx, groupID)
		if err != nil {
			return err
		}
		group = &models.Group{GroupID: groupID, Members: members}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return group, nil
}

// GetUsersForGroup retrieves the full records of every member of a group.
// Only the edges of those members are read, never the whole membership table.
func (d *DirectoryDB) GetUsersForGroup(ctx context.Context, groupID string) ([]models.User, error) {
	var users []models.User
	err := d.withTx(ctx, func(tx *sqlx.Tx) error {
		exists, err := d.groupExists(ctx, tx, groupID)
		if err != nil {
			return err
		}
		if !exists {
			return directory.GroupNotFound(groupID)
		}

		var rows []userRow
		err = tx.SelectContext(ctx, &rows, d.DB.Rebind(`
			SELECT u.userid, u.first_name, u.last_name
			FROM directory_users u
			JOIN directory_memberships m ON m.userid = u.userid
			WHERE m.groupid = ?`), groupID)
		if err != nil {
			return fmt.Errorf("error retrieving group members: %w", err)
		}

		var edges []edgeRow
		err = tx.SelectContext(ctx, &edges, d.DB.Rebind(`
			SELECT other.userid, other.groupid
			FROM directory_memberships m
			JOIN directory_memberships other ON other.userid = m.userid
			WHERE m.groupid = ?`), groupID)
		if err != nil {
			return fmt.Errorf("error retrieving member groups: %w", err)
		}

		users = assembleUsers(rows, edges)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return users, nil
}

// UpdateGroup sets the member list and applies the delta to the affected users.
func (d *DirectoryDB) UpdateGroup(ctx context.Context, groupID string, members []string) error {
	return d.withTx(ctx, func(tx *sqlx.Tx) error {
		exists, err := d.groupExists(ctx, tx, groupID)
		if err != nil {
			return err
		}
		if !exists {
			return directory.GroupNotFound(groupID)
		}
		if err := d.checkUsers(ctx, tx, members); err != nil {
			return err
		}

		current, err := d.groupMembers(ctx, tx, groupID)
		if err != nil {
			return err
		}
		added, removed := directory.Diff(current, members)

		for _, userID := range removed {
			if err := d.removeEdge(ctx, tx, userID, groupID); err != nil {
				return fmt.Errorf("error removing member from group: %w", err)
			}
		}
		for _, userID := range added {
			if err := d.addEdge(ctx, tx, userID, groupID); err != nil {
				return fmt.Errorf("error adding member to group: %w", err)
			}
		}

		d.Log.Debug().Str("groupid", groupID).Strs("added", added).Strs("removed", removed).Msg("group updated")
		return nil
	})
}

// DeleteGroup removes the group and every membership edge that references it.
func (d *DirectoryDB) DeleteGroup(ctx context.Context, groupID string) error {
	return d.withTx(ctx, func(tx *sqlx.Tx) error {
		exists, err := d.groupExists(ctx, tx, groupID)
		if err != nil {
			return err
		}
		if !exists {
			return directory.GroupNotFound(groupID)
		}

		if err := d.exec(ctx, tx, `DELETE FROM directory_memberships WHERE groupid = ?`, groupID); err != nil {
			return fmt.Errorf("error removing group memberships: %w", err)
		}
		if err := d.exec(ctx, tx, `DELETE FROM directory_groups WHERE groupid = ?`, groupID); err != nil {
			return fmt.Errorf("error deleting group: %w", err)
		}

		d.Log.Debug().Str("groupid", groupID).Msg("group deleted")
		return nil
	})
}

// ListGroups retrieves every group with its members.
func (d *DirectoryDB) ListGroups(ctx context.Context) ([]models.Group, error) {
	var groups []models.Group
	err := d.withTx(ctx, func(tx *sqlx.Tx) error {
		var ids []string
		if err := tx.SelectContext(ctx, &ids, `SELECT groupid FROM directory_groups`); err != nil {
			return fmt.Errorf("error retrieving groups: %w", err)
		}

		var edges []edgeRow
		if err := tx.SelectContext(ctx, &edges,
			`SELECT userid, groupid FROM directory_memberships`); err != nil {
			return fmt.Errorf("error retrieving memberships: %w", err)
		}

		members := make(map[string][]string, len(ids))
		for _, e := range edges {
			members[e.GroupID] = append(members[e.GroupID], e.UserID)
		}

		groups = make([]models.Group, 0, len(ids))
		for _, id := range ids {
			groups = append(groups, models.Group{GroupID: id, Members: directory.Normalize(members[id])})
		}
		sort.Slice(groups, func(i, j int) bool { return groups[i].GroupID < groups[j].GroupID })
		return nil
	})
	if err != nil {
		return nil, err
	}
	return groups, nil
}

// groupMembers returns the sorted userids of a group.
func (d *DirectoryDB) groupMembers(ctx context.Context, tx *sqlx.Tx, groupID string) ([]string, error) {
	var members []string
	err := tx.SelectContext(ctx, &members, d.DB.Rebind(
		`SELECT userid FROM directory_memberships WHERE groupid = ?`), groupID)
	if err != nil {
		return nil, fmt.Errorf("error retrieving group members: %w", err)
	}
	return directory.Normalize(members), nil
}
