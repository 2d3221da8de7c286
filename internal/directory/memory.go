package directory

import (
	"context"
	"sort"
	"sync"

	"github.com/EO-DataHub/eodhp-directory-services/models"
)

type userRecord struct {
	firstName string
	lastName  string
	groups    set
}

func (r *userRecord) toModel(userID string) models.User {
	return models.User{
		UserID:    userID,
		FirstName: r.firstName,
		LastName:  r.lastName,
		Groups:    r.groups.sorted(),
	}
}

// MemoryStore is the in-memory Store. A single lock guards both collections
// because every mutation touches both sides of the relation.
type MemoryStore struct {
	mu     sync.RWMutex
	users  map[string]*userRecord
	groups map[string]set
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		users:  make(map[string]*userRecord),
		groups: make(map[string]set),
	}
}

// checkGroups returns an UnknownGroup error for the first id in groupIDs that
// does not exist. Callers must hold the lock.
func (m *MemoryStore) checkGroups(groupIDs []string) error {
	for _, id := range groupIDs {
		if _, ok := m.groups[id]; !ok {
			return UnknownGroup(id)
		}
	}
	return nil
}

// checkUsers is checkGroups for member lists.
func (m *MemoryStore) checkUsers(userIDs []string) error {
	for _, id := range userIDs {
		if _, ok := m.users[id]; !ok {
			return UnknownUser(id)
		}
	}
	return nil
}

func (m *MemoryStore) CreateUser(_ context.Context, u models.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.users[u.UserID]; ok {
		return UserAlreadyExists(u.UserID)
	}
	if err := m.checkGroups(u.Groups); err != nil {
		return err
	}

	rec := &userRecord{firstName: u.FirstName, lastName: u.LastName, groups: newSet(u.Groups)}
	m.users[u.UserID] = rec
	for groupID := range rec.groups {
		m.groups[groupID][u.UserID] = struct{}{}
	}
	return nil
}

func (m *MemoryStore) GetUser(_ context.Context, userID string) (*models.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	rec, ok := m.users[userID]
	if !ok {
		return nil, UserNotFound(userID)
	}
	u := rec.toModel(userID)
	return &u, nil
}

func (m *MemoryStore) UpdateUser(_ context.Context, userID string, u models.User) error {
	if u.UserID != userID {
		return IdentityMismatch(u.UserID, userID)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	rec, ok := m.users[userID]
	if !ok {
		return UserNotFound(userID)
	}
	if err := m.checkGroups(u.Groups); err != nil {
		return err
	}

	next := newSet(u.Groups)
	added, removed := diff(rec.groups, next)
	for _, groupID := range removed {
		delete(m.groups[groupID], userID)
	}
	for _, groupID := range added {
		m.groups[groupID][userID] = struct{}{}
	}

	rec.firstName = u.FirstName
	rec.lastName = u.LastName
	rec.groups = next
	return nil
}

func (m *MemoryStore) DeleteUser(_ context.Context, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	rec, ok := m.users[userID]
	if !ok {
		return UserNotFound(userID)
	}
	for groupID := range rec.groups {
		delete(m.groups[groupID], userID)
	}
	delete(m.users, userID)
	return nil
}

func (m *MemoryStore) CreateGroup(_ context.Context, groupID string, members []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.groups[groupID]; ok {
		return GroupAlreadyExists(groupID)
	}
	if err := m.checkUsers(members); err != nil {
		return err
	}

	s := newSet(members)
	m.groups[groupID] = s
	for userID := range s {
		m.users[userID].groups[groupID] = struct{}{}
	}
	return nil
}

func (m *MemoryStore) GetGroup(_ context.Context, groupID string) (*models.Group, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	members, ok := m.groups[groupID]
	if !ok {
		return nil, GroupNotFound(groupID)
	}
	return &models.Group{GroupID: groupID, Members: members.sorted()}, nil
}

func (m *MemoryStore) GetUsersForGroup(_ context.Context, groupID string) ([]models.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	members, ok := m.groups[groupID]
	if !ok {
		return nil, GroupNotFound(groupID)
	}
	users := make([]models.User, 0, len(members))
	for _, userID := range members.sorted() {
		users = append(users, m.users[userID].toModel(userID))
	}
	return users, nil
}

func (m *MemoryStore) UpdateGroup(_ context.Context, groupID string, members []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	prev, ok := m.groups[groupID]
	if !ok {
		return GroupNotFound(groupID)
	}
	if err := m.checkUsers(members); err != nil {
		return err
	}

	next := newSet(members)
	added, removed := diff(prev, next)
	for _, userID := range removed {
		if rec, ok := m.users[userID]; ok {
			delete(rec.groups, groupID)
		}
	}
	for _, userID := range added {
		m.users[userID].groups[groupID] = struct{}{}
	}
	m.groups[groupID] = next
	return nil
}

func (m *MemoryStore) DeleteGroup(_ context.Context, groupID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	members, ok := m.groups[groupID]
	if !ok {
		return GroupNotFound(groupID)
	}
	for userID := range members {
		if rec, ok := m.users[userID]; ok {
			delete(rec.groups, groupID)
		}
	}
	delete(m.groups, groupID)
	return nil
}

func (m *MemoryStore) ListUsers(_ context.Context) ([]models.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	users := make([]models.User, 0, len(m.users))
	for userID, rec := range m.users {
		users = append(users, rec.toModel(userID))
	}
	sort.Slice(users, func(i, j int) bool { return users[i].UserID < users[j].UserID })
	return users, nil
}

func (m *MemoryStore) ListGroups(_ context.Context) ([]models.Group, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	groups := make([]models.Group, 0, len(m.groups))
	for groupID, members := range m.groups {
		groups = append(groups, models.Group{GroupID: groupID, Members: members.sorted()})
	}
	sort.Slice(groups, func(i, j int) bool { return groups[i].GroupID < groups[j].GroupID })
	return groups, nil
}

func (m *MemoryStore) UserExists(_ context.Context, userID string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.users[userID]
	return ok
}

func (m *MemoryStore) GroupExists(_ context.Context, groupID string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.groups[groupID]
	return ok
}

// Close is a no-op; it satisfies Store.
func (m *MemoryStore) Close() error {
	return nil
}
