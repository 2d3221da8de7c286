package directory_test

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"testing"

	"github.com/EO-DataHub/eodhp-directory-services/internal/directory"
	"github.com/EO-DataHub/eodhp-directory-services/internal/directory/storetest"
	"github.com/EO-DataHub/eodhp-directory-services/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStore(t *testing.T) {
	storetest.Run(t, func(t *testing.T) directory.Store {
		return directory.NewMemoryStore()
	})
}

func TestMemoryStore_ReturnedRecordsAreCopies(t *testing.T) {
	ctx := context.Background()
	s := directory.NewMemoryStore()
	require.NoError(t, s.CreateGroup(ctx, "g", nil))
	require.NoError(t, s.CreateUser(ctx, models.User{UserID: "u", Groups: []string{"g"}}))

	u, err := s.GetUser(ctx, "u")
	require.NoError(t, err)
	u.Groups[0] = "tampered"

	u, err = s.GetUser(ctx, "u")
	require.NoError(t, err)
	assert.Equal(t, []string{"g"}, u.Groups)
	require.NoError(t, directory.CheckConsistency(ctx, s))
}

// TestMemoryStore_RandomOperations applies a random mix of operations and
// checks both views of the relation after every step, whether or not the
// operation was rejected.
func TestMemoryStore_RandomOperations(t *testing.T) {
	ctx := context.Background()
	s := directory.NewMemoryStore()
	rng := rand.New(rand.NewSource(42))

	ids := func(prefix string, n int) []string {
		var out []string
		for i := 0; i < n; i++ {
			if rng.Intn(2) == 0 {
				out = append(out, fmt.Sprintf("%s%d", prefix, rng.Intn(6)))
			}
		}
		return out
	}

	for step := 0; step < 2000; step++ {
		userID := fmt.Sprintf("u%d", rng.Intn(6))
		groupID := fmt.Sprintf("g%d", rng.Intn(6))

		var err error
		switch rng.Intn(6) {
		case 0:
			err = s.CreateUser(ctx, models.User{UserID: userID, Groups: ids("g", 4)})
		case 1:
			err = s.UpdateUser(ctx, userID, models.User{UserID: userID, Groups: ids("g", 4)})
		case 2:
			err = s.DeleteUser(ctx, userID)
		case 3:
			err = s.CreateGroup(ctx, groupID, ids("u", 4))
		case 4:
			err = s.UpdateGroup(ctx, groupID, ids("u", 4))
		case 5:
			err = s.DeleteGroup(ctx, groupID)
		}
		if err != nil {
			require.True(t, directory.IsClientError(err), "step %d: unexpected error %v", step, err)
		}
		require.NoError(t, directory.CheckConsistency(ctx, s), "step %d", step)
	}
}

func TestMemoryStore_ConcurrentMutations(t *testing.T) {
	ctx := context.Background()
	s := directory.NewMemoryStore()
	for i := 0; i < 4; i++ {
		require.NoError(t, s.CreateGroup(ctx, fmt.Sprintf("g%d", i), nil))
	}

	var wg sync.WaitGroup
	for w := 0; w < 8; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			userID := fmt.Sprintf("u%d", w)
			_ = s.CreateUser(ctx, models.User{UserID: userID, Groups: []string{"g0", "g1"}})
			for i := 0; i < 100; i++ {
				groupID := fmt.Sprintf("g%d", i%4)
				_ = s.UpdateUser(ctx, userID, models.User{UserID: userID, Groups: []string{groupID}})
				_ = s.UpdateGroup(ctx, groupID, []string{userID})
			}
		}(w)
	}
	wg.Wait()

	require.NoError(t, directory.CheckConsistency(ctx, s))
}
