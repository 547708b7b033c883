package services

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/charlesng35/exteriorcrm/internal/database/testutil"
	"github.com/charlesng35/exteriorcrm/internal/models"
)

func TestUserServiceConcurrentDemotionsKeepAnOwner(t *testing.T) {
	db := testutil.MustOpenPostgresDB(t, testutil.WithAutoMigrate())
	svc, err := NewUserService(db, nil, nil)
	require.NoError(t, err)
	ctx := context.Background()

	for round := 0; round < 5; round++ {
		org := seedOrganization(t, db, fmt.Sprintf("race-%d", round))
		first := seedMember(t, db, org, fmt.Sprintf("first-%d@acme.test", round), models.RoleOwner)
		second := seedMember(t, db, org, fmt.Sprintf("second-%d@acme.test", round), models.RoleOwner)

		var (
			wg   sync.WaitGroup
			errs [2]error
		)
		wg.Add(2)
		go func() {
			defer wg.Done()
			_, errs[0] = svc.ChangeRole(ctx, first, second.UserID, models.RoleSalesManager)
		}()
		go func() {
			defer wg.Done()
			_, errs[1] = svc.ChangeRole(ctx, second, first.UserID, models.RoleSalesManager)
		}()
		wg.Wait()

		var owners int64
		require.NoError(t, db.Model(&models.User{}).
			Where("organization_id = ? AND role = ? AND status = ?", org.ID, models.RoleOwner, models.UserStatusActive).
			Count(&owners).Error)
		require.EqualValues(t, 1, owners, "round %d", round)

		failures := 0
		for _, err := range errs {
			if err != nil {
				require.ErrorIs(t, err, ErrLastOwner)
				failures++
			}
		}
		require.Equal(t, 1, failures, "round %d", round)
	}
}
