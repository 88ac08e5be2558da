package ratelimit_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/fgimenez/mythril-ci/internal/auth/domain"
	"github.com/fgimenez/mythril-ci/internal/mocks"
	"github.com/fgimenez/mythril-ci/internal/ratelimit"
	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testPolicy = ratelimit.Policy{
	Standard: ratelimit.Limits{FiveMin: 10, OneHour: 30, OneDay: 100},
	Admin:    ratelimit.Limits{FiveMin: 100, OneHour: 300, OneDay: 1000},
}

func expectCounts(store *mocks.MockStore, userID string, fiveMin, oneHour, oneDay int) {
	for _, w := range ratelimit.Windows() {
		count := fiveMin
		switch w.Name {
		case "oneHour":
			count = oneHour
		case "oneDay":
			count = oneDay
		}
		store.EXPECT().
			Increment(gomock.Any(), userID, w, gomock.Any()).
			Return(count, nil)
	}
}

func TestCheckAllowsAtThreshold(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	store := mocks.NewMockStore(ctrl)
	limiter := ratelimit.New(store, testPolicy)
	user := &domain.User{ID: "user-1", Tier: domain.TierStandard}

	// count == threshold still passes, on every window at once.
	expectCounts(store, user.ID, 10, 30, 100)

	decision, err := limiter.Check(context.Background(), user, time.Now())
	require.NoError(t, err)
	assert.True(t, decision.Allowed)
}

func TestCheckDeniesPastThreshold(t *testing.T) {
	tests := []struct {
		name     string
		counts   [3]int
		window   string
		limit    int
	}{
		{name: "five minute window", counts: [3]int{11, 11, 11}, window: "fiveMin", limit: 10},
		{name: "one hour window", counts: [3]int{1, 31, 31}, window: "oneHour", limit: 30},
		{name: "one day window", counts: [3]int{1, 1, 101}, window: "oneDay", limit: 100},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			defer ctrl.Finish()

			store := mocks.NewMockStore(ctrl)
			limiter := ratelimit.New(store, testPolicy)
			user := &domain.User{ID: "user-1", Tier: domain.TierStandard}

			// All three counters must advance even when an early window
			// already tripped.
			expectCounts(store, user.ID, tt.counts[0], tt.counts[1], tt.counts[2])

			decision, err := limiter.Check(context.Background(), user, time.Now())
			require.NoError(t, err)
			assert.False(t, decision.Allowed)
			assert.Equal(t, tt.window, decision.Window)
			assert.Equal(t, tt.limit, decision.Limit)
		})
	}
}

func TestCheckReportsFirstTrippedWindow(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	store := mocks.NewMockStore(ctrl)
	limiter := ratelimit.New(store, testPolicy)
	user := &domain.User{ID: "user-1", Tier: domain.TierStandard}

	expectCounts(store, user.ID, 11, 31, 101)

	decision, err := limiter.Check(context.Background(), user, time.Now())
	require.NoError(t, err)
	assert.False(t, decision.Allowed)
	assert.Equal(t, "fiveMin", decision.Window)
}

func TestCheckAdminUsesAdminLimits(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	store := mocks.NewMockStore(ctrl)
	limiter := ratelimit.New(store, testPolicy)
	user := &domain.User{ID: "admin-1", Tier: domain.TierAdmin}

	// Far past the standard thresholds, still inside the admin ones.
	expectCounts(store, user.ID, 30, 30, 30)

	decision, err := limiter.Check(context.Background(), user, time.Now())
	require.NoError(t, err)
	assert.True(t, decision.Allowed)
}

func TestCheckUnlimitedNeverDenies(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	store := mocks.NewMockStore(ctrl)
	limiter := ratelimit.New(store, testPolicy)
	user := &domain.User{ID: "vip-1", Tier: domain.TierUnlimited}

	// Counters are still recorded for unlimited users.
	expectCounts(store, user.ID, 100000, 100000, 100000)

	decision, err := limiter.Check(context.Background(), user, time.Now())
	require.NoError(t, err)
	assert.True(t, decision.Allowed)
}

func TestCheckStoreError(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	store := mocks.NewMockStore(ctrl)
	limiter := ratelimit.New(store, testPolicy)
	user := &domain.User{ID: "user-1", Tier: domain.TierStandard}

	store.EXPECT().
		Increment(gomock.Any(), user.ID, gomock.Any(), gomock.Any()).
		Return(0, fmt.Errorf("store unavailable"))

	_, err := limiter.Check(context.Background(), user, time.Now())
	assert.Error(t, err)
}
