package service

import (
	"fmt"
	"testing"
	"time"

	"backoffice/internal/domain"
	"backoffice/internal/repository"
	"backoffice/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProfileService_BanFlow(t *testing.T) {
	s := NewProfileService(testutil.NewTestStore(), testutil.NewTestLogger())

	assert.Equal(t, "", s.MinecraftName(1))
	_, err := s.SetBanned(1, true)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = s.SetMinecraftName(1, "Steve", "steve", "Steve_MC")
	require.NoError(t, err)
	assert.Equal(t, "Steve_MC", s.MinecraftName(1))

	_, err = s.SetBanned(1, true)
	require.NoError(t, err)
	assert.True(t, s.IsBanned(1))

	_, err = s.SetBanned(1, false)
	require.NoError(t, err)
	assert.False(t, s.IsBanned(1))
	assert.False(t, s.IsBanned(2))
}

func TestProfileService_TouchKeepsMinecraftName(t *testing.T) {
	s := NewProfileService(testutil.NewTestStore(), testutil.NewTestLogger())

	_, err := s.Touch(1, "Steve", "steve")
	require.NoError(t, err)
	_, err = s.SetMinecraftName(1, "", "", "Steve_MC")
	require.NoError(t, err)

	p, err := s.Touch(1, "Steve R", "steve_r")
	require.NoError(t, err)
	assert.Equal(t, "Steve_MC", p.MinecraftName)
	assert.Equal(t, "steve_r", p.Username)

	all, err := s.List()
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestSettingsService(t *testing.T) {
	s := NewSettingsService(testutil.NewTestStore())

	st, err := s.Staff()
	require.NoError(t, err)
	assert.Zero(t, st.GroupID)

	require.NoError(t, s.SetStaffGroup(-100))
	require.NoError(t, s.SetTopic(domain.SectionOrders, 5))
	assert.ErrorIs(t, s.SetTopic("memes", 6), domain.ErrNotFound)
	require.NoError(t, s.SetSponsorChannel(-200))

	st, err = s.Staff()
	require.NoError(t, err)
	assert.Equal(t, int64(-100), st.GroupID)
	assert.Equal(t, 5, st.Topics[domain.SectionOrders])
	assert.Equal(t, int64(-200), st.SponsorChannelID)

	// moving to another group drops the old topics
	require.NoError(t, s.SetStaffGroup(-300))
	st, err = s.Staff()
	require.NoError(t, err)
	assert.Empty(t, st.Topics)
}

func TestCleanupService_CleanupOldData(t *testing.T) {
	store := testutil.NewTestStore()
	now := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)
	orders := repository.NewTable[domain.PendingRecord](store, repository.TableOrders)

	old := testutil.NewTestRecord(domain.KindOrder, "1", 1)
	old.Status = domain.StatusCompleted
	old.UpdatedAt = now.AddDate(0, 0, -90)

	oldPending := testutil.NewTestRecord(domain.KindOrder, "2", 1)
	oldPending.UpdatedAt = now.AddDate(0, 0, -90)

	recent := testutil.NewTestRecord(domain.KindOrder, "3", 1)
	recent.Status = domain.StatusRejected
	recent.UpdatedAt = now.AddDate(0, 0, -1)

	for _, r := range []*domain.PendingRecord{old, oldPending, recent} {
		require.NoError(t, orders.Put(r.ID, r))
	}

	s := NewCleanupService(store, []string{repository.TableOrders}, 60, testutil.NewTestLogger())
	s.now = testutil.FixedClock(now)

	removed, err := s.CleanupOldData()
	require.NoError(t, err)
	assert.Equal(t, 1, removed)

	left, err := orders.All()
	require.NoError(t, err)
	assert.Len(t, left, 2)
}

func TestCleanupService_StoreError(t *testing.T) {
	store := new(testutil.MockStore)
	store.On("List", repository.TableOrders).Return(nil, fmt.Errorf("db error"))

	s := NewCleanupService(store, []string{repository.TableOrders}, 60, testutil.NewTestLogger())

	_, err := s.CleanupOldData()
	assert.Error(t, err)
	store.AssertExpectations(t)
}
