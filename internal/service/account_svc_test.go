package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scirpter/eBay-Shipping-Notifications-Discord-Bot/internal/model"
	"github.com/scirpter/eBay-Shipping-Notifications-Discord-Bot/internal/repository"
	"github.com/scirpter/eBay-Shipping-Notifications-Discord-Bot/internal/testutil"
)

type stepRecorder struct {
	steps         []string
	tokenErr      error
	orderErr      error
	orderFailures int
}

func (r *stepRecorder) GetValidAccessToken(context.Context, *model.EbayAccount) (string, error) {
	r.steps = append(r.steps, "token")
	return "tok", r.tokenErr
}

func (r *stepRecorder) SyncOrders(_ context.Context, _ *model.EbayAccount, token string) (*OrderSyncResult, error) {
	r.steps = append(r.steps, "orders:"+token)
	return &OrderSyncResult{Orders: 3, Failures: r.orderFailures}, r.orderErr
}

func (r *stepRecorder) SyncTrackings(context.Context, *model.EbayAccount) (*TrackingSyncResult, error) {
	r.steps = append(r.steps, "trackings")
	return &TrackingSyncResult{}, nil
}

func TestSyncAccount_Order(t *testing.T) {
	rec := &stepRecorder{}
	svc := NewAccountSyncService(nil, rec, rec, rec, nil)

	require.NoError(t, svc.SyncAccount(t.Context(), &model.EbayAccount{}))
	assert.Equal(t, []string{"token", "orders:tok", "trackings"}, rec.steps)
}

func TestSyncAccount_StopsOnFailure(t *testing.T) {
	rec := &stepRecorder{tokenErr: ErrAuthInvalid}
	svc := NewAccountSyncService(nil, rec, rec, rec, nil)
	err := svc.SyncAccount(t.Context(), &model.EbayAccount{})
	assert.True(t, errors.Is(err, ErrAuthInvalid))
	assert.Equal(t, []string{"token"}, rec.steps)

	rec = &stepRecorder{orderErr: errors.New("page failed")}
	svc = NewAccountSyncService(nil, rec, rec, rec, nil)
	assert.Error(t, svc.SyncAccount(t.Context(), &model.EbayAccount{}))
	assert.Equal(t, []string{"token", "orders:tok"}, rec.steps)
}

func TestSyncAccount_OrderFailuresStillSyncTrackings(t *testing.T) {
	rec := &stepRecorder{orderFailures: 1}
	svc := NewAccountSyncService(nil, rec, rec, rec, nil)

	err := svc.SyncAccount(t.Context(), &model.EbayAccount{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrOrdersIncomplete))
	assert.Contains(t, err.Error(), "1 of 3 orders")
	assert.Equal(t, []string{"token", "orders:tok", "trackings"}, rec.steps)
}

func TestSyncAccount_WithoutProvider(t *testing.T) {
	rec := &stepRecorder{}
	svc := NewAccountSyncService(nil, rec, rec, nil, nil)

	require.NoError(t, svc.SyncAccount(t.Context(), &model.EbayAccount{}))
	assert.Equal(t, []string{"token", "orders:tok"}, rec.steps)
}

func TestListAccounts_HidesSecrets(t *testing.T) {
	db := testutil.NewTestDB(t)
	account := testutil.SeedAccount(t, db, "u1", "seller")
	repo := repository.NewAccountRepository(db)
	svc := NewAccountSyncService(repo, nil, nil, nil, nil)

	statuses, err := svc.ListAccounts(t.Context())
	require.NoError(t, err)
	require.Len(t, statuses, 1)
	assert.Equal(t, account.ID, statuses[0].ID)
	assert.False(t, statuses[0].HasAccessToken)

	require.NoError(t, svc.Unlink(t.Context(), account.ID))
	statuses, err = svc.ListAccounts(t.Context())
	require.NoError(t, err)
	assert.Empty(t, statuses)
}
