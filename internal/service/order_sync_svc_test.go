package service

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/scirpter/eBay-Shipping-Notifications-Discord-Bot/internal/model"
	"github.com/scirpter/eBay-Shipping-Notifications-Discord-Bot/internal/repository"
	"github.com/scirpter/eBay-Shipping-Notifications-Discord-Bot/internal/testutil"
	"github.com/scirpter/eBay-Shipping-Notifications-Discord-Bot/pkg/ebay"
	"github.com/scirpter/eBay-Shipping-Notifications-Discord-Bot/pkg/tracking"
)

type orderSyncFixture struct {
	db        *gorm.DB
	svc       *OrderSyncService
	api       *fakeOrdersAPI
	accounts  repository.AccountRepository
	orders    repository.OrderRepository
	trackings repository.TrackingRepository
	account   *model.EbayAccount
	now       time.Time
}

func newOrderSyncFixture(t *testing.T, api *fakeOrdersAPI) *orderSyncFixture {
	t.Helper()
	db := testutil.NewTestDB(t)
	f := &orderSyncFixture{
		db:        db,
		api:       api,
		accounts:  repository.NewAccountRepository(db),
		orders:    repository.NewOrderRepository(db),
		trackings: repository.NewTrackingRepository(db),
		account:   testutil.SeedAccount(t, db, "u1", "seller"),
		now:       time.Date(2026, 7, 10, 8, 0, 0, 0, time.UTC),
	}
	f.svc = NewOrderSyncService(api, f.accounts, f.orders, f.trackings, tracking.ProviderSeventeenTrack, nil)
	f.svc.now = func() time.Time { return f.now }
	return f
}

func TestSyncOrders_EndToEnd(t *testing.T) {
	api := &fakeOrdersAPI{
		pages: [][]ebay.Order{{
			{
				OrderID:                "11-111",
				CreationDate:           "2026-07-01T10:00:00.000Z",
				LastModifiedDate:       "2026-07-09T10:00:00.000Z",
				OrderFulfillmentStatus: ebay.FulfillmentFulfilled,
				Buyer:                  &ebay.Buyer{Username: "alice"},
				LineItems:              []ebay.LineItem{{Title: "Vintage Lamp"}},
			},
			{
				OrderID:                "22-222",
				OrderFulfillmentStatus: ebay.FulfillmentInProgress,
			},
		}},
		fulfillments: map[string][]ebay.ShippingFulfillment{
			"11-111": {{FulfillmentID: "f-1", ShipmentTrackingNumber: "1Z001", ShippingCarrierCode: "UPS"}},
			"22-222": {
				{FulfillmentID: "f-2", ShipmentTrackingNumber: "9400111"},
				{FulfillmentID: "f-3"},
			},
		},
	}
	f := newOrderSyncFixture(t, api)
	ctx := t.Context()

	result, err := f.svc.SyncOrders(ctx, f.account, "token")
	require.NoError(t, err)
	assert.Equal(t, 2, result.Orders)
	assert.Equal(t, 2, result.Trackings)
	assert.Zero(t, result.Failures)
	assert.True(t, result.MarkerAdvanced)

	require.Len(t, api.queries, 1)
	assert.Equal(t, "token", api.queries[0].AccessToken)
	assert.Equal(t, 50, api.queries[0].Limit)
	assert.Equal(t, ebay.BuildOrdersFilter(f.now.Add(-30*24*time.Hour)), api.queries[0].Filter)

	n, err := f.orders.CountByAccount(ctx, f.account.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
	n, err = f.trackings.CountByAccount(ctx, f.account.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	first, err := f.orders.GetByOrderID(ctx, f.account.ID, "11-111")
	require.NoError(t, err)
	assert.Equal(t, "Vintage Lamp • Buyer: alice", first.Summary)
	require.NotNil(t, first.OrderCreatedAt)
	assert.True(t, first.OrderCreatedAt.Equal(time.Date(2026, 7, 1, 10, 0, 0, 0, time.UTC)))

	second, err := f.orders.GetByOrderID(ctx, f.account.ID, "22-222")
	require.NoError(t, err)
	assert.Equal(t, "Order", second.Summary)
	assert.Nil(t, second.BuyerUsername)

	tr, err := f.trackings.GetByNumber(ctx, f.account.ID, "1Z001")
	require.NoError(t, err)
	assert.Equal(t, "11-111", tr.OrderID)
	assert.Equal(t, tracking.ProviderSeventeenTrack, tr.Provider)
	require.NotNil(t, tr.CarrierCode)
	assert.Equal(t, "UPS", *tr.CarrierCode)

	stored, err := f.accounts.GetByID(ctx, f.account.ID)
	require.NoError(t, err)
	require.NotNil(t, stored.LastOrderSyncAt)
	assert.True(t, stored.LastOrderSyncAt.Equal(f.now))
	require.NotNil(t, f.account.LastOrderSyncAt)
	assert.True(t, f.account.LastOrderSyncAt.Equal(f.now))
}

func TestSyncOrders_PagesUntilShortPage(t *testing.T) {
	full := make([]ebay.Order, 50)
	for i := range full {
		full[i] = ebay.Order{OrderID: fmt.Sprintf("o-%02d", i), OrderFulfillmentStatus: ebay.FulfillmentFulfilled}
	}
	api := &fakeOrdersAPI{pages: [][]ebay.Order{full, {{OrderID: "o-50", OrderFulfillmentStatus: ebay.FulfillmentFulfilled}}}}
	f := newOrderSyncFixture(t, api)

	since := f.now.Add(-6 * time.Hour)
	f.account.LastOrderSyncAt = &since

	result, err := f.svc.SyncOrders(t.Context(), f.account, "token")
	require.NoError(t, err)
	assert.Equal(t, 51, result.Orders)
	assert.Equal(t, 2, result.Pages)

	require.Len(t, api.queries, 2)
	assert.Equal(t, 0, api.queries[0].Offset)
	assert.Equal(t, 50, api.queries[1].Offset)
	assert.Equal(t, ebay.BuildOrdersFilter(since), api.queries[0].Filter)
}

func TestSyncOrders_ReupsertIsIdempotent(t *testing.T) {
	api := &fakeOrdersAPI{
		pages:        [][]ebay.Order{{{OrderID: "11-111", OrderFulfillmentStatus: ebay.FulfillmentFulfilled}}},
		fulfillments: map[string][]ebay.ShippingFulfillment{"11-111": {{FulfillmentID: "f-1", ShipmentTrackingNumber: "1Z001"}}},
	}
	f := newOrderSyncFixture(t, api)

	for i := 0; i < 2; i++ {
		_, err := f.svc.SyncOrders(t.Context(), f.account, "token")
		require.NoError(t, err)
	}

	n, err := f.orders.CountByAccount(t.Context(), f.account.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
	n, err = f.trackings.CountByAccount(t.Context(), f.account.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestSyncOrders_FailingOrderStillAdvancesMarker(t *testing.T) {
	api := &fakeOrdersAPI{
		pages: [][]ebay.Order{{
			{OrderID: "bad", OrderFulfillmentStatus: ebay.FulfillmentFulfilled},
			{OrderID: "good", OrderFulfillmentStatus: ebay.FulfillmentFulfilled},
		}},
		fulfillments:    map[string][]ebay.ShippingFulfillment{"good": {{FulfillmentID: "f", ShipmentTrackingNumber: "T-good"}}},
		fulfillmentErrs: map[string]error{"bad": errors.New("404 order cancelled")},
	}
	f := newOrderSyncFixture(t, api)
	ctx := t.Context()

	// the same order fails on every pass, the marker must not stay pinned
	first := f.now
	for pass := range 2 {
		f.now = first.Add(time.Duration(pass) * 24 * time.Hour)

		result, err := f.svc.SyncOrders(ctx, f.account, "token")
		require.NoError(t, err)
		assert.Equal(t, 1, result.Failures)
		assert.True(t, result.MarkerAdvanced)

		stored, err := f.accounts.GetByID(ctx, f.account.ID)
		require.NoError(t, err)
		require.NotNil(t, stored.LastOrderSyncAt)
		assert.True(t, stored.LastOrderSyncAt.Equal(f.now))
	}

	require.Len(t, api.queries, 2)
	assert.Equal(t, ebay.BuildOrdersFilter(first), api.queries[1].Filter)

	_, err := f.trackings.GetByNumber(ctx, f.account.ID, "T-good")
	require.NoError(t, err)
}

func TestSyncOrders_PageFailureAborts(t *testing.T) {
	api := &fakeOrdersAPI{pageErr: errors.New("upstream down")}
	f := newOrderSyncFixture(t, api)

	_, err := f.svc.SyncOrders(t.Context(), f.account, "token")
	require.Error(t, err)

	stored, err := f.accounts.GetByID(t.Context(), f.account.ID)
	require.NoError(t, err)
	assert.Nil(t, stored.LastOrderSyncAt)
}

func TestOrderSummary(t *testing.T) {
	tests := []struct {
		name  string
		order ebay.Order
		want  string
	}{
		{"title and buyer", ebay.Order{LineItems: []ebay.LineItem{{Title: "Lamp"}}, Buyer: &ebay.Buyer{Username: "bob"}}, "Lamp • Buyer: bob"},
		{"no items", ebay.Order{Buyer: &ebay.Buyer{Username: "bob"}}, "Order • Buyer: bob"},
		{"no buyer", ebay.Order{LineItems: []ebay.LineItem{{Title: "Lamp"}}}, "Lamp"},
		{"empty buyer", ebay.Order{Buyer: &ebay.Buyer{}}, "Order"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := orderSummary(&tt.order); got != tt.want {
				t.Errorf("orderSummary() = %q, want %q", got, tt.want)
			}
		})
	}
}
