package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/scirpter/eBay-Shipping-Notifications-Discord-Bot/internal/model"
	"github.com/scirpter/eBay-Shipping-Notifications-Discord-Bot/internal/repository"
	"github.com/scirpter/eBay-Shipping-Notifications-Discord-Bot/pkg/ebay"
	"github.com/scirpter/eBay-Shipping-Notifications-Discord-Bot/pkg/logger"
)

const (
	orderPageSize      = 50
	orderLookbackOnNew = 30 * 24 * time.Hour
)

// ==================== Dependencies ====================

// OrdersAPI the marketplace calls the order walk needs
type OrdersAPI interface {
	GetOrders(ctx context.Context, q ebay.OrdersQuery) ([]ebay.Order, error)
	GetShippingFulfillments(ctx context.Context, env ebay.Environment, accessToken, orderID string) ([]ebay.ShippingFulfillment, error)
}

// ==================== OrderSyncService ====================

// OrderSyncResult counters for one walk
type OrderSyncResult struct {
	Pages     int
	Orders    int
	Trackings int
	Failures  int
	// MarkerAdvanced LastOrderSyncAt was stamped with the walk start
	MarkerAdvanced bool
}

// OrderSyncService discovers changed orders and the tracking numbers attached to them
type OrderSyncService struct {
	api          OrdersAPI
	accounts     repository.AccountRepository
	orders       repository.OrderRepository
	trackings    repository.TrackingRepository
	providerName string
	log          *zap.Logger
	now          func() time.Time
}

// NewOrderSyncService creates the order synchronizer.
// providerName is stored on newly discovered tracking rows.
func NewOrderSyncService(
	api OrdersAPI,
	accounts repository.AccountRepository,
	orders repository.OrderRepository,
	trackings repository.TrackingRepository,
	providerName string,
	log *zap.Logger,
) *OrderSyncService {
	return &OrderSyncService{
		api:          api,
		accounts:     accounts,
		orders:       orders,
		trackings:    trackings,
		providerName: providerName,
		log:          logger.OrGlobal(log).Named("order_sync"),
		now:          time.Now,
	}
}

// SyncOrders walks every order modified since the account's marker.
// A page failure aborts the walk and leaves the marker alone. A single order failing is counted
// in Failures and the walk goes on; once every page is read the marker moves to the walk start.
func (s *OrderSyncService) SyncOrders(ctx context.Context, account *model.EbayAccount, accessToken string) (*OrderSyncResult, error) {
	startedAt := s.now()
	from := startedAt.Add(-orderLookbackOnNew)
	if account.LastOrderSyncAt != nil {
		from = *account.LastOrderSyncAt
	}

	log := s.log.With(zap.String("account_id", account.ID))
	env := ebay.Environment(account.Environment)
	query := ebay.OrdersQuery{
		Environment: env,
		AccessToken: accessToken,
		Filter:      ebay.BuildOrdersFilter(from),
		Limit:       orderPageSize,
	}

	result := &OrderSyncResult{}
	for {
		page, err := s.api.GetOrders(ctx, query)
		if err != nil {
			return result, fmt.Errorf("fetch orders at offset %d: %w", query.Offset, err)
		}
		if len(page) == 0 {
			break
		}
		result.Pages++

		for i := range page {
			result.Orders++
			n, err := s.syncOrder(ctx, account, env, accessToken, &page[i])
			result.Trackings += n
			if err != nil {
				result.Failures++
				log.Warn("order sync failed", zap.String("order_id", page[i].OrderID), zap.Error(err))
			}
		}

		if len(page) < orderPageSize {
			break
		}
		query.Offset += orderPageSize
	}

	if err := s.accounts.UpdateSyncMarkers(ctx, account.ID, repository.SyncMarkers{LastOrderSyncAt: &startedAt}); err != nil {
		log.Warn("persist last order sync marker failed", zap.Error(err))
	} else {
		account.LastOrderSyncAt = &startedAt
		result.MarkerAdvanced = true
	}

	if result.Orders > 0 {
		log.Info("order sync completed",
			zap.Int("orders", result.Orders),
			zap.Int("trackings", result.Trackings),
			zap.Int("failures", result.Failures))
	}
	return result, nil
}

// syncOrder upserts one order and its tracked fulfillments, returning the trackings written
func (s *OrderSyncService) syncOrder(ctx context.Context, account *model.EbayAccount, env ebay.Environment, accessToken string, o *ebay.Order) (int, error) {
	order := &model.Order{
		EbayAccountID:     account.ID,
		OrderID:           o.OrderID,
		OrderCreatedAt:    parseEbayTime(o.CreationDate),
		LastModifiedAt:    parseEbayTime(o.LastModifiedDate),
		FulfillmentStatus: string(o.OrderFulfillmentStatus),
		Summary:           orderSummary(o),
	}
	if o.Buyer != nil && o.Buyer.Username != "" {
		order.BuyerUsername = &o.Buyer.Username
	}
	if err := s.orders.Upsert(ctx, order); err != nil {
		return 0, err
	}

	fulfillments, err := s.api.GetShippingFulfillments(ctx, env, accessToken, o.OrderID)
	if err != nil {
		return 0, fmt.Errorf("fetch fulfillments: %w", err)
	}

	written := 0
	for _, f := range fulfillments {
		if f.ShipmentTrackingNumber == "" {
			continue
		}
		tracking := &model.ShipmentTracking{
			EbayAccountID:  account.ID,
			OrderID:        o.OrderID,
			FulfillmentID:  nonEmpty(f.FulfillmentID),
			CarrierCode:    nonEmpty(f.ShippingCarrierCode),
			TrackingNumber: f.ShipmentTrackingNumber,
			Provider:       s.providerName,
		}
		if err := s.trackings.Upsert(ctx, tracking); err != nil {
			return written, err
		}
		written++
	}
	return written, nil
}

// orderSummary first line item title, plus the buyer when known
func orderSummary(o *ebay.Order) string {
	title := "Order"
	if len(o.LineItems) > 0 && o.LineItems[0].Title != "" {
		title = o.LineItems[0].Title
	}
	if o.Buyer != nil && o.Buyer.Username != "" {
		return title + " • Buyer: " + o.Buyer.Username
	}
	return title
}

func parseEbayTime(value string) *time.Time {
	if value == "" {
		return nil
	}
	t, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return nil
	}
	return &t
}

func nonEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
