package service

import (
	"context"
	"errors"
	"sync"

	"github.com/scirpter/eBay-Shipping-Notifications-Discord-Bot/internal/model"
	"github.com/scirpter/eBay-Shipping-Notifications-Discord-Bot/pkg/discord"
	"github.com/scirpter/eBay-Shipping-Notifications-Discord-Bot/pkg/ebay"
	"github.com/scirpter/eBay-Shipping-Notifications-Discord-Bot/pkg/tracking"
)

const testEncryptionKey = "0123456789abcdef0123456789abcdef"

func strPtr(s string) *string { return &s }

// ==================== eBay fakes ====================

type fakeRefresher struct {
	errs  []error
	resp  *ebay.TokenResp
	calls int
	last  ebay.RefreshReq
}

func (f *fakeRefresher) RefreshAccessToken(_ context.Context, req ebay.RefreshReq) (*ebay.TokenResp, error) {
	f.calls++
	f.last = req
	if f.calls <= len(f.errs) {
		return nil, f.errs[f.calls-1]
	}
	return f.resp, nil
}

type fakeOrdersAPI struct {
	pages           [][]ebay.Order
	pageErr         error
	fulfillments    map[string][]ebay.ShippingFulfillment
	fulfillmentErrs map[string]error
	queries         []ebay.OrdersQuery
}

func (f *fakeOrdersAPI) GetOrders(_ context.Context, q ebay.OrdersQuery) ([]ebay.Order, error) {
	f.queries = append(f.queries, q)
	if f.pageErr != nil {
		return nil, f.pageErr
	}
	idx := q.Offset / q.Limit
	if idx >= len(f.pages) {
		return nil, nil
	}
	return f.pages[idx], nil
}

func (f *fakeOrdersAPI) GetShippingFulfillments(_ context.Context, _ ebay.Environment, _ string, orderID string) ([]ebay.ShippingFulfillment, error) {
	if err := f.fulfillmentErrs[orderID]; err != nil {
		return nil, err
	}
	return f.fulfillments[orderID], nil
}

// ==================== Tracking provider fake ====================

type fakeProvider struct {
	registered map[string]string
	infos      map[string]*tracking.TrackInfo
	registers  int
	fetches    []string
}

func (f *fakeProvider) Name() string { return tracking.ProviderSeventeenTrack }

func (f *fakeProvider) ValidRef(ref string) (string, bool) {
	return ref, ref != ""
}

func (f *fakeProvider) Register(_ context.Context, number string) (string, error) {
	f.registers++
	ref, ok := f.registered[number]
	if !ok {
		return "", errors.New("unknown carrier")
	}
	return ref, nil
}

func (f *fakeProvider) Fetch(_ context.Context, ref, number string) (*tracking.TrackInfo, error) {
	f.fetches = append(f.fetches, ref+"/"+number)
	return f.infos[ref+"/"+number], nil
}

// ==================== Notification fakes ====================

type recordingNotifier struct {
	calls   int
	targets []model.NotificationTarget
	batch   NotificationBatch
}

func (r *recordingNotifier) Notify(_ context.Context, targets []model.NotificationTarget, batch NotificationBatch) []DeliveryOutcome {
	r.calls++
	r.targets = targets
	r.batch = batch
	return nil
}

type sentMessage struct {
	channelID string
	msg       discord.Message
}

type fakeTransport struct {
	mu       sync.Mutex
	channels map[string]*discord.Channel
	denied   map[string]bool
	failSend map[string]bool
	failDM   map[string]bool
	sent     []sentMessage
}

func (f *fakeTransport) FetchChannel(_ context.Context, channelID string) (*discord.Channel, error) {
	return f.channels[channelID], nil
}

func (f *fakeTransport) CanSend(_ context.Context, ch *discord.Channel) (bool, error) {
	return !f.denied[ch.ID], nil
}

func (f *fakeTransport) OpenDM(_ context.Context, userID string) (string, error) {
	if f.failDM[userID] {
		return "", errors.New("discord: 50007 cannot send messages to this user")
	}
	return "dm-" + userID, nil
}

func (f *fakeTransport) Send(_ context.Context, channelID string, msg discord.Message) error {
	if f.failSend[channelID] {
		return errors.New("discord: 500 internal error")
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, sentMessage{channelID: channelID, msg: msg})
	return nil
}

func (f *fakeTransport) sentTo(channelID string) []discord.Message {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []discord.Message
	for _, s := range f.sent {
		if s.channelID == channelID {
			out = append(out, s.msg)
		}
	}
	return out
}
