package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/datatypes"

	"github.com/scirpter/eBay-Shipping-Notifications-Discord-Bot/internal/model"
	"github.com/scirpter/eBay-Shipping-Notifications-Discord-Bot/internal/repository"
	"github.com/scirpter/eBay-Shipping-Notifications-Discord-Bot/pkg/discord"
	"github.com/scirpter/eBay-Shipping-Notifications-Discord-Bot/pkg/logger"
	"github.com/scirpter/eBay-Shipping-Notifications-Discord-Bot/pkg/tracking"
)

// ==================== Dependencies ====================

// NotificationSender delivers one account's batch
type NotificationSender interface {
	Notify(ctx context.Context, targets []model.NotificationTarget, batch NotificationBatch) []DeliveryOutcome
}

// ==================== TrackingSyncService ====================

// TrackingSyncResult counters for one pass
type TrackingSyncResult struct {
	Trackings  int
	Fetched    int
	Events     int
	Suppressed int
	Failures   int
	Outcomes   []DeliveryOutcome
}

// TrackingSyncService polls the tracking provider and notifies on transitions
type TrackingSyncService struct {
	provider  tracking.Provider
	accounts  repository.AccountRepository
	trackings repository.TrackingRepository
	guilds    repository.GuildRepository
	notifier  NotificationSender
	log       *zap.Logger
	now       func() time.Time
}

// NewTrackingSyncService creates the tracking synchronizer
func NewTrackingSyncService(
	provider tracking.Provider,
	accounts repository.AccountRepository,
	trackings repository.TrackingRepository,
	guilds repository.GuildRepository,
	notifier NotificationSender,
	log *zap.Logger,
) *TrackingSyncService {
	return &TrackingSyncService{
		provider:  provider,
		accounts:  accounts,
		trackings: trackings,
		guilds:    guilds,
		notifier:  notifier,
		log:       logger.OrGlobal(log).Named("tracking_sync"),
		now:       time.Now,
	}
}

// trackingOutcome what one tracking contributed to the batch
type trackingOutcome struct {
	fetched    bool
	event      TrackingEvent
	suppressed bool
	embed      *discord.Embed
}

// SyncTrackings refreshes every tracking of the account, then notifies the account's targets once.
// Failures are isolated per tracking number.
func (s *TrackingSyncService) SyncTrackings(ctx context.Context, account *model.EbayAccount) (*TrackingSyncResult, error) {
	log := s.log.With(zap.String("account_id", account.ID))

	rows, err := s.trackings.ListByAccount(ctx, account.ID)
	if err != nil {
		return nil, fmt.Errorf("list trackings: %w", err)
	}
	targets, err := s.listTargets(ctx, account)
	if err != nil {
		log.Warn("list notification targets failed", zap.Error(err))
		targets = nil
	}

	result := &TrackingSyncResult{Trackings: len(rows)}
	batch := NotificationBatch{}

	for i := range rows {
		row := &rows[i]
		out, err := s.syncTracking(ctx, account, row)
		if err != nil {
			result.Failures++
			log.Warn("tracking sync failed", zap.String("tracking_number", row.TrackingNumber), zap.Error(err))
			continue
		}
		if out.fetched {
			result.Fetched++
		}
		if out.suppressed {
			result.Suppressed++
		}
		if out.embed != nil {
			result.Events++
			batch.Embeds = append(batch.Embeds, *out.embed)
			if out.event == EventDelay {
				batch.PingUserInChannel = true
			}
		}
	}

	if len(batch.Embeds) > 0 {
		result.Outcomes = s.notifier.Notify(ctx, targets, batch)
	}

	syncedAt := s.now()
	if err := s.accounts.UpdateSyncMarkers(ctx, account.ID, repository.SyncMarkers{LastTrackingSyncAt: &syncedAt}); err != nil {
		log.Warn("persist last tracking sync marker failed", zap.Error(err))
	} else {
		account.LastTrackingSyncAt = &syncedAt
	}
	return result, nil
}

// listTargets everyone subscribed to the seller identity, or to the account when the identity is unknown
func (s *TrackingSyncService) listTargets(ctx context.Context, account *model.EbayAccount) ([]model.NotificationTarget, error) {
	if account.HasKnownEbayUser() {
		return s.guilds.ListTargetsByEbayUser(ctx, account.Environment, account.EbayUserID)
	}
	return s.guilds.ListTargetsByAccount(ctx, account.ID)
}

func (s *TrackingSyncService) syncTracking(ctx context.Context, account *model.EbayAccount, row *model.ShipmentTracking) (trackingOutcome, error) {
	var out trackingOutcome
	log := s.log.With(zap.String("account_id", account.ID), zap.String("tracking_number", row.TrackingNumber))

	storedRef := ""
	if row.ProviderRef != nil {
		storedRef = *row.ProviderRef
	}
	ref, fromDB := s.provider.ValidRef(storedRef)
	if !fromDB {
		ref = s.register(ctx, log, row.TrackingNumber)
	}
	if ref == "" {
		return out, nil
	}
	if ref != storedRef {
		s.persistRef(ctx, log, row, ref)
	}

	info, err := s.provider.Fetch(ctx, ref, row.TrackingNumber)
	if err != nil {
		return out, fmt.Errorf("fetch tracking: %w", err)
	}
	if info == nil && fromDB {
		// the stored carrier may be stale, ask the provider again once
		if fresh := s.register(ctx, log, row.TrackingNumber); fresh != "" && fresh != ref {
			ref = fresh
			s.persistRef(ctx, log, row, ref)
			if info, err = s.provider.Fetch(ctx, ref, row.TrackingNumber); err != nil {
				return out, fmt.Errorf("fetch tracking after re-register: %w", err)
			}
		}
	}
	if info == nil {
		return out, nil
	}
	out.fetched = true

	cur := tracking.Extract(info)
	prev := TrackingState{DeliveredAt: row.DeliveredAt, CheckpointAt: row.LastCheckpointAt}
	if row.LastTag != nil {
		prev.Tag = *row.LastTag
	}
	event := DetectTrackingEvent(prev, TrackingState{
		DeliveredAt:  cur.DeliveredAt,
		CheckpointAt: cur.CheckpointAt,
		Tag:          cur.Tag,
	})

	if event == EventDelivered && suppressDelivered(account, row, cur) {
		out.suppressed = true
		event = EventNone
		log.Debug("historical delivery suppressed")
	}
	out.event = event

	if event != EventNone {
		carrier := cur.CarrierName
		if carrier == "" && row.CarrierCode != nil {
			carrier = *row.CarrierCode
		}
		embed := BuildTrackingEmbed(TrackingEmbedInput{
			Event:          event,
			OrderID:        row.OrderID,
			TrackingNumber: row.TrackingNumber,
			Carrier:        carrier,
			Tag:            cur.Tag,
			Summary:        cur.Summary,
			CheckpointAt:   cur.CheckpointAt,
			DeliveredAt:    cur.DeliveredAt,
		}, s.now())
		out.embed = &embed
	}

	progress := model.TrackingProgress{
		ProviderRef:           &ref,
		LastCheckpointAt:      cur.CheckpointAt,
		DeliveredAt:           cur.DeliveredAt,
		LastTag:               nonEmpty(cur.Tag),
		LastCheckpointSummary: nonEmpty(cur.Summary),
		LastSnapshot:          datatypes.JSON(info.Raw),
	}
	if err := s.trackings.UpdateProgress(ctx, row.ID, progress); err != nil {
		log.Warn("persist tracking progress failed", zap.Error(err))
	}
	return out, nil
}

// suppressDelivered a delivery first seen on the account's first pass, or one that happened
// before the later of the last pass and the row's creation, is history rather than news
func suppressDelivered(account *model.EbayAccount, row *model.ShipmentTracking, cur tracking.State) bool {
	if row.DeliveredAt != nil {
		return false
	}
	if account.LastTrackingSyncAt == nil {
		return true
	}

	cutoff := row.CreatedAt
	if account.LastTrackingSyncAt.After(cutoff) {
		cutoff = *account.LastTrackingSyncAt
	}
	at := cur.DeliveredAt
	if at == nil {
		at = cur.CheckpointAt
	}
	return at != nil && !at.After(cutoff)
}

func (s *TrackingSyncService) register(ctx context.Context, log *zap.Logger, trackingNumber string) string {
	ref, err := s.provider.Register(ctx, trackingNumber)
	if err != nil {
		log.Warn("register tracking number failed", zap.Error(err))
		return ""
	}
	return ref
}

func (s *TrackingSyncService) persistRef(ctx context.Context, log *zap.Logger, row *model.ShipmentTracking, ref string) {
	if err := s.trackings.UpdateProviderRef(ctx, row.ID, ref); err != nil {
		log.Warn("persist provider ref failed", zap.Error(err))
		return
	}
	row.ProviderRef = &ref
}
