package model

import (
	"time"

	"gorm.io/datatypes"
)

// ShipmentTracking one tracking number per account and its last observed provider state
type ShipmentTracking struct {
	BaseModel
	EbayAccountID  string  `gorm:"size:36;not null;uniqueIndex:uk_trackings_account_number,priority:1" json:"ebay_account_id"`
	OrderID        string  `gorm:"size:128;not null;index" json:"order_id"`
	FulfillmentID  *string `gorm:"size:128" json:"fulfillment_id"`
	CarrierCode    *string `gorm:"size:64" json:"carrier_code"`
	TrackingNumber string  `gorm:"size:128;not null;uniqueIndex:uk_trackings_account_number,priority:2" json:"tracking_number"`

	// --- provider state ---
	Provider              string     `gorm:"size:32;not null" json:"provider"`
	ProviderRef           *string    `gorm:"size:128" json:"provider_ref"`
	LastCheckpointAt      *time.Time `json:"last_checkpoint_at"`
	DeliveredAt           *time.Time `json:"delivered_at"`
	LastTag               *string    `gorm:"size:64" json:"last_tag"`
	LastCheckpointSummary *string    `gorm:"type:text" json:"last_checkpoint_summary"`
	// LastSnapshot raw payload of the latest successful fetch
	LastSnapshot datatypes.JSON `json:"-"`
}

func (ShipmentTracking) TableName() string { return "shipment_trackings" }

// TrackingProgress fields written after each provider fetch
type TrackingProgress struct {
	ProviderRef           *string
	LastCheckpointAt      *time.Time
	DeliveredAt           *time.Time
	LastTag               *string
	LastCheckpointSummary *string
	LastSnapshot          datatypes.JSON
}
