package model

import "time"

// Fulfillment statuses as reported by eBay
const (
	FulfillmentNotStarted = "NOT_STARTED"
	FulfillmentInProgress = "IN_PROGRESS"
	FulfillmentFulfilled  = "FULFILLED"
)

// Order one eBay order per (account, eBay order id)
type Order struct {
	BaseModel
	EbayAccountID     string     `gorm:"size:36;not null;uniqueIndex:uk_orders_account_order,priority:1" json:"ebay_account_id"`
	OrderID           string     `gorm:"size:128;not null;uniqueIndex:uk_orders_account_order,priority:2" json:"order_id"`
	OrderCreatedAt    *time.Time `json:"order_created_at"`
	LastModifiedAt    *time.Time `json:"last_modified_at"`
	FulfillmentStatus string     `gorm:"size:16;not null" json:"fulfillment_status"`
	BuyerUsername     *string    `gorm:"size:128" json:"buyer_username"`
	Summary           string     `gorm:"type:text;not null" json:"summary"`
}

func (Order) TableName() string { return "orders" }
