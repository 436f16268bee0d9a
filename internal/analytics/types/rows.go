package types

import (
	"time"

	cbigquery "cloud.google.com/go/bigquery"
)

// FulfillmentFactRow mirrors the fulfillment_facts BigQuery schema: one row
// per order per lifecycle event. Money columns are in paise.
type FulfillmentFactRow struct {
	EventID          string             `bigquery:"event_id"`
	EventType        string             `bigquery:"event_type"`
	OccurredAt       time.Time          `bigquery:"occurred_at"`
	CheckoutGroupID  *string            `bigquery:"checkout_group_id"`
	OrderID          string             `bigquery:"order_id"`
	UserID           *string            `bigquery:"user_id"`
	SellerID         *string            `bigquery:"seller_id"`
	StaffID          *string            `bigquery:"staff_id"`
	FromStatus       *string            `bigquery:"from_status"`
	ToStatus         *string            `bigquery:"to_status"`
	PaymentMethod    *string            `bigquery:"payment_method"`
	ItemCount        *int64             `bigquery:"item_count"`
	SubtotalPaise    *int64             `bigquery:"subtotal_paise"`
	TotalPaise       *int64             `bigquery:"total_paise"`
	StaffCreditPaise *int64             `bigquery:"staff_credit_paise"`
	Payload          cbigquery.NullJSON `bigquery:"payload"`
}
