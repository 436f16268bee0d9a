package writer

import (
	cbigquery "cloud.google.com/go/bigquery"

	pkgbigquery "github.com/pennyekart/pennyekart-backend/pkg/bigquery"
)

// FulfillmentSchema matches types.FulfillmentFactRow column for column.
var FulfillmentSchema = cbigquery.Schema{
	{Name: "event_id", Type: cbigquery.StringFieldType, Required: true},
	{Name: "event_type", Type: cbigquery.StringFieldType, Required: true},
	{Name: "occurred_at", Type: cbigquery.TimestampFieldType, Required: true},
	{Name: "checkout_group_id", Type: cbigquery.StringFieldType},
	{Name: "order_id", Type: cbigquery.StringFieldType, Required: true},
	{Name: "user_id", Type: cbigquery.StringFieldType},
	{Name: "seller_id", Type: cbigquery.StringFieldType},
	{Name: "staff_id", Type: cbigquery.StringFieldType},
	{Name: "from_status", Type: cbigquery.StringFieldType},
	{Name: "to_status", Type: cbigquery.StringFieldType},
	{Name: "payment_method", Type: cbigquery.StringFieldType},
	{Name: "item_count", Type: cbigquery.IntegerFieldType},
	{Name: "subtotal_paise", Type: cbigquery.IntegerFieldType},
	{Name: "total_paise", Type: cbigquery.IntegerFieldType},
	{Name: "staff_credit_paise", Type: cbigquery.IntegerFieldType},
	{Name: "payload", Type: cbigquery.JSONFieldType},
}

// FulfillmentTable is the table definition the analytics worker registers with the
// BigQuery client: day partitions on occurred_at, clustered for per-order
// and per-event-type scans.
func FulfillmentTable(name string) pkgbigquery.TableSpec {
	return pkgbigquery.TableSpec{
		Name:           name,
		Schema:         FulfillmentSchema,
		PartitionField: "occurred_at",
		ClusterFields:  []string{"event_type", "order_id"},
	}
}
