// Package queue holds the background consumer that keeps an append-only
// audit trail of workflow events delivered over RabbitMQ.
package queue

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/iliyamo/cafe-pos/internal/notify"
)

// orderSummary is the slice of an order snapshot worth auditing.
type orderSummary struct {
	ID            uint64          `json:"id"`
	TableID       uint64          `json:"table_id"`
	EmployeeID    uint64          `json:"employee_id"`
	Status        string          `json:"status"`
	TotalAmount   decimal.Decimal `json:"total_amount"`
	PaymentMethod *string         `json:"payment_method"`
	Items         []struct {
		ProductID uint64 `json:"product_id"`
		Quantity  int    `json:"quantity"`
	} `json:"items"`
}

// AuditLine renders one delivery as a single log line. Unknown topics are
// recorded with their raw payload.
func AuditLine(body []byte) (string, error) {
	var ev notify.Event
	if err := json.Unmarshal(body, &ev); err != nil {
		return "", fmt.Errorf("unmarshal event: %w", err)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "[%s] %s | event_id=%s | actor_id=%d",
		ev.OccurredAt.UTC().Format(time.RFC3339), ev.Topic.RoutingKey(), ev.ID, ev.ActorID)

	switch ev.Topic {
	case notify.TopicOrders:
		var o orderSummary
		if err := json.Unmarshal(ev.Payload, &o); err != nil {
			return "", fmt.Errorf("unmarshal order payload: %w", err)
		}
		units := 0
		for _, it := range o.Items {
			units += it.Quantity
		}
		fmt.Fprintf(&b, " | order_id=%d | table_id=%d | employee_id=%d | status=%s | total=%s | items=%d | units=%d",
			o.ID, o.TableID, o.EmployeeID, o.Status, o.TotalAmount.StringFixed(2), len(o.Items), units)
		if o.PaymentMethod != nil {
			fmt.Fprintf(&b, " | payment=%s", *o.PaymentMethod)
		}
	case notify.TopicTables:
		var t notify.TableStatus
		if err := json.Unmarshal(ev.Payload, &t); err != nil {
			return "", fmt.Errorf("unmarshal table payload: %w", err)
		}
		fmt.Fprintf(&b, " | table_id=%d | status=%s", t.TableID, t.Status)
	default:
		fmt.Fprintf(&b, " | payload=%s", ev.Payload)
	}
	b.WriteByte('\n')
	return b.String(), nil
}
