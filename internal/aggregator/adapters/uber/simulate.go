package uber

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/smallbiznis/ordersync/internal/aggregator/domain"
)

// SimulateOrder builds a sample Uber Eats payload so the POS leg can be
// exercised without live aggregator credentials.
func SimulateOrder(now time.Time) domain.RawOrder {
	id := fmt.Sprintf("UBER-SIM-%d", now.UnixMilli())
	payload := map[string]any{
		"id":         id,
		"display_id": id,
		"eater": map[string]any{
			"first_name": "Cliente",
			"last_name":  "Prueba",
			"phone":      "+593999999999",
		},
		"delivery": map[string]any{
			"location": map[string]any{"address": "Av. Principal 123"},
		},
		"cart": map[string]any{
			"items": []map[string]any{
				{
					"title":    "Combo Familiar",
					"quantity": 2,
					"price":    1500,
					"selected_modifier_groups": []map[string]any{
						{"selected_items": []map[string]any{{"title": "Extra Papas", "price": 200}}},
					},
				},
				{
					"title":    "Gaseosa 1.5L",
					"quantity": 1,
					"price":    250,
				},
			},
		},
		"payment": map[string]any{
			"type": "ONLINE",
			"charges": map[string]any{
				"subtotal":     3450,
				"tax":          414,
				"delivery_fee": 150,
				"total":        4014,
			},
		},
		"placed_at":                     now.UTC().Format(time.RFC3339),
		"estimated_ready_for_pickup_at": now.Add(30 * time.Minute).UTC().Format(time.RFC3339),
	}

	raw, _ := json.Marshal(payload)
	return domain.RawOrder{ExternalID: id, Payload: raw}
}
