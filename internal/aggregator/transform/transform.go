// Package transform holds the helpers shared by aggregator payload mappers.
package transform

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/smallbiznis/ordersync/internal/aggregator/domain"
	orderdomain "github.com/smallbiznis/ordersync/internal/order/domain"
	"github.com/ttacon/libphonenumber"
)

var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
}

var errMissingTime = errors.New("timestamp is empty")

// ParseTime accepts RFC 3339 and the zone-less layouts some aggregators send.
// Zone-less values are read as UTC.
func ParseTime(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, errMissingTime
	}
	var lastErr error
	for _, layout := range timeLayouts {
		t, err := time.Parse(layout, raw)
		if err == nil {
			return t.UTC(), nil
		}
		lastErr = err
	}
	return time.Time{}, lastErr
}

// OptionalTime is ParseTime for nullable fields.
func OptionalTime(raw string) *time.Time {
	t, err := ParseTime(raw)
	if err != nil {
		return nil
	}
	return &t
}

// CustomerName joins the non-empty parts, falling back to the default name.
func CustomerName(parts ...string) string {
	kept := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			kept = append(kept, p)
		}
	}
	if len(kept) == 0 {
		return orderdomain.DefaultCustomerName
	}
	return strings.Join(kept, " ")
}

func PaymentMethod(raw string) string {
	raw = strings.ToUpper(strings.TrimSpace(raw))
	if raw == "" {
		return orderdomain.DefaultPaymentMethod
	}
	return raw
}

// Phone formats raw as E.164 when it parses for region. Anything else is
// returned trimmed; customer phone is best effort.
func Phone(raw, region string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	num, err := libphonenumber.Parse(raw, strings.ToUpper(region))
	if err != nil || !libphonenumber.IsValidNumber(num) {
		return raw
	}
	return libphonenumber.Format(num, libphonenumber.E164)
}

// Finalize validates a mapped order. Failures wrap domain.ErrInvalidOrder.
func Finalize(order orderdomain.CanonicalOrder) (orderdomain.CanonicalOrder, error) {
	if order.Items == nil {
		order.Items = []orderdomain.Item{}
	}
	for i := range order.Items {
		if order.Items[i].Modifiers == nil {
			order.Items[i].Modifiers = []orderdomain.Modifier{}
		}
	}
	if err := order.Validate(); err != nil {
		return orderdomain.CanonicalOrder{}, fmt.Errorf("%w: %v", domain.ErrInvalidOrder, err)
	}
	return order, nil
}

// InvalidOrder wraps a decode failure as domain.ErrInvalidOrder.
func InvalidOrder(err error) error {
	return fmt.Errorf("%w: %v", domain.ErrInvalidOrder, err)
}

type ordersEnvelope struct {
	Orders []json.RawMessage `json:"orders"`
}

// DecodeOrders reads an {"orders": [...]} listing and extracts each order id.
func DecodeOrders(body json.RawMessage) ([]domain.RawOrder, error) {
	if len(bytes.TrimSpace(body)) == 0 {
		return []domain.RawOrder{}, nil
	}
	var envelope ordersEnvelope
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, err
	}

	out := make([]domain.RawOrder, 0, len(envelope.Orders))
	for _, payload := range envelope.Orders {
		out = append(out, domain.RawOrder{
			ExternalID: ExtractID(payload),
			Payload:    payload,
		})
	}
	return out, nil
}

// ExtractID returns the order's "id" as a string, whether it was sent as a
// JSON string or number. Missing ids yield "".
func ExtractID(payload json.RawMessage) string {
	var probe struct {
		ID any `json:"id"`
	}
	dec := json.NewDecoder(bytes.NewReader(payload))
	dec.UseNumber()
	if err := dec.Decode(&probe); err != nil {
		return ""
	}
	return IDString(probe.ID)
}

func IDString(v any) string {
	switch id := v.(type) {
	case string:
		return strings.TrimSpace(id)
	case json.Number:
		return id.String()
	case float64:
		return strconv.FormatFloat(id, 'f', -1, 64)
	default:
		return ""
	}
}
