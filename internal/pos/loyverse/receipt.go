package loyverse

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	orderdomain "github.com/smallbiznis/ordersync/internal/order/domain"
)

const (
	ReceiptTypeSell     = "SELL"
	DeliveryFeeLine     = "Delivery Fee"
	FallbackPaymentType = "CASH"
)

// defaultPaymentTypes maps common aggregator payment methods onto Loyverse
// payment type ids when the tenant has no explicit mapping.
var defaultPaymentTypes = map[string]string{
	"CASH":        "CASH",
	"CARD":        "CARD",
	"ONLINE":      "CARD",
	"CREDIT_CARD": "CARD",
	"DEBIT_CARD":  "CARD",
}

type PaymentMapping struct {
	AggregatorPayment string
	LoyversePayment   string
}

// ReceiptSettings is the tenant configuration a receipt depends on.
type ReceiptSettings struct {
	StoreID            string
	PosID              string
	EmployeeID         string
	DefaultPaymentType string
	PaymentMappings    []PaymentMapping
}

type Receipt struct {
	StoreID     string          `json:"store_id"`
	PosID       string          `json:"pos_id,omitempty"`
	EmployeeID  string          `json:"employee_id,omitempty"`
	ReceiptType string          `json:"receipt_type"`
	ReceiptDate time.Time       `json:"receipt_date"`
	Note        string          `json:"note"`
	LineItems   []LineItem      `json:"line_items"`
	Payments    []Payment       `json:"payments"`
	TotalMoney  json.Number     `json:"total_money"`
	TotalTax    json.Number     `json:"total_tax"`
	Customer    ReceiptCustomer `json:"customer"`
}

type LineItem struct {
	LineNote      string         `json:"line_note"`
	Quantity      int            `json:"quantity"`
	Price         json.Number    `json:"price"`
	Cost          json.Number    `json:"cost"`
	LineModifiers []LineModifier `json:"line_modifiers,omitempty"`
}

type LineModifier struct {
	Name  string      `json:"name"`
	Price json.Number `json:"price"`
}

type Payment struct {
	PaymentTypeID string      `json:"payment_type_id"`
	Amount        json.Number `json:"amount"`
}

type ReceiptCustomer struct {
	Name        string `json:"name"`
	PhoneNumber string `json:"phone_number"`
}

func number(d decimal.Decimal) json.Number {
	return json.Number(d.String())
}

// BuildReceipt maps a canonical order onto a Loyverse receipt. Modifier prices
// are folded into the unit price of their line; the modifiers themselves are
// only listed for reference.
func BuildReceipt(order orderdomain.CanonicalOrder, settings ReceiptSettings) Receipt {
	lines := make([]LineItem, 0, len(order.Items)+1)
	for _, item := range order.Items {
		modifiers := make([]LineModifier, 0, len(item.Modifiers))
		for _, m := range item.Modifiers {
			modifiers = append(modifiers, LineModifier{Name: m.Name, Price: number(m.Price)})
		}
		lines = append(lines, LineItem{
			LineNote:      item.Name,
			Quantity:      item.Quantity,
			Price:         number(item.Price.Add(item.ModifiersTotal())),
			Cost:          number(decimal.Zero),
			LineModifiers: modifiers,
		})
	}

	if order.DeliveryFee.IsPositive() {
		lines = append(lines, LineItem{
			LineNote: DeliveryFeeLine,
			Quantity: 1,
			Price:    number(order.DeliveryFee),
			Cost:     number(decimal.Zero),
		})
	}

	return Receipt{
		StoreID:     settings.StoreID,
		PosID:       strings.TrimSpace(settings.PosID),
		EmployeeID:  strings.TrimSpace(settings.EmployeeID),
		ReceiptType: ReceiptTypeSell,
		ReceiptDate: order.OrderTime.UTC(),
		Note:        fmt.Sprintf("Orden %s - %s", order.OrderNumber, order.Customer.Name),
		LineItems:   lines,
		Payments: []Payment{{
			PaymentTypeID: ResolvePaymentTypeID(order.PaymentMethod, settings),
			Amount:        number(order.Total),
		}},
		TotalMoney: number(order.Total),
		TotalTax:   number(order.Tax),
		Customer: ReceiptCustomer{
			Name:        order.Customer.Name,
			PhoneNumber: order.Customer.Phone,
		},
	}
}

// ResolvePaymentTypeID picks the Loyverse payment type for method: tenant
// mapping first, then the built-in defaults, then the tenant default, then CASH.
func ResolvePaymentTypeID(method string, settings ReceiptSettings) string {
	method = strings.TrimSpace(method)
	for _, m := range settings.PaymentMappings {
		if strings.EqualFold(strings.TrimSpace(m.AggregatorPayment), method) && strings.TrimSpace(m.LoyversePayment) != "" {
			return strings.TrimSpace(m.LoyversePayment)
		}
	}
	if id, ok := defaultPaymentTypes[strings.ToUpper(method)]; ok {
		return id
	}
	if def := strings.TrimSpace(settings.DefaultPaymentType); def != "" {
		return def
	}
	return FallbackPaymentType
}
