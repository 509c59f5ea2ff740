package loyverse

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	orderdomain "github.com/smallbiznis/ordersync/internal/order/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleOrder() orderdomain.CanonicalOrder {
	return orderdomain.CanonicalOrder{
		OrderNumber: "UE-42",
		Customer:    orderdomain.Customer{Name: "Ana", Phone: "+593999999999"},
		Items: []orderdomain.Item{
			{
				Name:     "Combo Familiar",
				Quantity: 2,
				Price:    decimal.NewFromInt(15),
				Modifiers: []orderdomain.Modifier{
					{Name: "Extra Papas", Price: decimal.NewFromInt(2)},
					{Name: "Salsa", Price: decimal.RequireFromString("0.5")},
				},
			},
			{Name: "Gaseosa", Quantity: 1, Price: decimal.RequireFromString("2.5")},
		},
		Subtotal:      decimal.RequireFromString("34.5"),
		Tax:           decimal.RequireFromString("4.14"),
		DeliveryFee:   decimal.RequireFromString("1.5"),
		Total:         decimal.RequireFromString("40.14"),
		PaymentMethod: "ONLINE",
		OrderTime:     time.Date(2026, 3, 1, 18, 30, 0, 0, time.UTC),
	}
}

func TestBuildReceiptFoldsModifiersIntoPrice(t *testing.T) {
	receipt := BuildReceipt(sampleOrder(), ReceiptSettings{StoreID: "store-1"})

	require.Len(t, receipt.LineItems, 3)
	assert.Equal(t, json.Number("17.5"), receipt.LineItems[0].Price)
	assert.Equal(t, 2, receipt.LineItems[0].Quantity)
	assert.Equal(t, "Combo Familiar", receipt.LineItems[0].LineNote)
	assert.Len(t, receipt.LineItems[0].LineModifiers, 2)
	assert.Equal(t, json.Number("2.5"), receipt.LineItems[1].Price)

	delivery := receipt.LineItems[2]
	assert.Equal(t, DeliveryFeeLine, delivery.LineNote)
	assert.Equal(t, 1, delivery.Quantity)
	assert.Equal(t, json.Number("1.5"), delivery.Price)

	require.Len(t, receipt.Payments, 1)
	assert.Equal(t, "CARD", receipt.Payments[0].PaymentTypeID)
	assert.Equal(t, json.Number("40.14"), receipt.Payments[0].Amount)
	assert.Equal(t, json.Number("40.14"), receipt.TotalMoney)
	assert.Equal(t, json.Number("4.14"), receipt.TotalTax)
	assert.Equal(t, "Orden UE-42 - Ana", receipt.Note)
	assert.Equal(t, ReceiptTypeSell, receipt.ReceiptType)
	assert.Equal(t, "+593999999999", receipt.Customer.PhoneNumber)
}

func TestBuildReceiptSkipsZeroDeliveryFee(t *testing.T) {
	order := sampleOrder()
	order.DeliveryFee = decimal.Zero

	receipt := BuildReceipt(order, ReceiptSettings{StoreID: "store-1"})
	assert.Len(t, receipt.LineItems, 2)
}

func TestBuildReceiptOmitsUnsetOptionalFields(t *testing.T) {
	raw, err := json.Marshal(BuildReceipt(sampleOrder(), ReceiptSettings{StoreID: "store-1"}))
	require.NoError(t, err)

	var payload map[string]any
	require.NoError(t, json.Unmarshal(raw, &payload))
	assert.NotContains(t, payload, "pos_id")
	assert.NotContains(t, payload, "employee_id")
	assert.Equal(t, 40.14, payload["total_money"])

	raw, err = json.Marshal(BuildReceipt(sampleOrder(), ReceiptSettings{StoreID: "store-1", PosID: "pos-1", EmployeeID: "emp-1"}))
	require.NoError(t, err)
	payload = map[string]any{}
	require.NoError(t, json.Unmarshal(raw, &payload))
	assert.Equal(t, "pos-1", payload["pos_id"])
	assert.Equal(t, "emp-1", payload["employee_id"])
}

func TestResolvePaymentTypeIDPrecedence(t *testing.T) {
	settings := ReceiptSettings{
		DefaultPaymentType: "tenant-default",
		PaymentMappings: []PaymentMapping{
			{AggregatorPayment: "ONLINE", LoyversePayment: "pt-online"},
		},
	}

	cases := []struct {
		name     string
		method   string
		settings ReceiptSettings
		want     string
	}{
		{name: "tenant mapping wins", method: "ONLINE", settings: settings, want: "pt-online"},
		{name: "built-in default", method: "DEBIT_CARD", settings: settings, want: "CARD"},
		{name: "built-in cash", method: "CASH", settings: settings, want: "CASH"},
		{name: "tenant default", method: "VOUCHER", settings: settings, want: "tenant-default"},
		{name: "literal fallback", method: "VOUCHER", settings: ReceiptSettings{}, want: "CASH"},
		{name: "built-in without mapping", method: "ONLINE", settings: ReceiptSettings{}, want: "CARD"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, ResolvePaymentTypeID(tc.method, tc.settings))
		})
	}
}
