package domain

import "github.com/smallbiznis/ordersync/pkg/integration"

const (
	FieldStoreID      = "store_id"
	FieldRestaurantID = "restaurant_id"
	FieldPosID        = "pos_id"
	FieldClientID     = "client_id"
	FieldClientSecret = "client_secret"
	FieldAPIKey       = "api_key"
	FieldSecretKey    = "secret_key"
	FieldAccessToken  = "access_token"
)

type Field struct {
	Name     string
	Required bool
	Secret   bool
}

var providerFields = map[integration.Provider][]Field{
	integration.ProviderUber: {
		{Name: FieldStoreID, Required: true},
		{Name: FieldClientID, Required: true},
		{Name: FieldClientSecret, Required: true, Secret: true},
	},
	integration.ProviderRappi: {
		{Name: FieldStoreID, Required: true},
		{Name: FieldAPIKey, Required: true, Secret: true},
		{Name: FieldSecretKey, Required: true, Secret: true},
	},
	integration.ProviderPedidosYa: {
		{Name: FieldStoreID, Required: true},
		{Name: FieldClientID, Required: true, Secret: true},
		{Name: FieldClientSecret, Required: true, Secret: true},
	},
	integration.ProviderLoyverse: {
		{Name: FieldStoreID, Required: true},
		{Name: FieldAccessToken, Required: true, Secret: true},
		{Name: FieldPosID},
	},
}

// Fields returns the credential fields accepted for provider.
func Fields(provider integration.Provider) []Field {
	return providerFields[provider]
}

// DefaultSettings are applied when a provider is configured for the first time.
func DefaultSettings(provider integration.Provider) Settings {
	s := Settings{
		SyncInterval: 5,
		SyncOrders:   true,
	}
	if provider == integration.ProviderLoyverse {
		s.DefaultPaymentType = "CASH"
	}
	return s
}
