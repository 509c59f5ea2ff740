package integration

import "strings"

// Provider identifies an external system a tenant can connect.
type Provider string

const (
	ProviderUber      Provider = "uber"
	ProviderRappi     Provider = "rappi"
	ProviderPedidosYa Provider = "pedidosya"
	ProviderLoyverse  Provider = "loyverse"
)

// Aggregators lists the order sources in a stable order.
func Aggregators() []Provider {
	return []Provider{ProviderUber, ProviderRappi, ProviderPedidosYa}
}

func (p Provider) String() string { return string(p) }

// IsAggregator reports whether p is an order source rather than the POS.
func (p Provider) IsAggregator() bool {
	switch p {
	case ProviderUber, ProviderRappi, ProviderPedidosYa:
		return true
	default:
		return false
	}
}

// ParseProvider normalizes raw and returns ErrUnknownProvider for anything
// outside the supported set.
func ParseProvider(raw string) (Provider, error) {
	p := Provider(strings.ToLower(strings.TrimSpace(raw)))
	switch p {
	case ProviderUber, ProviderRappi, ProviderPedidosYa, ProviderLoyverse:
		return p, nil
	default:
		return "", ErrUnknownProvider
	}
}

// ParseAggregator is ParseProvider restricted to order sources.
func ParseAggregator(raw string) (Provider, error) {
	p, err := ParseProvider(raw)
	if err != nil {
		return "", err
	}
	if !p.IsAggregator() {
		return "", ErrUnknownProvider
	}
	return p, nil
}
