package adapters

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/smallbiznis/ordersync/internal/aggregator/domain"
	"github.com/smallbiznis/ordersync/internal/config"
	"github.com/smallbiznis/ordersync/pkg/integration"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
)

// ClientCredentialsToken runs the OAuth2 client credentials grant against
// endpoint.TokenURL. Rejections become *integration.AuthError.
func ClientCredentialsToken(ctx context.Context, provider integration.Provider, client *http.Client, endpoint config.Endpoint, clientID, clientSecret string) (domain.Token, error) {
	if strings.TrimSpace(endpoint.TokenURL) == "" {
		return domain.Token{}, domain.ErrInvalidConfig
	}

	cc := clientcredentials.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		TokenURL:     endpoint.TokenURL,
		Scopes:       endpoint.Scopes,
		AuthStyle:    oauth2.AuthStyleInParams,
	}
	if client != nil {
		ctx = context.WithValue(ctx, oauth2.HTTPClient, client)
	}

	tok, err := cc.Token(ctx)
	if err != nil {
		var retrieveErr *oauth2.RetrieveError
		if errors.As(err, &retrieveErr) {
			msg := strings.TrimSpace(retrieveErr.ErrorDescription)
			if msg == "" {
				msg = integration.ErrorMessage(retrieveErr.Body)
			}
			return domain.Token{}, &integration.AuthError{Provider: provider, Message: msg, Err: err}
		}
		return domain.Token{}, &integration.UpstreamError{Provider: provider, Err: err}
	}

	return domain.Token{AccessToken: tok.AccessToken, ExpiresAt: tok.Expiry}, nil
}

// BearerHeader builds the Authorization header for token.
func BearerHeader(token domain.Token) http.Header {
	h := http.Header{}
	if token.AccessToken != "" {
		h.Set("Authorization", "Bearer "+token.AccessToken)
	}
	return h
}

// WindowQuery renders a fetch window the way the aggregators expect it.
func WindowQuery(window domain.Window) map[string]string {
	q := map[string]string{
		"start_date": window.Start.UTC().Format("2006-01-02T15:04:05.000Z07:00"),
		"end_date":   window.End.UTC().Format("2006-01-02T15:04:05.000Z07:00"),
	}
	if status := strings.TrimSpace(window.Status); status != "" {
		q["status"] = status
	}
	return q
}
