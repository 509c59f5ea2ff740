package integration

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClientDoDecodesJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/stores", r.URL.Path)
		assert.Equal(t, "abc", r.URL.Query().Get("store_id"))
		assert.Equal(t, "Bearer token", r.Header.Get("Authorization"))
		assert.Equal(t, "static", r.Header.Get("X-Static"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"stores":[{"id":"s1"}]}`))
	}))
	defer srv.Close()

	client := NewClient(ProviderLoyverse, srv.URL+"/v1/", 0)
	client.SetHeader("X-Static", "static")

	var out struct {
		Stores []struct {
			ID string `json:"id"`
		} `json:"stores"`
	}
	err := client.Do(context.Background(), Request{
		Path:   "/stores",
		Query:  url.Values{"store_id": {"abc"}},
		Header: http.Header{"Authorization": {"Bearer token"}},
	}, &out)
	require.NoError(t, err)
	require.Len(t, out.Stores, 1)
	assert.Equal(t, "s1", out.Stores[0].ID)
}

func TestClientDoReturnsUpstreamMessageVerbatim(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"message":"Payment type not found"}`))
	}))
	defer srv.Close()

	err := NewClient(ProviderLoyverse, srv.URL, 0).Do(context.Background(), Request{Method: http.MethodPost, Path: "/receipts", Body: map[string]any{}}, nil)
	require.Error(t, err)

	var upstreamErr *UpstreamError
	require.True(t, errors.As(err, &upstreamErr))
	assert.Equal(t, http.StatusBadRequest, upstreamErr.StatusCode)
	assert.True(t, upstreamErr.ClientError())
	assert.Equal(t, "Payment type not found", err.Error())
}

func TestClientDoTransportFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close()

	err := NewClient(ProviderUber, srv.URL, 0).Do(context.Background(), Request{Path: "/stores/1"}, nil)
	require.Error(t, err)
	assert.True(t, IsUpstream(err))
}

func TestErrorMessage(t *testing.T) {
	cases := []struct {
		name string
		body string
		want string
	}{
		{name: "empty", body: "", want: ""},
		{name: "plain text", body: "Bad Gateway", want: "Bad Gateway"},
		{name: "message", body: `{"message":"invalid store"}`, want: "invalid store"},
		{name: "nested error", body: `{"error":{"message":"expired"}}`, want: "expired"},
		{name: "oauth", body: `{"error":"invalid_client","error_description":"bad secret"}`, want: "bad secret"},
		{name: "errors list", body: `{"errors":[{"code":"BAD_REQUEST","details":"line_items is required"}]}`, want: "line_items is required"},
		{name: "unknown json", body: `{"foo":"bar"}`, want: `{"foo":"bar"}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, ErrorMessage([]byte(tc.body)))
		})
	}
}

func TestParseProvider(t *testing.T) {
	p, err := ParseProvider(" Uber ")
	require.NoError(t, err)
	assert.Equal(t, ProviderUber, p)
	assert.True(t, p.IsAggregator())

	p, err = ParseProvider("loyverse")
	require.NoError(t, err)
	assert.False(t, p.IsAggregator())

	_, err = ParseAggregator("loyverse")
	assert.ErrorIs(t, err, ErrUnknownProvider)

	_, err = ParseProvider("glovo")
	assert.ErrorIs(t, err, ErrUnknownProvider)
}

func TestErrorTypes(t *testing.T) {
	assert.ErrorIs(t, ConfigMissing(ProviderLoyverse), ErrConfigMissing)
	assert.True(t, IsAuth(&AuthError{Provider: ProviderUber, Message: "invalid_client"}))
	assert.Equal(t, "invalid_client", (&AuthError{Message: "invalid_client"}).Error())
	assert.True(t, IsUpstream(&PosRejectedError{Reason: "nope"}))
	assert.Equal(t, "nope", (&PosRejectedError{Reason: "nope"}).Error())
}
