package barcode

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/atlas-pos/atlas-pos/internal/shared"
)

func TestValidateCode(t *testing.T) {
	require.NoError(t, ValidateCode("12345678"))
	require.NoError(t, ValidateCode("036000291452"))
	require.NoError(t, ValidateCode("4006381333931"))
	require.NoError(t, ValidateCode("10036000291459"))

	require.ErrorIs(t, ValidateCode("1234"), shared.ErrInvalidInput)
	require.ErrorIs(t, ValidateCode("123456789"), shared.ErrInvalidInput)
	require.ErrorIs(t, ValidateCode("12345678901a"), shared.ErrInvalidInput)
	require.ErrorIs(t, ValidateCode(""), shared.ErrInvalidInput)
}

func TestLookupMapsProduct(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/v2/product/4006381333931.json", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"status": 1,
			"product": {
				"product_name": "Sparkling Water",
				"brands": "Acme, Acme Intl",
				"categories": "Beverages, Waters",
				"generic_name": "Carbonated water",
				"image_front_url": "https://img.example/4006381333931.jpg"
			}
		}`))
	}))
	defer srv.Close()

	client := NewClient(srv.URL, srv.Client())
	info, err := client.Lookup(context.Background(), "4006381333931")
	require.NoError(t, err)
	require.Equal(t, "Sparkling Water", info.Name)
	require.Equal(t, "Acme", info.Brand)
	require.Equal(t, "Beverages", info.Category)
	require.Equal(t, "Carbonated water", info.Description)
	require.Equal(t, "https://img.example/4006381333931.jpg", info.ImageURL)
	require.Equal(t, "4006381333931", info.Barcode)
}

func TestLookupUnknownBarcode(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status": 0}`))
	}))
	defer srv.Close()

	client := NewClient(srv.URL, srv.Client())
	_, err := client.Lookup(context.Background(), "4006381333931")
	require.ErrorIs(t, err, shared.ErrNotFound)
}

func TestLookupUpstreamError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	client := NewClient(srv.URL, srv.Client())
	_, err := client.Lookup(context.Background(), "4006381333931")
	require.ErrorIs(t, err, shared.ErrNotFound)
}

func TestLookupTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		time.Sleep(200 * time.Millisecond)
		_, _ = w.Write([]byte(`{"status": 1}`))
	}))
	defer srv.Close()

	client := NewClient(srv.URL, &http.Client{Timeout: 20 * time.Millisecond})
	_, err := client.Lookup(context.Background(), "4006381333931")
	require.ErrorIs(t, err, shared.ErrNotFound)
}

func TestLookupRejectsBadCodeBeforeCalling(t *testing.T) {
	called := false
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		called = true
	}))
	defer srv.Close()

	client := NewClient(srv.URL, srv.Client())
	_, err := client.Lookup(context.Background(), "abc")
	require.ErrorIs(t, err, shared.ErrInvalidInput)
	require.False(t, called)
}
