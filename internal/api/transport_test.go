package api

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTransport_Outgoing(t *testing.T) {
	t.Run("attaches bearer token when one is available", func(t *testing.T) {
		var gotAuth string
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			gotAuth = r.Header.Get("Authorization")
			w.WriteHeader(http.StatusOK)
		}))
		defer server.Close()

		client := &http.Client{Transport: &Transport{Token: func() string { return "T1" }}}
		resp, err := client.Get(server.URL)
		require.NoError(t, err)
		resp.Body.Close()

		assert.Equal(t, "Bearer T1", gotAuth)
	})

	t.Run("anonymous requests pass through without credentials", func(t *testing.T) {
		var gotAuth string
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			gotAuth = r.Header.Get("Authorization")
			w.WriteHeader(http.StatusOK)
		}))
		defer server.Close()

		client := &http.Client{Transport: &Transport{Token: func() string { return "" }}}
		resp, err := client.Get(server.URL)
		require.NoError(t, err)
		resp.Body.Close()

		assert.Empty(t, gotAuth)
	})

	t.Run("stamps a request id", func(t *testing.T) {
		var gotID string
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			gotID = r.Header.Get("X-Request-Id")
			w.WriteHeader(http.StatusOK)
		}))
		defer server.Close()

		client := &http.Client{Transport: &Transport{}}
		resp, err := client.Get(server.URL)
		require.NoError(t, err)
		resp.Body.Close()

		assert.NotEmpty(t, gotID)
	})

	t.Run("does not mutate the original request", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
		}))
		defer server.Close()

		req, err := http.NewRequest(http.MethodGet, server.URL, nil)
		require.NoError(t, err)

		client := &http.Client{Transport: &Transport{Token: func() string { return "T1" }}}
		resp, err := client.Do(req)
		require.NoError(t, err)
		resp.Body.Close()

		assert.Empty(t, req.Header.Get("Authorization"))
	})
}

func TestTransport_Incoming(t *testing.T) {
	t.Run("401 with expired flag reports an expired rejection", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"message":"token expired","expired":true}`))
		}))
		defer server.Close()

		var rejections []bool
		client := &http.Client{Transport: &Transport{
			Token:          func() string { return "T1" },
			OnUnauthorized: func(expired bool) { rejections = append(rejections, expired) },
		}}

		resp, err := client.Get(server.URL)
		require.NoError(t, err)
		defer resp.Body.Close()

		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
		assert.Equal(t, []bool{true}, rejections)
	})

	t.Run("generic 401 reports a non-expired rejection", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"message":"unauthenticated"}`))
		}))
		defer server.Close()

		var rejections []bool
		client := &http.Client{Transport: &Transport{
			OnUnauthorized: func(expired bool) { rejections = append(rejections, expired) },
		}}

		resp, err := client.Get(server.URL)
		require.NoError(t, err)
		resp.Body.Close()

		assert.Equal(t, []bool{false}, rejections)
	})

	t.Run("401 body remains readable after inspection", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"message":"token expired","expired":true}`))
		}))
		defer server.Close()

		client := &http.Client{Transport: &Transport{OnUnauthorized: func(bool) {}}}
		resp, err := client.Get(server.URL)
		require.NoError(t, err)
		defer resp.Body.Close()

		apiErr := errorFromResponse(resp.StatusCode, mustRead(t, resp))
		assert.Equal(t, "token expired", apiErr.Message)
		assert.True(t, apiErr.Expired)
	})

	t.Run("other errors pass through without callback", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		}))
		defer server.Close()

		called := false
		client := &http.Client{Transport: &Transport{
			OnUnauthorized: func(bool) { called = true },
		}}

		resp, err := client.Get(server.URL)
		require.NoError(t, err)
		resp.Body.Close()

		assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
		assert.False(t, called)
	})
}
