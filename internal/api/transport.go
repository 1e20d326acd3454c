package api

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// TokenSource yields the current bearer token, or an empty string while
// anonymous. Anonymous requests pass through unmodified so public endpoints
// share the same transport.
type TokenSource func() string

// RejectionHandler is invoked whenever the backend returns 401. The expired
// flag distinguishes a structurally expired token from bad or missing
// credentials.
type RejectionHandler func(expired bool)

// Transport wraps every outgoing request to attach the bearer credential and
// every incoming response to detect authentication failure.
type Transport struct {
	// Base is the underlying round tripper; http.DefaultTransport when nil.
	Base http.RoundTripper

	Token TokenSource

	// OnUnauthorized is called for every 401 response. It is wired up by the
	// session layer after construction to break the client/session cycle.
	OnUnauthorized RejectionHandler
}

// RoundTrip implements http.RoundTripper.
func (t *Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	// Clone before mutating, per the RoundTripper contract.
	r := req.Clone(req.Context())
	r.Header.Set("Accept", "application/json")
	r.Header.Set("X-Request-Id", uuid.NewString())

	if t.Token != nil {
		if token := t.Token(); token != "" {
			r.Header.Set("Authorization", "Bearer "+token)
		}
	}

	base := t.Base
	if base == nil {
		base = http.DefaultTransport
	}

	resp, err := base.RoundTrip(r)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode == http.StatusUnauthorized && t.OnUnauthorized != nil {
		body, readErr := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
		resp.Body.Close()
		if readErr != nil {
			body = nil
		}
		resp.Body = io.NopCloser(bytes.NewReader(body))

		var payload struct {
			Expired bool `json:"expired"`
		}
		_ = json.Unmarshal(body, &payload)

		log.Debug().
			Str("path", r.URL.Path).
			Bool("expired", payload.Expired).
			Msg("request rejected by server")

		t.OnUnauthorized(payload.Expired)
	}

	return resp, nil
}
