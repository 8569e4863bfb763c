package client

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	jose "github.com/go-jose/go-jose/v4"
	"github.com/stretchr/testify/require"

	"github.com/uacme/uacme/acme"
	"github.com/uacme/uacme/acme/keys"
)

// jwsRecord captures one signed request as seen by the fake CA: the
// protected header fields the protocol cares about plus the decoded payload.
type jwsRecord struct {
	Path    string
	URL     string
	Nonce   string
	KeyID   string
	HasJWK  bool
	Payload []byte
}

// fakeCA is an in-process ACME server for driving the client end to end. It
// issues a fresh Replay-Nonce on every response and parses every incoming
// JWS. Handlers beyond directory and newNonce are registered per test.
type fakeCA struct {
	t   *testing.T
	mux *http.ServeMux
	srv *httptest.Server

	tosURL string

	nonceCount   int
	issuedNonces []string
	records      []jwsRecord
}

func newFakeCA(t *testing.T) *fakeCA {
	t.Helper()
	ca := &fakeCA{t: t, mux: http.NewServeMux()}
	ca.srv = httptest.NewServer(ca.mux)
	t.Cleanup(ca.srv.Close)

	ca.mux.HandleFunc("/dir", ca.directory)
	ca.mux.HandleFunc("/new-nonce", ca.newNonce)
	return ca
}

func (ca *fakeCA) url(path string) string {
	return ca.srv.URL + path
}

func (ca *fakeCA) handle(path string, handler http.HandlerFunc) {
	ca.mux.HandleFunc(path, handler)
}

func (ca *fakeCA) directory(w http.ResponseWriter, r *http.Request) {
	dir := struct {
		NewNonce   string `json:"newNonce"`
		NewAccount string `json:"newAccount"`
		NewOrder   string `json:"newOrder"`
		RevokeCert string `json:"revokeCert"`
		Meta       struct {
			TermsOfService string `json:"termsOfService,omitempty"`
		} `json:"meta"`
	}{
		NewNonce:   ca.url("/new-nonce"),
		NewAccount: ca.url("/new-acct"),
		NewOrder:   ca.url("/new-order"),
		RevokeCert: ca.url("/revoke-cert"),
	}
	dir.Meta.TermsOfService = ca.tosURL
	ca.respond(w, http.StatusOK, &dir)
}

func (ca *fakeCA) newNonce(w http.ResponseWriter, r *http.Request) {
	ca.setNonce(w)
	w.WriteHeader(http.StatusNoContent)
}

func (ca *fakeCA) setNonce(w http.ResponseWriter) {
	ca.nonceCount++
	nonce := fmt.Sprintf("nonce-%04d", ca.nonceCount)
	ca.issuedNonces = append(ca.issuedNonces, nonce)
	w.Header().Set(acme.REPLAY_NONCE_HEADER, nonce)
}

// readJWS parses and records the signed request body, returning the decoded
// payload.
func (ca *fakeCA) readJWS(r *http.Request) []byte {
	ca.t.Helper()
	body, err := io.ReadAll(r.Body)
	require.NoError(ca.t, err)

	jws, err := jose.ParseSigned(string(body), []jose.SignatureAlgorithm{jose.ES256})
	require.NoError(ca.t, err, "request body must be a valid JWS")

	sig := jws.Signatures[0]
	urlHeader, _ := sig.Header.ExtraHeaders["url"].(string)
	record := jwsRecord{
		Path:    r.URL.Path,
		URL:     urlHeader,
		Nonce:   sig.Header.Nonce,
		KeyID:   sig.Header.KeyID,
		HasJWK:  sig.Header.JSONWebKey != nil,
		Payload: jws.UnsafePayloadWithoutVerification(),
	}
	ca.records = append(ca.records, record)
	return record.Payload
}

func (ca *fakeCA) respond(w http.ResponseWriter, status int, body interface{}) {
	ca.t.Helper()
	ca.setNonce(w)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	require.NoError(ca.t, json.NewEncoder(w).Encode(body))
}

func (ca *fakeCA) respondProblem(w http.ResponseWriter, status int, problemType string, detail string) {
	ca.t.Helper()
	ca.setNonce(w)
	w.Header().Set("Content-Type", acme.PROBLEM_CONTENT_TYPE)
	w.WriteHeader(status)
	problem := struct {
		Type   string `json:"type"`
		Detail string `json:"detail"`
		Status int    `json:"status"`
	}{problemType, detail, status}
	require.NoError(ca.t, json.NewEncoder(w).Encode(&problem))
}

// lastRecord returns the most recent signed request the CA saw.
func (ca *fakeCA) lastRecord() jwsRecord {
	require.NotEmpty(ca.t, ca.records)
	return ca.records[len(ca.records)-1]
}

// denyConfirmer declines every prompt.
type denyConfirmer struct{}

func (denyConfirmer) Confirm(string) bool { return false }

// testClient builds a bootstrapped client against the fake CA with a fast
// poll interval.
func testClient(t *testing.T, ca *fakeCA) *Client {
	t.Helper()
	accountKey, err := keys.NewSigner("ecdsa")
	require.NoError(t, err)

	c, err := New(Config{
		DirectoryURL: ca.url("/dir"),
		AccountKey:   accountKey,
		Confirmer:    AutoConfirmer{},
	})
	require.NoError(t, err)
	t.Cleanup(c.Close)

	c.PollInterval = 5 * time.Millisecond
	require.NoError(t, c.Bootstrap())
	return c
}

// writeHookScript writes an executable shell script hook into a temp dir.
func writeHookScript(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "hook.sh")
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\n"+body+"\n"), 0755))
	return path
}
