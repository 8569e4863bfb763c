package client

import (
	"encoding/json"
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/uacme/uacme/acme"
	"github.com/uacme/uacme/acme/keys"
)

func TestBootstrap(t *testing.T) {
	ca := newFakeCA(t)
	c := testClient(t, ca)

	require.NotNil(t, c.Directory)
	assert.Equal(t, ca.url("/new-acct"), c.Directory.NewAccount)
	assert.Equal(t, ca.url("/new-order"), c.Directory.NewOrder)
	assert.True(t, c.HasNonce())
}

func TestSignAndSendNeedsNonce(t *testing.T) {
	accountKey, err := keys.NewSigner("ecdsa")
	require.NoError(t, err)
	c, err := New(Config{
		DirectoryURL: "https://ca.invalid/dir",
		AccountKey:   accountKey,
	})
	require.NoError(t, err)
	defer c.Close()

	_, err = c.SignAndSend("https://ca.invalid/resource", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "need a nonce first")
}

// isProbe reports whether a decoded newAccount payload is the
// onlyReturnExisting probe.
func isProbe(t *testing.T, payload []byte) bool {
	t.Helper()
	var fields map[string]interface{}
	require.NoError(t, json.Unmarshal(payload, &fields))
	probe, _ := fields["onlyReturnExisting"].(bool)
	return probe
}

func TestRegisterAccountNew(t *testing.T) {
	// Scenario: no termsOfService in the directory meta, no email. The probe
	// answers accountDoesNotExist, creation succeeds.
	ca := newFakeCA(t)
	acctURL := ca.url("/acct/1")

	ca.handle("/new-acct", func(w http.ResponseWriter, r *http.Request) {
		payload := ca.readJWS(r)
		if isProbe(t, payload) {
			ca.respondProblem(w, http.StatusBadRequest,
				acme.ERROR_ACCOUNT_DOES_NOT_EXIST, "no account for key")
			return
		}

		var fields map[string]interface{}
		require.NoError(t, json.Unmarshal(payload, &fields))
		assert.Equal(t, true, fields["termsOfServiceAgreed"])
		_, hasContact := fields["contact"]
		assert.False(t, hasContact, "no email was given, contact must be absent")

		ca.setNonce(w)
		w.Header().Set("Content-Type", "application/json")
		w.Header().Set(acme.LOCATION_HEADER, acctURL)
		w.WriteHeader(http.StatusCreated)
		require.NoError(t, json.NewEncoder(w).Encode(map[string]interface{}{
			"status": "valid",
		}))
	})

	c := testClient(t, ca)
	require.NoError(t, c.RegisterAccount(""))

	assert.Equal(t, acctURL, c.KID)
	assert.Equal(t, acctURL, c.Account.ID)
	assert.Equal(t, "valid", c.Account.Status)

	// Both newAccount requests predate the kid: jwk form only.
	require.Len(t, ca.records, 2)
	for _, record := range ca.records {
		assert.True(t, record.HasJWK)
		assert.Empty(t, record.KeyID)
		assert.Equal(t, ca.url("/new-acct"), record.URL)
	}
}

func TestRegisterAccountContact(t *testing.T) {
	ca := newFakeCA(t)

	ca.handle("/new-acct", func(w http.ResponseWriter, r *http.Request) {
		payload := ca.readJWS(r)
		if isProbe(t, payload) {
			ca.respondProblem(w, http.StatusBadRequest,
				acme.ERROR_ACCOUNT_DOES_NOT_EXIST, "no account for key")
			return
		}

		var fields struct {
			Contact []string `json:"contact"`
		}
		require.NoError(t, json.Unmarshal(payload, &fields))
		assert.Equal(t, []string{"mailto:admin@example.com"}, fields.Contact)

		ca.setNonce(w)
		w.Header().Set("Content-Type", "application/json")
		w.Header().Set(acme.LOCATION_HEADER, ca.url("/acct/1"))
		w.WriteHeader(http.StatusCreated)
		require.NoError(t, json.NewEncoder(w).Encode(map[string]interface{}{
			"status":  "valid",
			"contact": []string{"mailto:admin@example.com"},
		}))
	})

	c := testClient(t, ca)
	require.NoError(t, c.RegisterAccount("admin@example.com"))
	assert.Equal(t, []string{"mailto:admin@example.com"}, c.Account.Contact)
}

func TestRegisterAccountAlreadyExists(t *testing.T) {
	ca := newFakeCA(t)
	acctURL := ca.url("/acct/7")

	ca.handle("/new-acct", func(w http.ResponseWriter, r *http.Request) {
		ca.readJWS(r)
		ca.setNonce(w)
		w.Header().Set("Content-Type", "application/json")
		w.Header().Set(acme.LOCATION_HEADER, acctURL)
		w.WriteHeader(http.StatusOK)
		require.NoError(t, json.NewEncoder(w).Encode(map[string]interface{}{
			"status": "valid",
		}))
	})

	c := testClient(t, ca)
	err := c.RegisterAccount("")
	require.Error(t, err)
	assert.Contains(t, err.Error(), acctURL)
	assert.Equal(t, acctURL, c.KID)
	// Only the probe was sent; no creation request followed.
	assert.Len(t, ca.records, 1)
}

func TestRegisterAccountTermsDeclined(t *testing.T) {
	ca := newFakeCA(t)
	ca.tosURL = "https://ca.example/terms"

	ca.handle("/new-acct", func(w http.ResponseWriter, r *http.Request) {
		ca.readJWS(r)
		ca.respondProblem(w, http.StatusBadRequest,
			acme.ERROR_ACCOUNT_DOES_NOT_EXIST, "no account for key")
	})

	c := testClient(t, ca)
	c.Confirmer = denyConfirmer{}

	err := c.RegisterAccount("")
	require.Error(t, err)
	var inputErr *acme.InputError
	assert.True(t, errors.As(err, &inputErr))
	// Creation never happened: the probe is the only signed request.
	assert.Len(t, ca.records, 1)
}

// registerExistingAccount wires /new-acct to report an existing account.
func registerExistingAccount(t *testing.T, ca *fakeCA, acctURL string, contact []string) {
	t.Helper()
	ca.handle("/new-acct", func(w http.ResponseWriter, r *http.Request) {
		ca.readJWS(r)
		ca.setNonce(w)
		w.Header().Set("Content-Type", "application/json")
		w.Header().Set(acme.LOCATION_HEADER, acctURL)
		w.WriteHeader(http.StatusOK)
		require.NoError(t, json.NewEncoder(w).Encode(map[string]interface{}{
			"status":  "valid",
			"contact": contact,
		}))
	})
}

func TestRetrieveAccountSwitchesToKid(t *testing.T) {
	ca := newFakeCA(t)
	acctURL := ca.url("/acct/1")
	registerExistingAccount(t, ca, acctURL, nil)

	ca.handle("/acct/1", func(w http.ResponseWriter, r *http.Request) {
		ca.readJWS(r)
		ca.respond(w, http.StatusOK, map[string]interface{}{
			"status": "deactivated",
		})
	})

	c := testClient(t, ca)
	require.NoError(t, c.RetrieveAccount())
	assert.Equal(t, acctURL, c.KID)

	require.NoError(t, c.DeactivateAccount())
	assert.Equal(t, acme.STATUS_DEACTIVATED, c.Account.Status)

	// The retrieval predates the kid and embeds the JWK; the deactivation
	// uses the kid. The switch is monotonic within the session.
	require.Len(t, ca.records, 2)
	assert.True(t, ca.records[0].HasJWK)
	assert.Empty(t, ca.records[0].KeyID)
	assert.False(t, ca.records[1].HasJWK)
	assert.Equal(t, acctURL, ca.records[1].KeyID)

	var payload map[string]interface{}
	require.NoError(t, json.Unmarshal(ca.records[1].Payload, &payload))
	assert.Equal(t, "deactivated", payload["status"])
}

func TestRetrieveAccountMissing(t *testing.T) {
	ca := newFakeCA(t)
	ca.handle("/new-acct", func(w http.ResponseWriter, r *http.Request) {
		ca.readJWS(r)
		ca.respondProblem(w, http.StatusBadRequest,
			acme.ERROR_ACCOUNT_DOES_NOT_EXIST, "no account for key")
	})

	c := testClient(t, ca)
	err := c.RetrieveAccount()
	require.Error(t, err)
	assert.Contains(t, err.Error(), `"new"`)
}

func TestUpdateContact(t *testing.T) {
	ca := newFakeCA(t)
	acctURL := ca.url("/acct/1")
	registerExistingAccount(t, ca, acctURL, []string{"mailto:old@example.com"})

	updates := 0
	ca.handle("/acct/1", func(w http.ResponseWriter, r *http.Request) {
		payload := ca.readJWS(r)
		updates++

		var fields struct {
			Contact []string `json:"contact"`
		}
		require.NoError(t, json.Unmarshal(payload, &fields))
		assert.Equal(t, []string{"mailto:new@example.com"}, fields.Contact)

		ca.respond(w, http.StatusOK, map[string]interface{}{
			"status":  "valid",
			"contact": fields.Contact,
		})
	})

	c := testClient(t, ca)
	require.NoError(t, c.RetrieveAccount())
	require.NoError(t, c.UpdateContact("new@example.com"))
	assert.Equal(t, 1, updates)
	assert.Equal(t, []string{"mailto:new@example.com"}, c.Account.Contact)
}

func TestUpdateContactUnchanged(t *testing.T) {
	ca := newFakeCA(t)
	registerExistingAccount(t, ca, ca.url("/acct/1"), []string{"mailto:Admin@Example.com"})

	updates := 0
	ca.handle("/acct/1", func(w http.ResponseWriter, r *http.Request) {
		updates++
		ca.respond(w, http.StatusOK, map[string]interface{}{"status": "valid"})
	})

	c := testClient(t, ca)
	require.NoError(t, c.RetrieveAccount())
	// Addresses are compared case-insensitively: no update request is sent.
	require.NoError(t, c.UpdateContact("admin@example.com"))
	assert.Equal(t, 0, updates)
}

func TestNonceDiscipline(t *testing.T) {
	// Every response carries a fresh Replay-Nonce; every signed request must
	// use the most recently issued one, exactly once.
	ca := newFakeCA(t)
	registerExistingAccount(t, ca, ca.url("/acct/1"), nil)
	ca.handle("/acct/1", func(w http.ResponseWriter, r *http.Request) {
		ca.readJWS(r)
		ca.respond(w, http.StatusOK, map[string]interface{}{"status": "valid"})
	})

	c := testClient(t, ca)
	require.NoError(t, c.RetrieveAccount())
	require.NoError(t, c.UpdateContact("ops@example.com"))
	require.NoError(t, c.DeactivateAccount())

	seen := map[string]bool{}
	for i, record := range ca.records {
		assert.False(t, seen[record.Nonce], "nonce %q used twice", record.Nonce)
		seen[record.Nonce] = true

		// The nonce in request i is the last one the CA issued before it.
		issuedBefore := ca.issuedNonces[:len(ca.issuedNonces)-(len(ca.records)-i)]
		require.NotEmpty(t, issuedBefore)
		assert.Equal(t, issuedBefore[len(issuedBefore)-1], record.Nonce)
	}
	assert.True(t, c.HasNonce())
}
