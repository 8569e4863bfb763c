// Package storage manages the configuration directory: the account keypair,
// per-domain keypairs and issued certificate chains.
//
// Layout under the configuration directory:
//
//	<confdir>/                   0755
//	<confdir>/private/           0700
//	<confdir>/private/key.pem    0600  account key
//	<confdir>/private/<domain>/key.pem  0600  domain key
//	<confdir>/<domain>/cert.pem  0644  issued chain
//
// A wildcard domain uses its base name (the "*." prefix stripped) for
// directory layout.
package storage

import (
	"crypto"
	"fmt"
	"os"
	"path/filepath"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/uacme/uacme/acme"
	"github.com/uacme/uacme/acme/keys"
)

const (
	privateDirName = "private"
	keyFileName    = "key.pem"
	certFileName   = "cert.pem"
)

// Store gives access to the key and certificate material under one
// configuration directory.
type Store struct {
	// ConfDir is the configuration directory root.
	ConfDir string
	// Create controls whether missing directories and keys are created.
	// When false, anything missing is an error.
	Create bool
}

// New validates (and under the create policy, builds) the configuration
// directory skeleton.
func New(confDir string, create bool) (*Store, error) {
	s := &Store{ConfDir: confDir, Create: create}

	privateDir := filepath.Join(confDir, privateDirName)
	if create {
		if err := os.MkdirAll(confDir, 0755); err != nil {
			return nil, &acme.FilesystemError{Path: confDir, Err: err}
		}
		if err := os.MkdirAll(privateDir, 0700); err != nil {
			return nil, &acme.FilesystemError{Path: privateDir, Err: err}
		}
	} else {
		for _, dir := range []string{confDir, privateDir} {
			info, err := os.Stat(dir)
			if err != nil {
				return nil, &acme.FilesystemError{Path: dir, Err: err}
			}
			if !info.IsDir() {
				return nil, &acme.FilesystemError{
					Path: dir, Err: fmt.Errorf("not a directory")}
			}
		}
	}
	return s, nil
}

// AccountKeyPath returns the account key location.
func (s *Store) AccountKeyPath() string {
	return filepath.Join(s.ConfDir, privateDirName, keyFileName)
}

// DomainKeyPath returns the key location for a domain.
func (s *Store) DomainKeyPath(domain string) string {
	return filepath.Join(s.ConfDir, privateDirName, acme.BaseDomain(domain), keyFileName)
}

// CertificatePath returns the certificate chain location for a domain.
func (s *Store) CertificatePath(domain string) string {
	return filepath.Join(s.ConfDir, acme.BaseDomain(domain), certFileName)
}

// AccountKey loads the account keypair, generating and saving a fresh one
// under the create policy when none exists.
func (s *Store) AccountKey() (crypto.Signer, error) {
	return s.loadOrCreateKey(s.AccountKeyPath(), "")
}

// DomainKey loads the keypair for a domain's CSR, generating and saving
// a fresh one under the create policy when none exists.
func (s *Store) DomainKey(domain string) (crypto.Signer, error) {
	path := s.DomainKeyPath(domain)
	return s.loadOrCreateKey(path, filepath.Dir(path))
}

func (s *Store) loadOrCreateKey(path string, keyDir string) (crypto.Signer, error) {
	signer, err := keys.LoadSigner(path)
	if err == nil {
		return signer, nil
	}
	if !os.IsNotExist(err) {
		return nil, &acme.FilesystemError{Path: path, Err: err}
	}
	if !s.Create {
		return nil, &acme.FilesystemError{Path: path, Err: err}
	}

	if keyDir != "" {
		if err := os.MkdirAll(keyDir, 0700); err != nil {
			return nil, &acme.FilesystemError{Path: keyDir, Err: err}
		}
	}

	signer, err = keys.NewSigner("ecdsa")
	if err != nil {
		return nil, err
	}
	if err := keys.SaveSigner(path, signer, 0600); err != nil {
		return nil, &acme.FilesystemError{Path: path, Err: err}
	}
	log.Infof("generated new key %q", path)
	return signer, nil
}

// WriteCertificate persists the PEM chain for a domain and returns the path
// written.
func (s *Store) WriteCertificate(domain string, pemChain []byte) (string, error) {
	path := s.CertificatePath(domain)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return "", &acme.FilesystemError{Path: filepath.Dir(path), Err: err}
	}
	if err := os.WriteFile(path, pemChain, 0644); err != nil {
		return "", &acme.FilesystemError{Path: path, Err: err}
	}
	return path, nil
}

// CertificateDueForRenewal reports whether the domain's certificate is
// missing or expires within the given number of days. The zero time is
// returned when no certificate exists.
func (s *Store) CertificateDueForRenewal(domain string, days int) (bool, time.Time, error) {
	path := s.CertificatePath(domain)
	pemChain, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return true, time.Time{}, nil
	}
	if err != nil {
		return false, time.Time{}, &acme.FilesystemError{Path: path, Err: err}
	}

	cert, err := keys.ParseCertificatePEM(pemChain)
	if err != nil {
		return false, time.Time{}, &acme.FilesystemError{Path: path, Err: err}
	}

	remaining := time.Until(cert.NotAfter)
	due := remaining <= time.Duration(days)*24*time.Hour
	return due, cert.NotAfter, nil
}
