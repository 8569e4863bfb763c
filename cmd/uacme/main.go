// The uacme command line tool obtains, renews and revokes X.509 certificates
// from an ACMEv2 certificate authority.
package main

import (
	"crypto"
	"fmt"
	"os"

	log "github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"

	"github.com/uacme/uacme/acme"
	acmeclient "github.com/uacme/uacme/acme/client"
	"github.com/uacme/uacme/acme/keys"
	acmecmd "github.com/uacme/uacme/cmd"
	"github.com/uacme/uacme/hook"
	"github.com/uacme/uacme/storage"
)

const (
	version = "0.1.0"

	PRODUCTION_DIRECTORY = "https://acme-v02.api.letsencrypt.org/directory"
	STAGING_DIRECTORY    = "https://acme-staging-v02.api.letsencrypt.org/directory"
	CONFDIR_DEFAULT      = "/etc/ssl/uacme"
	DAYS_DEFAULT         = 30
)

func main() {
	// The default version and help shorthands collide with the -v verbosity
	// and -h hook flags.
	cli.VersionFlag = &cli.BoolFlag{
		Name:  "V",
		Usage: "print the version",
	}
	cli.HelpFlag = &cli.BoolFlag{
		Name:  "help",
		Usage: "show help",
	}

	app := &cli.App{
		Name:    "uacme",
		Usage:   "ACMEv2 client",
		Version: version,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "a",
				Usage: "ACME server directory `URL` (overrides -s)",
			},
			&cli.StringFlag{
				Name:  "c",
				Usage: "configuration `DIR`",
				Value: CONFDIR_DEFAULT,
			},
			&cli.IntFlag{
				Name:  "d",
				Usage: "minimum remaining validity in `DAYS` before reissue",
				Value: DAYS_DEFAULT,
			},
			&cli.BoolFlag{
				Name:  "f",
				Usage: "force reissue even if the certificate is still fresh",
			},
			&cli.StringFlag{
				Name:  "h",
				Usage: "challenge hook `PROGRAM` (must be readable and executable)",
			},
			&cli.BoolFlag{
				Name:  "n",
				Usage: "never create directories or keys",
			},
			&cli.IntFlag{
				Name:  "r",
				Usage: "revocation `REASON` code",
			},
			&cli.BoolFlag{
				Name:  "s",
				Usage: "use the Let's Encrypt staging directory",
			},
			&cli.BoolFlag{
				Name:  "v",
				Usage: "increase verbosity (repeatable)",
			},
			&cli.BoolFlag{
				Name:  "y",
				Usage: "automatically accept the terms of service",
			},
		},
		Before: func(ctx *cli.Context) error {
			log.SetLevel(acmecmd.Verbosity(ctx.Count("v")))
			return nil
		},
		Commands: []*cli.Command{
			{
				Name:      "new",
				Usage:     "create a new account",
				ArgsUsage: "[EMAIL]",
				Action:    newAction,
			},
			{
				Name:      "update",
				Usage:     "update the account contact email",
				ArgsUsage: "[EMAIL]",
				Action:    updateAction,
			},
			{
				Name:   "deactivate",
				Usage:  "permanently deactivate the account",
				Action: deactivateAction,
			},
			{
				Name:      "issue",
				Usage:     "obtain a certificate for a domain",
				ArgsUsage: "DOMAIN [ALTNAME...]",
				Action:    issueAction,
			},
			{
				Name:      "revoke",
				Usage:     "revoke a certificate",
				ArgsUsage: "CERTFILE",
				Action:    revokeAction,
			},
		},
	}

	acmecmd.FailOnError(app.Run(os.Args), "uacme")
}

// directoryURL resolves the ACME directory to talk to from the -a and -s
// flags.
func directoryURL(ctx *cli.Context) string {
	if url := ctx.String("a"); url != "" {
		return url
	}
	if ctx.Bool("s") {
		return STAGING_DIRECTORY
	}
	return PRODUCTION_DIRECTORY
}

// openStore opens the configuration directory. The create policy applies to
// subcommands that may provision keys (new, issue) unless -n forbids it.
func openStore(ctx *cli.Context, create bool) (*storage.Store, error) {
	if ctx.Bool("n") {
		create = false
	}
	return storage.New(ctx.String("c"), create)
}

// newClient builds a bootstrapped session around the store's account key.
func newClient(ctx *cli.Context, store *storage.Store, domainKey crypto.Signer) (*acmeclient.Client, error) {
	accountKey, err := store.AccountKey()
	if err != nil {
		return nil, err
	}

	client, err := acmeclient.New(acmeclient.Config{
		DirectoryURL: directoryURL(ctx),
		AccountKey:   accountKey,
		DomainKey:    domainKey,
		AcceptTOS:    ctx.Bool("y"),
	})
	if err != nil {
		return nil, err
	}

	if err := client.Bootstrap(); err != nil {
		client.Close()
		return nil, err
	}
	return client, nil
}

func newAction(ctx *cli.Context) error {
	if ctx.Args().Len() > 1 {
		return &acme.InputError{Msg: "new takes at most one EMAIL argument"}
	}

	store, err := openStore(ctx, true)
	if err != nil {
		return err
	}
	client, err := newClient(ctx, store, nil)
	if err != nil {
		return err
	}
	defer client.Close()

	if err := client.RegisterAccount(ctx.Args().First()); err != nil {
		return err
	}
	fmt.Printf("account created: %s\n", client.KID)
	return nil
}

func updateAction(ctx *cli.Context) error {
	if ctx.Args().Len() > 1 {
		return &acme.InputError{Msg: "update takes at most one EMAIL argument"}
	}

	store, err := openStore(ctx, false)
	if err != nil {
		return err
	}
	client, err := newClient(ctx, store, nil)
	if err != nil {
		return err
	}
	defer client.Close()

	if err := client.RetrieveAccount(); err != nil {
		return err
	}
	return client.UpdateContact(ctx.Args().First())
}

func deactivateAction(ctx *cli.Context) error {
	store, err := openStore(ctx, false)
	if err != nil {
		return err
	}
	client, err := newClient(ctx, store, nil)
	if err != nil {
		return err
	}
	defer client.Close()

	if err := client.RetrieveAccount(); err != nil {
		return err
	}
	return client.DeactivateAccount()
}

func issueAction(ctx *cli.Context) error {
	names := ctx.Args().Slice()
	if len(names) == 0 {
		return &acme.InputError{Msg: "issue requires a DOMAIN argument"}
	}
	for _, name := range names {
		if !acme.ValidDomain(name) {
			return &acme.InputError{Msg: fmt.Sprintf("invalid domain %q", name)}
		}
	}
	domain := names[0]

	hookPath := ctx.String("h")
	if hookPath != "" {
		if err := hook.Usable(hookPath); err != nil {
			return &acme.InputError{Msg: fmt.Sprintf("hook: %s", err)}
		}
	}

	store, err := openStore(ctx, true)
	if err != nil {
		return err
	}

	if !ctx.Bool("f") {
		due, notAfter, err := store.CertificateDueForRenewal(domain, ctx.Int("d"))
		if err != nil {
			return err
		}
		if !due {
			fmt.Printf("certificate for %s is valid until %s, not reissuing\n",
				domain, notAfter.Format("2006-01-02"))
			return nil
		}
	}

	domainKey, err := store.DomainKey(domain)
	if err != nil {
		return err
	}
	client, err := newClient(ctx, store, domainKey)
	if err != nil {
		return err
	}
	defer client.Close()

	if err := client.RetrieveAccount(); err != nil {
		return err
	}
	pemChain, err := client.IssueCertificate(names, hookPath)
	if err != nil {
		return err
	}

	path, err := store.WriteCertificate(domain, pemChain)
	if err != nil {
		return err
	}
	fmt.Printf("certificate saved: %s\n", path)
	return nil
}

func revokeAction(ctx *cli.Context) error {
	if ctx.Args().Len() != 1 {
		return &acme.InputError{Msg: "revoke requires a CERTFILE argument"}
	}
	certFile := ctx.Args().First()

	pemChain, err := os.ReadFile(certFile)
	if err != nil {
		return &acme.FilesystemError{Path: certFile, Err: err}
	}
	der, err := keys.CertificateDERFromPEM(pemChain)
	if err != nil {
		return &acme.FilesystemError{Path: certFile, Err: err}
	}

	store, err := openStore(ctx, false)
	if err != nil {
		return err
	}
	client, err := newClient(ctx, store, nil)
	if err != nil {
		return err
	}
	defer client.Close()

	if err := client.RetrieveAccount(); err != nil {
		return err
	}
	return client.RevokeCertificate(der, ctx.Int("r"))
}
