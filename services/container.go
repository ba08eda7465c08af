package services

import (
	"crypto/rsa"
	"time"

	"gorm.io/gorm"

	"scholar/logger"
)

type Options struct {
	JWTKey          string
	AccessTokenTTL  time.Duration
	RefreshTokenTTL time.Duration
	SaltRound       int
	IdentityKey     *rsa.PublicKey
	UsernameMaxLen  int
	Locker          Locker
	Notifier        CertificateNotifier
}

// Container wires every service over one database handle.
type Container struct {
	Accounts      *Accounts
	Tokens        *Tokens
	Identity      *Identity
	Authenticator *Authenticator
	Ledger        *Ledger
	Reconciler    *Reconciler
	Tracker       *Tracker
	Catalog       *Catalog
	Dashboard     *Dashboard
	Certificates  *Certificates

	UsernameMaxLen int
}

func New(db *gorm.DB, opts Options, log *logger.Logger) *Container {
	accounts := NewAccounts(db, opts.SaltRound, log)
	tokens := NewTokens(db, opts.JWTKey, opts.AccessTokenTTL, opts.RefreshTokenTTL)
	identity := NewIdentity(db, opts.IdentityKey, opts.UsernameMaxLen, log)
	ledger := NewLedger(db, log)
	reconciler := NewReconciler(ledger, opts.Locker, log)
	catalog := NewCatalog(db, reconciler, log)

	return &Container{
		Accounts:       accounts,
		Tokens:         tokens,
		Identity:       identity,
		Authenticator:  NewAuthenticator(accounts, tokens, identity),
		Ledger:         ledger,
		Reconciler:     reconciler,
		Tracker:        NewTracker(db, ledger, reconciler, log),
		Catalog:        catalog,
		Dashboard:      NewDashboard(db, catalog),
		Certificates:   NewCertificates(db, ledger, opts.Notifier, log),
		UsernameMaxLen: identity.usernameMaxLen,
	}
}
