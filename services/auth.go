package services

import (
	"context"

	"scholar/apperr"
	"scholar/models"
)

// Authenticator resolves a bearer header to an active account. HS256 tokens
// are checked against the local secret; anything else goes to the external
// identity provider.
type Authenticator struct {
	accounts *Accounts
	tokens   *Tokens
	identity *Identity
}

func NewAuthenticator(accounts *Accounts, tokens *Tokens, identity *Identity) *Authenticator {
	return &Authenticator{accounts: accounts, tokens: tokens, identity: identity}
}

func (a *Authenticator) Authenticate(ctx context.Context, header string) (*models.User, error) {
	token, err := BearerToken(header)
	if err != nil {
		return nil, err
	}

	if IsLocalToken(token) {
		claims, err := a.tokens.VerifyAccess(token)
		if err != nil {
			return nil, err
		}
		return a.accounts.Active(ctx, claims.UserID)
	}

	claims, err := a.identity.Verify(token)
	if err != nil {
		return nil, err
	}
	user, created, err := a.identity.ResolveAccount(ctx, claims)
	if err != nil {
		return nil, err
	}
	if !user.IsActive {
		return nil, apperr.ErrUnauthenticated
	}
	if created {
		a.accounts.RecordLogin(ctx, user.ID, LoginMethodIdentity, "", "")
	}
	return user, nil
}

// Session loads the account stored in a server-side session.
func (a *Authenticator) Session(ctx context.Context, userID uint) (*models.User, error) {
	return a.accounts.Active(ctx, userID)
}
