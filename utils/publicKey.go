package utils

import (
	"context"
	"crypto/rsa"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"

	"scholar/services"
)

// FetchIdentityKey downloads the identity provider's PEM public key.
func FetchIdentityKey(ctx context.Context, url string) (*rsa.PublicKey, error) {
	client := resty.New().
		SetTimeout(10 * time.Second).
		SetRetryCount(2).
		SetRetryWaitTime(500 * time.Millisecond)

	resp, err := client.R().SetContext(ctx).Get(url)
	if err != nil {
		return nil, fmt.Errorf("fetch identity key: %w", err)
	}
	if resp.StatusCode() != 200 {
		return nil, fmt.Errorf("fetch identity key: unexpected status %d", resp.StatusCode())
	}
	return services.ParsePublicKey(resp.String())
}

// LoadIdentityKey prefers the inline PEM and falls back to the URL. Both empty
// yields a nil key, which rejects every external token.
func LoadIdentityKey(ctx context.Context, pemText, url string) (*rsa.PublicKey, error) {
	if pemText != "" {
		return services.ParsePublicKey(pemText)
	}
	if url != "" {
		return FetchIdentityKey(ctx, url)
	}
	return nil, nil
}
