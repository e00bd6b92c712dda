package push

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"os"

	"github.com/sapliy/pushbridge/pkg/secrets"
)

// CredentialSource names the places service-account JSON may come from, in
// the order they are tried: a Secrets Manager secret (container platforms), a
// base64 env value (PaaS deploys that cannot mount files), a local file.
type CredentialSource struct {
	SecretID string
	Base64   string
	Path     string
}

// LoadCredentials resolves the Firebase service-account JSON from the first
// configured source.
func LoadCredentials(ctx context.Context, src CredentialSource) ([]byte, error) {
	if src.SecretID != "" {
		value, err := secrets.FetchString(ctx, src.SecretID)
		if err != nil {
			return nil, fmt.Errorf("fetch firebase credentials secret: %w", err)
		}
		return []byte(value), nil
	}

	if src.Base64 != "" {
		decoded, err := base64.StdEncoding.DecodeString(src.Base64)
		if err != nil {
			return nil, fmt.Errorf("decode base64 firebase credentials: %w", err)
		}
		return decoded, nil
	}

	if src.Path != "" {
		data, err := os.ReadFile(src.Path)
		if err != nil {
			return nil, fmt.Errorf("read firebase credentials file: %w", err)
		}
		return data, nil
	}

	return nil, errors.New("no firebase credential source configured")
}
