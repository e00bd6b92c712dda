package push

import (
	"context"
	"encoding/base64"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLoadCredentials(t *testing.T) {
	dir := t.TempDir()
	credsPath := filepath.Join(dir, "firebase_credentials.json")
	if err := os.WriteFile(credsPath, []byte(`{"project_id":"from-file"}`), 0o600); err != nil {
		t.Fatalf("Failed to write credentials file: %v", err)
	}
	encoded := base64.StdEncoding.EncodeToString([]byte(`{"project_id":"from-env"}`))

	tests := []struct {
		name    string
		src     CredentialSource
		want    string
		wantErr string
	}{
		{
			name: "Base64 source decodes",
			src:  CredentialSource{Base64: encoded},
			want: `{"project_id":"from-env"}`,
		},
		{
			name: "Base64 takes precedence over path",
			src:  CredentialSource{Base64: encoded, Path: credsPath},
			want: `{"project_id":"from-env"}`,
		},
		{
			name: "Path source reads file",
			src:  CredentialSource{Path: credsPath},
			want: `{"project_id":"from-file"}`,
		},
		{
			name:    "Invalid base64 fails",
			src:     CredentialSource{Base64: "not-base64!!!"},
			wantErr: "decode base64 firebase credentials",
		},
		{
			name:    "Missing file fails",
			src:     CredentialSource{Path: filepath.Join(dir, "missing.json")},
			wantErr: "read firebase credentials file",
		},
		{
			name:    "No source configured fails",
			src:     CredentialSource{},
			wantErr: "no firebase credential source configured",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, err := LoadCredentials(context.Background(), tt.src)
			if tt.wantErr != "" {
				if err == nil {
					t.Fatalf("Expected error containing %q, got nil", tt.wantErr)
				}
				if !strings.Contains(err.Error(), tt.wantErr) {
					t.Errorf("Error = %q, want it to contain %q", err.Error(), tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("Unexpected error: %v", err)
			}
			if string(data) != tt.want {
				t.Errorf("Credentials = %q, want %q", data, tt.want)
			}
		})
	}
}
