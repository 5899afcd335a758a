package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestShouldUseHTTPS(t *testing.T) {
	t.Parallel()

	tests := []struct {
		url  string
		want bool
	}{
		{"", true},
		{"https://localhost:3000", true},
		{"http://127.0.0.1:3000", true},
		{"https://pay.example.com", false},
	}
	for _, tt := range tests {
		require.Equal(t, tt.want, shouldUseHTTPS(tt.url), tt.url)
	}
}

func TestConfigShow_MasksSecrets(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.json"), []byte(`{
		"tokenizationKey": "sandbox_abc",
		"hostToken": "super-secret-token",
		"merchant": {"mode": "stripe", "stripeSecretKey": "sk_test_1234567890"}
	}`), 0600))

	var out bytes.Buffer
	cmd := rootCmd()
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"config", "show", "--data-dir", dir, "--log-level", "error"})
	require.NoError(t, cmd.Execute())

	var got map[string]any
	require.NoError(t, json.Unmarshal(out.Bytes(), &got))
	require.Equal(t, "sandbox_abc", got["tokenizationKey"])
	require.Equal(t, "supe**********oken", got["hostToken"])
	merchant := got["merchant"].(map[string]any)
	require.Equal(t, "sk_t**********7890", merchant["stripeSecretKey"])
	require.Equal(t, "3000", got["port"])
}

func TestGenerateSelfSignedCert(t *testing.T) {
	t.Parallel()

	cert, err := generateSelfSignedCert()
	require.NoError(t, err)
	require.Len(t, cert.Certificate, 1)
	require.NotNil(t, cert.PrivateKey)
}
