package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSetupEmitsStructuredJSON(t *testing.T) {
	var buf bytes.Buffer
	logger := setup(&buf, "inviteregistryd", "test")
	logger.Info("transaction applied", slog.String("method", "invite.registerInviteCode"))

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	require.Equal(t, "INFO", line["severity"])
	require.Equal(t, "transaction applied", line["message"])
	require.Equal(t, "inviteregistryd", line["service"])
	require.Equal(t, "test", line["env"])
	require.Contains(t, line, "timestamp")
}

func TestMaskField(t *testing.T) {
	require.Equal(t, RedactedValue, MaskField("signature", "0xdeadbeefdeadbeefdeadbeef").Value.String())
	require.Equal(t, RedactedValue, MaskField("code", "WELCOME").Value.String())
	require.Equal(t, "0x1234...cdef", MaskField("from", "0x1234567890abcdef1234567890abcdef").Value.String())
	require.Equal(t, "", MaskField("passphrase", "").Value.String())
}

func TestSetupRedactsSecretKeys(t *testing.T) {
	var buf bytes.Buffer
	logger := setup(&buf, "inviteregistryd", "test")
	logger.Info("keystore unlocked",
		slog.String("Private_Key", "0xabc"),
		slog.Group("auth", slog.String("token", "eyJhbGciOi")),
		slog.String("authorizationContract", "0x00ff"))

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	require.Equal(t, RedactedValue, line["Private_Key"])
	require.Equal(t, RedactedValue, line["auth"].(map[string]any)["token"])
	require.Equal(t, "0x00ff", line["authorizationContract"])
}

func TestIsSecretKey(t *testing.T) {
	for _, key := range []string{"passphrase", " Signature", "private_key", "Private-Key"} {
		require.True(t, IsSecretKey(key), key)
	}
	for _, key := range []string{"txHash", "authorizedSigner", "jwt_secret_env"} {
		require.False(t, IsSecretKey(key), key)
	}
}
