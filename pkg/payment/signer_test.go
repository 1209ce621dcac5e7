package payment

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewSignerRequiresCredentials(t *testing.T) {
	_, err := NewSigner("", "secret")
	assert.ErrorIs(t, err, ErrMissingAPIKey)

	_, err = NewSigner("key", "")
	assert.ErrorIs(t, err, ErrMissingSecretKey)
}

func TestSignIsDeterministic(t *testing.T) {
	s, err := NewSigner("test-key", "test-secret")
	require.NoError(t, err)

	mac := hmac.New(sha256.New, []byte("test-secret"))
	mac.Write([]byte("1700000000000" + "abcdef" + "test-key"))
	want := hex.EncodeToString(mac.Sum(nil))

	assert.Equal(t, want, s.Sign(1700000000000, "abcdef"))
	assert.Equal(t, s.Sign(1700000000000, "abcdef"), s.Sign(1700000000000, "abcdef"))
	assert.NotEqual(t, want, s.Sign(1700000000001, "abcdef"))
}

func TestEnvelopeUsesClockAndRandomSource(t *testing.T) {
	s, err := NewSigner("test-key", "test-secret")
	require.NoError(t, err)
	s.now = func() time.Time { return time.UnixMilli(1700000000123) }
	s.random = bytes.NewReader(bytes.Repeat([]byte{0xab}, nonceBytes))

	env, err := s.Envelope()
	require.NoError(t, err)

	assert.Equal(t, "test-key", env.APIKey)
	assert.Equal(t, int64(1700000000123), env.Timestamp)
	assert.Equal(t, "abababababababababababababababab", env.Nonce)
	assert.Equal(t, s.Sign(env.Timestamp, env.Nonce), env.Signature)
}

func TestEnvelopeFreshNoncePerCall(t *testing.T) {
	s, err := NewSigner("test-key", "test-secret")
	require.NoError(t, err)

	a, err := s.Envelope()
	require.NoError(t, err)
	b, err := s.Envelope()
	require.NoError(t, err)

	assert.Len(t, a.Nonce, 32)
	assert.NotEqual(t, a.Nonce, b.Nonce)
}

func TestEnvelopeFailsWhenRandomSourceIsExhausted(t *testing.T) {
	s, err := NewSigner("test-key", "test-secret")
	require.NoError(t, err)
	s.random = bytes.NewReader(nil)

	_, err = s.Envelope()
	assert.Error(t, err)
}

func TestTransportSignsOutboundRequests(t *testing.T) {
	var got http.Header
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Clone()
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	s, err := NewSigner("test-key", "test-secret")
	require.NoError(t, err)
	client := &http.Client{Transport: &Transport{Signer: s}}

	req, err := http.NewRequest(http.MethodPost, srv.URL, nil)
	require.NoError(t, err)
	resp, err := client.Do(req)
	require.NoError(t, err)
	resp.Body.Close()

	assert.Equal(t, "test-key", got.Get(HeaderAPIKey))
	assert.Len(t, got.Get(HeaderNonce), 32)
	ts := got.Get(HeaderTimestamp)
	require.NotEmpty(t, ts)

	mac := hmac.New(sha256.New, []byte("test-secret"))
	mac.Write([]byte(ts + got.Get(HeaderNonce) + "test-key"))
	assert.Equal(t, hex.EncodeToString(mac.Sum(nil)), got.Get(HeaderSignature))

	assert.Empty(t, req.Header.Get(HeaderSignature), "caller's request must not be mutated")
}
