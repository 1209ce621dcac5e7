package payment

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"
)

const (
	HeaderAPIKey    = "X-Api-Key"
	HeaderTimestamp = "X-Timestamp"
	HeaderNonce     = "X-Nonce"
	HeaderSignature = "X-Signature"

	nonceBytes = 16
)

var (
	ErrMissingAPIKey    = errors.New("API key is required")
	ErrMissingSecretKey = errors.New("secret key is required")
)

// Envelope is the authentication material attached to one outbound call.
type Envelope struct {
	APIKey    string
	Timestamp int64 // epoch milliseconds
	Nonce     string
	Signature string
}

// Apply sets the signing headers on h.
func (e Envelope) Apply(h http.Header) {
	h.Set(HeaderAPIKey, e.APIKey)
	h.Set(HeaderTimestamp, strconv.FormatInt(e.Timestamp, 10))
	h.Set(HeaderNonce, e.Nonce)
	h.Set(HeaderSignature, e.Signature)
}

// Signer produces per-request HMAC-SHA256 signatures over timestamp, nonce and API key.
type Signer struct {
	apiKey string
	secret []byte
	now    func() time.Time
	random io.Reader
}

func NewSigner(apiKey, secretKey string) (*Signer, error) {
	if apiKey == "" {
		return nil, ErrMissingAPIKey
	}
	if secretKey == "" {
		return nil, ErrMissingSecretKey
	}
	return &Signer{
		apiKey: apiKey,
		secret: []byte(secretKey),
		now:    time.Now,
		random: rand.Reader,
	}, nil
}

// Sign returns hex(HMAC-SHA256(secret, timestamp || nonce || apiKey)).
func (s *Signer) Sign(timestamp int64, nonce string) string {
	mac := hmac.New(sha256.New, s.secret)
	mac.Write([]byte(strconv.FormatInt(timestamp, 10)))
	mac.Write([]byte(nonce))
	mac.Write([]byte(s.apiKey))
	return hex.EncodeToString(mac.Sum(nil))
}

// Envelope generates a fresh timestamp and nonce and signs them.
func (s *Signer) Envelope() (Envelope, error) {
	buf := make([]byte, nonceBytes)
	if _, err := io.ReadFull(s.random, buf); err != nil {
		return Envelope{}, fmt.Errorf("generate nonce: %w", err)
	}
	ts := s.now().UnixMilli()
	nonce := hex.EncodeToString(buf)
	return Envelope{
		APIKey:    s.apiKey,
		Timestamp: ts,
		Nonce:     nonce,
		Signature: s.Sign(ts, nonce),
	}, nil
}

// Transport signs every request before handing it to Base.
type Transport struct {
	Signer *Signer
	// Base defaults to http.DefaultTransport, resolved per request.
	Base http.RoundTripper
}

func (t *Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	env, err := t.Signer.Envelope()
	if err != nil {
		if req.Body != nil {
			req.Body.Close()
		}
		return nil, err
	}
	signed := req.Clone(req.Context())
	env.Apply(signed.Header)
	return t.base().RoundTrip(signed)
}

func (t *Transport) base() http.RoundTripper {
	if t.Base != nil {
		return t.Base
	}
	return http.DefaultTransport
}
