package webhook

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"

	"momogate/internal/apperr"
)

const (
	HeaderSignature = "X-Signature"
	HeaderDigest    = "Digest"
)

var verifications = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "webhook_verifications_total",
		Help: "Inbound webhook signature checks by scheme and result",
	},
	[]string{"scheme", "result"},
)

func init() {
	prometheus.MustRegister(verifications)
}

// Inbound is what a verifier may look at in a webhook call.
type Inbound struct {
	Body     []byte
	Header   http.Header
	RemoteIP string
}

// Verifier authenticates an inbound webhook.
type Verifier interface {
	Scheme() string
	Verify(in Inbound) error
}

// BodyHMAC expects X-Signature = hex(HMAC-SHA256(secret, compact JSON body)).
type BodyHMAC struct {
	secret []byte
}

func NewBodyHMAC(secretKey string) (*BodyHMAC, error) {
	if secretKey == "" {
		return nil, errors.New("webhook secret is required")
	}
	return &BodyHMAC{secret: []byte(secretKey)}, nil
}

func (v *BodyHMAC) Scheme() string { return "body_hmac" }

// Expected computes the signature the gateway should have sent for body.
func (v *BodyHMAC) Expected(body []byte) (string, error) {
	var compact bytes.Buffer
	if err := json.Compact(&compact, body); err != nil {
		return "", fmt.Errorf("webhook body is not JSON: %w", err)
	}
	mac := hmac.New(sha256.New, v.secret)
	mac.Write(compact.Bytes())
	return hex.EncodeToString(mac.Sum(nil)), nil
}

func (v *BodyHMAC) Verify(in Inbound) error {
	received := in.Header.Get(HeaderSignature)
	if received == "" {
		return record(v, apperr.Auth("missing signature"))
	}
	expected, err := v.Expected(in.Body)
	if err != nil {
		return record(v, apperr.Auth("Invalid signature"))
	}
	if !hmac.Equal([]byte(received), []byte(expected)) {
		return record(v, apperr.Auth("Invalid signature"))
	}
	return record(v, nil)
}

// Digest expects Digest = base64(HMAC-SHA256(secret, "timestamp=<ts>&server_ip=<ip>&api_key=<key>")),
// with ts taken from the body's timestamp field and ip from the calling address.
type Digest struct {
	apiKey string
	secret []byte
}

func NewDigest(apiKey, secretKey string) (*Digest, error) {
	if apiKey == "" || secretKey == "" {
		return nil, errors.New("webhook api key and secret are required")
	}
	return &Digest{apiKey: apiKey, secret: []byte(secretKey)}, nil
}

func (v *Digest) Scheme() string { return "digest" }

func (v *Digest) Expected(timestamp, serverIP string) string {
	mac := hmac.New(sha256.New, v.secret)
	fmt.Fprintf(mac, "timestamp=%s&server_ip=%s&api_key=%s", timestamp, serverIP, v.apiKey)
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

func (v *Digest) Verify(in Inbound) error {
	received := in.Header.Get(HeaderDigest)
	if received == "" {
		return record(v, apperr.Auth("missing signature"))
	}
	ts := bodyTimestamp(in.Body)
	expected := v.Expected(ts, in.RemoteIP)
	if !hmac.Equal([]byte(received), []byte(expected)) {
		return record(v, apperr.Auth("Invalid webhook signature"))
	}
	return record(v, nil)
}

// bodyTimestamp renders the body's timestamp field the way it appears on the wire.
func bodyTimestamp(body []byte) string {
	var payload struct {
		Timestamp json.RawMessage `json:"timestamp"`
	}
	if err := json.Unmarshal(body, &payload); err != nil || len(payload.Timestamp) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(payload.Timestamp, &s); err == nil {
		return s
	}
	return string(payload.Timestamp)
}

func record(v Verifier, err error) error {
	result := "ok"
	if err != nil {
		result = "rejected"
	}
	verifications.WithLabelValues(v.Scheme(), result).Inc()
	return err
}
