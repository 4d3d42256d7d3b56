// Package model contains the domain models and data structures for feedkit subscriptions.
package model

import (
	"crypto/hmac"
	"crypto/sha1"
	"crypto/sha256"
	"crypto/sha512"
	"encoding/hex"
	"hash"
	"strings"
	"time"
)

// tablePrefix is prepended to every table name used by the SQL adapters.
const tablePrefix = "feedkit_"

// FeedUpdate is a content distribution request received from a hub.
// The payload is kept verbatim; it may be malformed or of an unexpected feed type.
type FeedUpdate struct {
	SubscriptionID string    `json:"subscriptionID"`
	TopicURL       string    `json:"topicURL"`
	ContentType    string    `json:"contentType"`
	Signature      string    `json:"signature,omitempty"` // X-Hub-Signature header, if any
	Authentic      bool      `json:"authentic"`           // signature checked against the subscription secret
	Body           []byte    `json:"-"`
	ReceivedAt     time.Time `json:"receivedAt"`
}

// NewFeedUpdate creates a FeedUpdate for a stored subscription.
func NewFeedUpdate(sub Subscription, contentType, signature string, body []byte, receivedAt time.Time) FeedUpdate {
	return FeedUpdate{
		SubscriptionID: sub.ID,
		TopicURL:       sub.TopicURL,
		ContentType:    contentType,
		Signature:      signature,
		Authentic:      sub.Secret == "" || VerifySignature(sub.Secret, signature, body),
		Body:           body,
		ReceivedAt:     receivedAt,
	}
}

// String returns the raw payload as a string.
func (u FeedUpdate) String() string {
	return string(u.Body)
}

// VerifySignature checks an X-Hub-Signature header value ("sha1=<hex>", "sha256=<hex>", ...)
// against the HMAC of body keyed with secret.
func VerifySignature(secret, header string, body []byte) bool {
	method, digest, ok := strings.Cut(header, "=")
	if !ok {
		return false
	}
	var h func() hash.Hash
	switch strings.ToLower(method) {
	case "sha1":
		h = sha1.New
	case "sha256":
		h = sha256.New
	case "sha384":
		h = sha512.New384
	case "sha512":
		h = sha512.New
	default:
		return false
	}
	expected, err := hex.DecodeString(digest)
	if err != nil {
		return false
	}
	mac := hmac.New(h, []byte(secret))
	mac.Write(body)
	return hmac.Equal(mac.Sum(nil), expected)
}
