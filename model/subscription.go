package model

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"math"
	"time"
)

// SubscriptionState represents the verification state of a subscription.
type SubscriptionState string

const (
	// StateUnverified indicates the hub has not yet confirmed the subscription.
	StateUnverified SubscriptionState = "unverified"

	// StateVerified indicates the hub confirmed the subscription with a matching verify token.
	StateVerified SubscriptionState = "verified"
)

// Subscription represents a PubSubHubbub subscription held by this subscriber.
//
// Each subscription:
//   - Is keyed by an opaque ID that also forms the last path segment of its callback URL
//   - Stores only the SHA-256 hash of its verify token
//   - Starts unverified and becomes verified on hub confirmation
//   - Is deleted when the hub confirms an unsubscribe
//
// ExpirationTime is always derived from the lease: whenever LeaseSeconds changes it is
// recomputed as now + LeaseSeconds.
type Subscription struct {
	ID              string            `json:"id" db:"id"`
	TopicURL        string            `json:"topicURL" db:"topic_url"`
	HubURL          string            `json:"hubURL" db:"hub_url"`
	CallbackURL     string            `json:"callbackURL" db:"callback_url"`
	VerifyTokenHash string            `json:"-" db:"verify_token_hash"`
	Secret          string            `json:"-" db:"secret"`
	LeaseSeconds    int64             `json:"leaseSeconds" db:"lease_seconds"`
	CreatedTime     int64             `json:"createdTime" db:"created_time"`       // unix seconds
	ExpirationTime  int64             `json:"expirationTime" db:"expiration_time"` // unix seconds, 0 = no lease yet
	State           SubscriptionState `json:"state" db:"subscription_state"`
}

// TableName returns the database table name for Subscription.
func (m Subscription) TableName() string {
	return tablePrefix + "subscription"
}

// NewSubscription creates a new unverified subscription.
// The ID is derived from the topic and callback base URL; the verify token is hashed
// and never stored in clear.
//
// Parameters:
//   - topicURL: The topic (feed) URL being subscribed to
//   - hubURL: The hub endpoint receiving the subscription request
//   - callbackBase: Callback base URL; the subscription key is appended as last path segment
//   - verifyToken: Shared secret echoed back by the hub on confirmation
func NewSubscription(topicURL, hubURL, callbackBase, verifyToken string) Subscription {
	id := SubscriptionKey(topicURL, callbackBase)
	return Subscription{
		ID:              id,
		TopicURL:        topicURL,
		HubURL:          hubURL,
		CallbackURL:     CallbackURL(callbackBase, id),
		VerifyTokenHash: HashToken(verifyToken),
		State:           StateUnverified,
	}
}

// SetLeaseSeconds updates the lease and recomputes the expiration time from now.
// The sum is computed in unix seconds and saturates instead of wrapping, so hub
// supplied leases of any int64 size keep the expiration monotonic.
func (m *Subscription) SetLeaseSeconds(lease int64, now time.Time) {
	m.LeaseSeconds = lease
	m.ExpirationTime = addSeconds(now.Unix(), lease)
}

// MarkVerified records a successful hub confirmation.
func (m *Subscription) MarkVerified(lease int64, now time.Time) {
	m.SetLeaseSeconds(lease, now)
	m.State = StateVerified
}

func addSeconds(t, lease int64) int64 {
	switch {
	case lease > 0 && t > math.MaxInt64-lease:
		return math.MaxInt64
	case lease < 0 && t < math.MinInt64-lease:
		return math.MinInt64
	}
	return t + lease
}

// IsVerified reports whether the hub confirmed this subscription.
func (m Subscription) IsVerified() bool {
	return m.State == StateVerified
}

// IsExpired reports whether the lease ran out at the given time.
// Subscriptions without a lease never expire.
func (m Subscription) IsExpired(now time.Time) bool {
	return m.ExpirationTime > 0 && m.ExpirationTime <= now.Unix()
}

// Created returns CreatedTime as a time.Time.
func (m Subscription) Created() time.Time {
	return time.Unix(m.CreatedTime, 0)
}

// Expires returns ExpirationTime as a time.Time (zero when no lease was granted yet).
func (m Subscription) Expires() time.Time {
	if m.ExpirationTime == 0 {
		return time.Time{}
	}
	return time.Unix(m.ExpirationTime, 0)
}

// MatchesToken compares the hash of token with the stored verify token hash
// in constant time.
func (m Subscription) MatchesToken(token string) bool {
	if m.VerifyTokenHash == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(HashToken(token)), []byte(m.VerifyTokenHash)) == 1
}

// HashToken returns the hex encoded SHA-256 digest of a verify token.
func HashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

// SubscriptionKey derives the opaque subscription ID from a topic and callback URL.
func SubscriptionKey(topicURL, callbackURL string) string {
	sum := sha256.Sum256([]byte(topicURL + "\x00" + callbackURL))
	return hex.EncodeToString(sum[:])
}

// CallbackURL appends the subscription key to a callback base URL.
func CallbackURL(base, key string) string {
	if base == "" {
		return key
	}
	if base[len(base)-1] == '/' {
		return base + key
	}
	return base + "/" + key
}
