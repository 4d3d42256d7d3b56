package feedkit

import (
	"errors"
	"mime"
	"net/url"
	"regexp"
	"strconv"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// Hub modes.
const (
	ModeSubscribe   = "subscribe"
	ModeUnsubscribe = "unsubscribe"
)

// Hub protocol parameter and header names.
const (
	ParamCallback     = "hub.callback"
	ParamMode         = "hub.mode"
	ParamTopic        = "hub.topic"
	ParamChallenge    = "hub.challenge"
	ParamVerify       = "hub.verify"
	ParamVerifyToken  = "hub.verify_token"
	ParamLeaseSeconds = "hub.lease_seconds"
	ParamSecret       = "hub.secret"

	// ParamSubscriptionKey carries the subscription key when it is not the last path segment.
	ParamSubscriptionKey = "xhub.subscription"

	HeaderOnBehalfOf = "X-Hub-On-Behalf-Of"
	HeaderSignature  = "X-Hub-Signature"
)

// FeedMediaTypes are the Content-Types accepted for content distribution.
var FeedMediaTypes = []string{
	"application/atom+xml",
	"application/rss+xml",
	"application/xml",
	"text/xml",
	"application/rdf+xml",
}

var digitsPattern = regexp.MustCompile(`^[0-9]+$`)

// VerificationParams are the hub parameters of a verification GET request.
type VerificationParams struct {
	Mode         string
	Topic        string
	Challenge    string
	VerifyToken  string
	LeaseSeconds string
}

// VerificationParamsFromRequest collects hub parameters, accepting dotted and
// underscore spellings.
func VerificationParamsFromRequest(r *Request) VerificationParams {
	get := func(name string) string {
		v, _ := r.QueryParam(name)
		return v
	}
	return VerificationParams{
		Mode:         get(ParamMode),
		Topic:        get(ParamTopic),
		Challenge:    get(ParamChallenge),
		VerifyToken:  get(ParamVerifyToken),
		LeaseSeconds: get(ParamLeaseSeconds),
	}
}

// Validate checks presence of every parameter the mode requires and that the
// topic is an absolute URI. hub.lease_seconds is required for subscribe only.
func (p VerificationParams) Validate() error {
	return validation.ValidateStruct(&p,
		validation.Field(&p.Mode, validation.Required, validation.In(ModeSubscribe, ModeUnsubscribe)),
		validation.Field(&p.Topic, validation.Required, validation.By(absoluteURI)),
		validation.Field(&p.Challenge, validation.Required),
		validation.Field(&p.VerifyToken, validation.Required),
		validation.Field(&p.LeaseSeconds,
			validation.When(p.Mode == ModeSubscribe,
				validation.Required,
				validation.Match(digitsPattern),
				validation.By(fitsInt64),
			),
		),
	)
}

// Lease returns hub.lease_seconds as a number, 0 when absent.
func (p VerificationParams) Lease() int64 {
	n, err := strconv.ParseInt(p.LeaseSeconds, 10, 64)
	if err != nil {
		return 0
	}
	return n
}

// IsFeedMediaType reports whether a Content-Type header names a feed media type.
// Parameters such as charset are ignored and the comparison is case-insensitive.
func IsFeedMediaType(contentType string) bool {
	if contentType == "" {
		return false
	}
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		mediaType, _, _ = strings.Cut(contentType, ";")
	}
	mediaType = strings.ToLower(strings.TrimSpace(mediaType))
	for _, t := range FeedMediaTypes {
		if mediaType == t {
			return true
		}
	}
	return false
}

// ParseSubscriberCount parses an X-Hub-On-Behalf-Of style value.
// Anything that is not a positive integer is an INVALID_ARGUMENT error.
func ParseSubscriberCount(value string) (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return 0, NewErrorWithCause(ErrCodeInvalidArgument, "subscriber count must be an integer", err)
	}
	if n <= 0 {
		return 0, NewError(ErrCodeInvalidArgument, "subscriber count must be greater than zero")
	}
	return n, nil
}

func absoluteURI(value interface{}) error {
	s, _ := value.(string)
	if s == "" {
		return nil
	}
	u, err := url.Parse(s)
	if err != nil || !u.IsAbs() || (u.Host == "" && u.Opaque == "") {
		return errors.New("must be an absolute URI")
	}
	return nil
}

func fitsInt64(value interface{}) error {
	s, _ := value.(string)
	if s == "" {
		return nil
	}
	if _, err := strconv.ParseInt(s, 10, 64); err != nil {
		return errors.New("must fit a 64-bit integer")
	}
	return nil
}
