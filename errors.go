package stripe

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	jperrors "github.com/JohnPlummer/jp-go-errors"
	"github.com/tidwall/gjson"
)

// ErrorKind classifies every failure a send can produce.
type ErrorKind int

const (
	// KindClientMisuse is a malformed request or a failed constructor
	// precondition. It is raised before any network attempt.
	KindClientMisuse ErrorKind = iota + 1

	// KindTransport is an I/O failure reported by the HTTPClient.
	KindTransport

	// KindSerialization is a failure to encode outgoing parameters.
	KindSerialization

	// KindDeserialization is a response body that did not decode as the
	// declared output type. The body is preserved on the error.
	KindDeserialization

	// KindService is a structured error returned by the Service.
	KindService

	// KindUnknown is a status outside the known classes, or an error body
	// that is not a valid error envelope.
	KindUnknown
)

// String returns the kind name.
func (k ErrorKind) String() string {
	switch k {
	case KindClientMisuse:
		return "client misuse"
	case KindTransport:
		return "transport"
	case KindSerialization:
		return "serialization"
	case KindDeserialization:
		return "deserialization"
	case KindService:
		return "service"
	case KindUnknown:
		return "unknown"
	default:
		return "invalid"
	}
}

// Sentinel errors matched by errors.Is against any *Error of that kind.
var (
	ErrClientMisuse    = errors.New("stripe: client misuse")
	ErrTransport       = errors.New("stripe: transport failure")
	ErrSerialization   = errors.New("stripe: serialization failure")
	ErrDeserialization = errors.New("stripe: deserialization failure")
	ErrService         = errors.New("stripe: service error")
	ErrUnknown         = errors.New("stripe: unknown response")
)

func (k ErrorKind) sentinel() error {
	switch k {
	case KindClientMisuse:
		return ErrClientMisuse
	case KindTransport:
		return ErrTransport
	case KindSerialization:
		return ErrSerialization
	case KindDeserialization:
		return ErrDeserialization
	case KindService:
		return ErrService
	case KindUnknown:
		return ErrUnknown
	default:
		return nil
	}
}

// Error is the single concrete error type returned by this package.
type Error struct {
	// Kind is the failure class.
	Kind ErrorKind

	// Status is the HTTP status of the response, or 0 when no response was
	// received.
	Status int

	// Service is the decoded error envelope for KindService.
	Service *ServiceError

	// Body holds the raw response body for KindDeserialization and KindUnknown.
	Body []byte

	// Message describes misuse, serialization and deserialization failures.
	Message string

	// Err is the underlying cause, if any.
	Err error
}

// Error implements the error interface.
func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString("stripe: ")
	b.WriteString(e.Kind.String())
	b.WriteString(" error")

	if e.Status > 0 {
		fmt.Fprintf(&b, " (status %d", e.Status)
		if e.Service != nil && e.Service.Type != "" {
			fmt.Fprintf(&b, ", %s", e.Service.Type)
		}
		b.WriteString(")")
	}

	switch {
	case e.Service != nil && e.Service.Message != "":
		b.WriteString(": ")
		b.WriteString(e.Service.Message)
	case e.Message != "":
		b.WriteString(": ")
		b.WriteString(e.Message)
	}

	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

// Unwrap returns the underlying cause for errors.Is and errors.As.
func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches the kind sentinels, and jperrors.ErrRateLimited for 429
// responses.
func (e *Error) Is(target error) bool {
	if target == nil {
		return false
	}
	if target == e.Kind.sentinel() {
		return true
	}
	return target == jperrors.ErrRateLimited && e.Status == 429
}

// StatusCode returns the HTTP status code, satisfying the HTTPError shape
// used by status-based classifiers.
func (e *Error) StatusCode() int {
	return e.Status
}

// Timeout reports whether the failure was a transport timeout.
func (e *Error) Timeout() bool {
	return e.Kind == KindTransport && jperrors.IsTimeout(e.Err)
}

func misuseError(format string, args ...any) *Error {
	return &Error{Kind: KindClientMisuse, Message: fmt.Sprintf(format, args...)}
}

func serializationError(err error) *Error {
	return &Error{Kind: KindSerialization, Message: "encoding request parameters", Err: err}
}

func transportError(err error) *Error {
	return &Error{Kind: KindTransport, Err: err}
}

func deserializationError(status int, body []byte, err error) *Error {
	return &Error{
		Kind:    KindDeserialization,
		Status:  status,
		Body:    body,
		Message: "decoding response body",
		Err:     err,
	}
}

// ErrorType is the `type` of a Service error. Values outside the known set
// are preserved verbatim.
type ErrorType string

const (
	ErrorTypeAPI            ErrorType = "api_error"
	ErrorTypeCard           ErrorType = "card_error"
	ErrorTypeIdempotency    ErrorType = "idempotency_error"
	ErrorTypeInvalidRequest ErrorType = "invalid_request_error"
)

// IsKnown reports whether t is one of the documented error types.
func (t ErrorType) IsKnown() bool {
	return IsKnown(t, ErrorTypeAPI, ErrorTypeCard, ErrorTypeIdempotency, ErrorTypeInvalidRequest)
}

// ServiceError is the body of the Service's error envelope. Only Type is
// guaranteed to be present. The related objects are kept as raw JSON since
// their resource types live outside this package.
type ServiceError struct {
	Type          ErrorType       `json:"type"`
	Code          string          `json:"code,omitempty"`
	DeclineCode   string          `json:"decline_code,omitempty"`
	DocURL        string          `json:"doc_url,omitempty"`
	Message       string          `json:"message,omitempty"`
	Param         string          `json:"param,omitempty"`
	Charge        string          `json:"charge,omitempty"`
	PaymentIntent json.RawMessage `json:"payment_intent,omitempty"`
	PaymentMethod json.RawMessage `json:"payment_method,omitempty"`
	SetupIntent   json.RawMessage `json:"setup_intent,omitempty"`
	Source        json.RawMessage `json:"source,omitempty"`
	RequestLogURL string          `json:"request_log_url,omitempty"`
}

type errorEnvelope struct {
	Error *ServiceError `json:"error"`
}

// decodeServiceError parses an error envelope. It fails when the body is not
// JSON, has no `error` object, or the object lacks `type`.
func decodeServiceError(body []byte) (*ServiceError, error) {
	if !gjson.GetBytes(body, "error.type").Exists() {
		return nil, errors.New("error envelope has no error.type")
	}
	var env errorEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, err
	}
	return env.Error, nil
}

// errorFromResponse maps a non-2xx response to a Service or Unknown error.
func errorFromResponse(status int, body []byte) *Error {
	if status >= 400 && status < 600 {
		if svc, err := decodeServiceError(body); err == nil {
			return &Error{Kind: KindService, Status: status, Service: svc}
		}
	}
	return &Error{Kind: KindUnknown, Status: status, Body: body}
}

// retryHintFromBody reads a boolean error.should_retry directive, if present.
func retryHintFromBody(body []byte) RetryHint {
	r := gjson.GetBytes(body, "error.should_retry")
	switch r.Type {
	case gjson.True:
		return HintRetry
	case gjson.False:
		return HintNoRetry
	default:
		return HintNone
	}
}
