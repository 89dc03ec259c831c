package stripe

import (
	"net/http"
	"strings"

	"github.com/JohnPlummer/jp-go-stripe/form"
)

// RequestBuilder is the in-memory form of one API call. Generated request types
// produce one from Build; the client turns it into HTTP.
//
// GET requests carry their parameters in the query string and never have a
// body. POST and DELETE requests carry them in a form body unless they are
// added with Query.
type RequestBuilder struct {
	Method   string
	Path     string
	Query    form.Values
	Body     form.Values
	Strategy RequestStrategy

	err error
}

// NewRequestBuilder starts a request for an already expanded path such as
// "/v1/customers/cus_123".
func NewRequestBuilder(method, path string) *RequestBuilder {
	b := &RequestBuilder{Method: strings.ToUpper(method), Path: path}
	switch b.Method {
	case http.MethodGet, http.MethodPost, http.MethodDelete:
	default:
		b.err = misuseError("unsupported method %q", method)
	}
	if !strings.HasPrefix(path, "/") {
		b.fail(misuseError("path %q must start with /", path))
	}
	return b
}

// Get starts a GET request.
func Get(path string) *RequestBuilder { return NewRequestBuilder(http.MethodGet, path) }

// Post starts a POST request.
func Post(path string) *RequestBuilder { return NewRequestBuilder(http.MethodPost, path) }

// Delete starts a DELETE request.
func Delete(path string) *RequestBuilder { return NewRequestBuilder(http.MethodDelete, path) }

// Params encodes params into the query for GET and into the body otherwise.
func (b *RequestBuilder) Params(params any) *RequestBuilder {
	if b.Method == http.MethodGet {
		return b.QueryParams(params)
	}
	return b.FormParams(params)
}

// QueryParams encodes params into the query string regardless of method.
func (b *RequestBuilder) QueryParams(params any) *RequestBuilder {
	values, err := form.Encode(params)
	if err != nil {
		b.fail(serializationError(err))
		return b
	}
	for _, p := range values.Pairs() {
		b.Query.Add(p.Key, p.Value)
	}
	return b
}

// FormParams encodes params into the form body. It is a misuse on GET.
func (b *RequestBuilder) FormParams(params any) *RequestBuilder {
	if b.Method == http.MethodGet {
		b.fail(misuseError("GET requests cannot carry a form body"))
		return b
	}
	values, err := form.Encode(params)
	if err != nil {
		b.fail(serializationError(err))
		return b
	}
	for _, p := range values.Pairs() {
		b.Body.Add(p.Key, p.Value)
	}
	return b
}

// Param adds a single query pair.
func (b *RequestBuilder) Param(key, value string) *RequestBuilder {
	b.Query.Add(key, value)
	return b
}

// WithStrategy sets the request's own strategy. A ConfigOverride still wins.
func (b *RequestBuilder) WithStrategy(strategy RequestStrategy) *RequestBuilder {
	b.Strategy = strategy
	return b
}

// Err returns the first error recorded while building.
func (b *RequestBuilder) Err() error {
	if b.err == nil && b.Method == http.MethodGet && b.Body.Len() > 0 {
		return misuseError("GET requests cannot carry a form body")
	}
	return b.err
}

func (b *RequestBuilder) fail(err error) {
	if b.err == nil {
		b.err = err
	}
}

// Request is implemented by every typed endpoint request. T is the decoded
// response type; implementations embed Returns[T] to declare it.
//
//	type RetrieveCustomer struct {
//	    stripe.Returns[Customer]
//	    ID string
//	}
//
//	func (r *RetrieveCustomer) Build() *stripe.RequestBuilder {
//	    return stripe.Get("/v1/customers/" + r.ID)
//	}
type Request[T any] interface {
	Build() *RequestBuilder
	returns() *T
}

// Returns declares the response type of a Request. It has no fields.
type Returns[T any] struct{}

func (Returns[T]) returns() *T { return nil }

type builtRequest[T any] struct {
	Returns[T]
	builder *RequestBuilder
}

func (r builtRequest[T]) Build() *RequestBuilder { return r.builder }

// NewRequest adapts a hand-built RequestBuilder into a Request decoding to T.
func NewRequest[T any](b *RequestBuilder) Request[T] {
	return builtRequest[T]{builder: b}
}
