package stripe

import (
	"context"
	"fmt"
	"iter"
	"net/http"
	"strconv"

	"github.com/tidwall/gjson"

	"github.com/JohnPlummer/jp-go-stripe/form"
)

// List is one page of a cursor-paginated list endpoint.
type List[T any] struct {
	Object  string `json:"object,omitempty"`
	Data    []T    `json:"data"`
	HasMore bool   `json:"has_more"`
	URL     string `json:"url"`
}

// Validate runs Validator on every item, so a page holding an item with a
// missing required field fails to decode.
func (l *List[T]) Validate() error {
	for i := range l.Data {
		if err := validate(&l.Data[i]); err != nil {
			return fmt.Errorf("data[%d]: %w", i, err)
		}
	}
	return nil
}

// Paginator lazily walks a list endpoint page by page, passing the id of the
// last item of each page as starting_after on the next request. It holds no
// pages: restarting re-requests them unless the cursor is persisted with a
// CursorStore. A Paginator is not safe for concurrent use.
type Paginator[T any] struct {
	client    *Client
	path      string
	params    form.Values
	strategy  RequestStrategy
	opts      []RequestOption
	cursor    string
	exhausted bool
	err       error

	store    CursorStore
	storeKey string
	loaded   bool
}

// Paginate walks the list endpoint described by req, which must be a GET.
func Paginate[T any](c *Client, req Request[List[T]], opts ...RequestOption) *Paginator[T] {
	p := &Paginator[T]{client: c, opts: opts}
	if c == nil {
		p.err = misuseError("nil client")
		return p
	}
	if req == nil {
		p.err = misuseError("nil list request")
		return p
	}
	b := req.Build()
	switch {
	case b == nil:
		p.err = misuseError("list request built a nil RequestBuilder")
	case b.Err() != nil:
		p.err = b.Err()
	case b.Method != http.MethodGet:
		p.err = misuseError("list endpoints are paginated with GET, got %s", b.Method)
	default:
		p.path = b.Path
		p.params = b.Query.Clone()
		p.strategy = b.Strategy
	}
	return p
}

// NewPaginator walks the list endpoint at path with params encoded into the
// query string.
func NewPaginator[T any](c *Client, path string, params any, opts ...RequestOption) *Paginator[T] {
	return Paginate[T](c, NewRequest[List[T]](Get(path).QueryParams(params)), opts...)
}

// WithCursorStore persists the cursor under key after every page and resumes
// from the stored cursor on the first page.
func (p *Paginator[T]) WithCursorStore(store CursorStore, key string) *Paginator[T] {
	p.store = store
	p.storeKey = key
	return p
}

// Cursor returns the id the next page will start after.
func (p *Paginator[T]) Cursor() string {
	return p.cursor
}

// Done reports whether the last page has been fetched.
func (p *Paginator[T]) Done() bool {
	return p.exhausted
}

// NextPage fetches the next page. It returns a nil page and nil error once the
// list is exhausted. A failed fetch, decode or cursor save leaves the cursor in
// place so the call can be repeated.
func (p *Paginator[T]) NextPage(ctx context.Context) (*List[T], error) {
	if p.err != nil {
		return nil, p.err
	}
	if p.exhausted {
		return nil, nil
	}
	if err := p.loadCursor(); err != nil {
		return nil, err
	}

	params := p.params.Clone()
	if p.cursor != "" {
		params.Set("starting_after", p.cursor)
	}
	b := &RequestBuilder{Method: http.MethodGet, Path: p.path, Query: params, Strategy: p.strategy}

	resp, err := p.client.execute(ctx, b, buildOverride(p.opts))
	if err != nil {
		return nil, err
	}
	page, err := decodeObject[List[T]](resp.StatusCode, resp.Body)
	if err != nil {
		return nil, err
	}

	cursor, exhausted := p.cursor, !page.HasMore
	if n := len(page.Data); n > 0 {
		last := gjson.GetBytes(resp.Body, "data."+strconv.Itoa(n-1)+".id").String()
		if last != "" {
			cursor = last
		} else if page.HasMore {
			p.client.logger.Warn("list page has more items but its last item has no id; stopping",
				"path", p.path)
			exhausted = true
		}
	} else if page.HasMore {
		// An empty page cannot advance the cursor
		exhausted = true
	}

	// The cursor only advances once it is stored, so a failed save refetches
	// the same page
	if p.store != nil {
		if err := p.store.SaveCursor(p.storeKey, cursor); err != nil {
			return nil, fmt.Errorf("saving cursor: %w", err)
		}
	}
	p.cursor, p.exhausted = cursor, exhausted
	return page, nil
}

func (p *Paginator[T]) loadCursor() error {
	if p.loaded || p.store == nil {
		return nil
	}
	cursor, err := p.store.LoadCursor(p.storeKey)
	if err != nil {
		return err
	}
	p.loaded = true
	if cursor != "" {
		p.cursor = cursor
	}
	return nil
}

// All yields every item of every remaining page. Iteration stops after the
// first error, which is yielded with a zero item.
func (p *Paginator[T]) All(ctx context.Context) iter.Seq2[T, error] {
	return func(yield func(T, error) bool) {
		for {
			page, err := p.NextPage(ctx)
			if err != nil {
				var zero T
				yield(zero, err)
				return
			}
			if page == nil {
				return
			}
			for _, item := range page.Data {
				if !yield(item, nil) {
					return
				}
			}
		}
	}
}

// Collect gathers every remaining item.
func (p *Paginator[T]) Collect(ctx context.Context) ([]T, error) {
	var items []T
	for item, err := range p.All(ctx) {
		if err != nil {
			return items, err
		}
		items = append(items, item)
	}
	return items, nil
}
