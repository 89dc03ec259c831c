package form_test

import (
	"errors"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/JohnPlummer/jp-go-stripe/form"
)

type taxBehavior string

const taxBehaviorExclusive taxBehavior = "exclusive"

type eventType string

type address struct {
	City    *string `form:"city"`
	Country string  `form:"country,omitempty"`
}

type ListParams struct {
	Limit         *int64  `form:"limit"`
	StartingAfter *string `form:"starting_after"`
}

type createPrice struct {
	Currency    string            `form:"currency"`
	UnitAmount  *int64            `form:"unit_amount"`
	Active      *bool             `form:"active"`
	TaxBehavior taxBehavior       `form:"tax_behavior,omitempty"`
	Metadata    map[string]string `form:"metadata"`
	Expand      []string          `form:"expand"`
	Address     *address          `form:"address"`
	Ignored     string            `form:"-"`
	internal    string
}

type listEvents struct {
	ListParams
	Created *form.Range `form:"created"`
	Types   []eventType `form:"types"`
}

func ptr[T any](v T) *T { return &v }

var _ = Describe("Encode", func() {
	It("encodes flat and nested fields with brackets", func() {
		values, err := form.Encode(&createPrice{
			Currency:    "usd",
			UnitAmount:  ptr(int64(1200)),
			Active:      ptr(false),
			TaxBehavior: taxBehaviorExclusive,
			Metadata:    map[string]string{"b": "2", "a": "1"},
			Expand:      []string{"product", "tiers"},
			Address:     &address{City: ptr("Paris")},
			Ignored:     "nope",
			internal:    "nope",
		})
		Expect(err).NotTo(HaveOccurred())
		Expect(values.Pairs()).To(Equal([]form.Pair{
			{Key: "currency", Value: "usd"},
			{Key: "unit_amount", Value: "1200"},
			{Key: "active", Value: "false"},
			{Key: "tax_behavior", Value: "exclusive"},
			{Key: "metadata[a]", Value: "1"},
			{Key: "metadata[b]", Value: "2"},
			{Key: "expand[0]", Value: "product"},
			{Key: "expand[1]", Value: "tiers"},
			{Key: "address[city]", Value: "Paris"},
		}))
	})

	It("omits nil pointers, nil collections and empty omitempty fields", func() {
		values, err := form.Encode(createPrice{Currency: "eur"})
		Expect(err).NotTo(HaveOccurred())
		Expect(values.Pairs()).To(Equal([]form.Pair{{Key: "currency", Value: "eur"}}))
	})

	It("flattens embedded structs and emits dotted enum spellings verbatim", func() {
		values, err := form.Encode(listEvents{
			ListParams: ListParams{Limit: ptr(int64(3))},
			Types:      []eventType{"customer.created", "invoice.paid"},
		})
		Expect(err).NotTo(HaveOccurred())
		Expect(values.Encode()).To(Equal("limit=3&types[0]=customer.created&types[1]=invoice.paid"))
	})

	It("returns no pairs for nil params", func() {
		values, err := form.Encode(nil)
		Expect(err).NotTo(HaveOccurred())
		Expect(values.Len()).To(Equal(0))

		var p *createPrice
		values, err = form.Encode(p)
		Expect(err).NotTo(HaveOccurred())
		Expect(values.Len()).To(Equal(0))
	})

	It("encodes time values as unix seconds", func() {
		values, err := form.Encode(map[string]any{"at": time.Unix(1700000000, 0)})
		Expect(err).NotTo(HaveOccurred())
		Expect(values.Get("at")).To(Equal("1700000000"))
	})

	It("rejects unsupported kinds", func() {
		_, err := form.Encode(map[string]any{"cb": func() {}})
		Expect(errors.Is(err, form.ErrUnsupportedType)).To(BeTrue())

		_, err = form.Encode(42)
		Expect(errors.Is(err, form.ErrUnsupportedType)).To(BeTrue())
	})

	It("formats floats at their own precision", func() {
		values, err := form.Encode(struct {
			Rate    float32 `form:"rate"`
			Percent float64 `form:"percent"`
		}{Rate: 0.1, Percent: 12.5})
		Expect(err).NotTo(HaveOccurred())
		Expect(values.Encode()).To(Equal("rate=0.1&percent=12.5"))
	})

	It("escapes values but keeps brackets readable", func() {
		var values form.Values
		values.Add("metadata[note]", "a b&c")
		Expect(values.Encode()).To(Equal("metadata[note]=a+b%26c"))
	})
})

var _ = Describe("Range", func() {
	It("serializes an exact match as a bare integer", func() {
		values, err := form.Encode(listEvents{Created: form.Exactly(1700000000)})
		Expect(err).NotTo(HaveOccurred())
		Expect(values.Pairs()).To(Equal([]form.Pair{{Key: "created", Value: "1700000000"}}))
	})

	It("serializes bounds and omits unset ones", func() {
		values, err := form.Encode(listEvents{Created: &form.Range{GT: ptr(int64(10)), LTE: ptr(int64(20))}})
		Expect(err).NotTo(HaveOccurred())
		Expect(values.Encode()).To(Equal("created[gt]=10&created[lte]=20"))
	})

	It("serializes Between as gte/lt", func() {
		values, err := form.Encode(listEvents{Created: form.Between(1, 2)})
		Expect(err).NotTo(HaveOccurred())
		Expect(values.Encode()).To(Equal("created[gte]=1&created[lt]=2"))
	})
})

var _ = Describe("Values", func() {
	It("sets, replaces and deletes keys in order", func() {
		var values form.Values
		values.Add("limit", "10")
		values.Add("expand[0]", "data.customer")
		values.Set("starting_after", "cus_1")
		values.Set("starting_after", "cus_2")
		values.Set("limit", "5")

		Expect(values.Encode()).To(Equal("limit=5&expand[0]=data.customer&starting_after=cus_2"))
		Expect(values.Has("starting_after")).To(BeTrue())

		values.Del("starting_after")
		Expect(values.Has("starting_after")).To(BeFalse())
		Expect(values.Len()).To(Equal(2))
	})

	It("leaves a copied value untouched when the copy changes", func() {
		var values form.Values
		values.Add("a", "1")
		values.Add("b", "2")
		values.Add("a", "3")

		copied := values
		copied.Set("b", "changed")
		copied.Del("a")

		Expect(values.Encode()).To(Equal("a=1&b=2&a=3"))
		Expect(copied.Encode()).To(Equal("b=changed"))
	})

	It("clones independently", func() {
		var values form.Values
		values.Add("a", "1")
		clone := values.Clone()
		clone.Set("a", "2")
		Expect(values.Get("a")).To(Equal("1"))
		Expect(clone.Get("a")).To(Equal("2"))
	})
})
