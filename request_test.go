package stripe_test

import (
	"errors"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	stripe "github.com/JohnPlummer/jp-go-stripe"
	"github.com/JohnPlummer/jp-go-stripe/form"
)

var _ = Describe("RequestBuilder", func() {
	It("puts GET parameters in the query", func() {
		b := (&listCustomers{Limit: stripe.Int64(3), Email: stripe.String("a@b.c")}).Build()
		Expect(b.Err()).NotTo(HaveOccurred())
		Expect(b.Method).To(Equal("GET"))
		Expect(b.Path).To(Equal("/v1/customers"))
		Expect(b.Query.Encode()).To(Equal("limit=3&email=a%40b.c"))
		Expect(b.Body.Len()).To(BeZero())
	})

	It("puts POST parameters in the body", func() {
		b := (&createCustomer{
			Email:    stripe.String("jenny@example.com"),
			Metadata: map[string]string{"order": "6735"},
		}).Build()
		Expect(b.Err()).NotTo(HaveOccurred())
		Expect(b.Query.Len()).To(BeZero())
		Expect(b.Body.Encode()).To(Equal("email=jenny%40example.com&metadata[order]=6735"))
	})

	It("keeps explicit query pairs on POST requests", func() {
		b := stripe.Post("/v1/customers").Param("expand[0]", "default_source")
		Expect(b.Query.Get("expand[0]")).To(Equal("default_source"))
		Expect(b.Body.Len()).To(BeZero())
	})

	It("allows DELETE requests", func() {
		b := (&deleteCustomer{id: "cus_123"}).Build()
		Expect(b.Err()).NotTo(HaveOccurred())
		Expect(b.Method).To(Equal("DELETE"))
	})

	It("carries a per-request strategy", func() {
		b := stripe.Get("/v1/balance").WithStrategy(stripe.Retry(2))
		Expect(b.Strategy).To(Equal(stripe.Retry(2)))
	})

	DescribeTable("records misuse",
		func(b *stripe.RequestBuilder) {
			Expect(errors.Is(b.Err(), stripe.ErrClientMisuse)).To(BeTrue())
		},
		Entry("unsupported method", stripe.NewRequestBuilder("PATCH", "/v1/customers")),
		Entry("relative path", stripe.Get("v1/customers")),
		Entry("form body on GET", stripe.Get("/v1/customers").FormParams(map[string]string{"a": "b"})),
	)

	It("rejects a body added directly to a GET request", func() {
		b := stripe.Get("/v1/customers")
		b.Body.Add("limit", "3")
		Expect(errors.Is(b.Err(), stripe.ErrClientMisuse)).To(BeTrue())
	})

	It("reports unencodable parameters as serialization errors", func() {
		b := stripe.Post("/v1/customers").Params(42)
		Expect(errors.Is(b.Err(), stripe.ErrSerialization)).To(BeTrue())
		Expect(errors.Is(b.Err(), form.ErrUnsupportedType)).To(BeTrue())
	})

	It("keeps the first error", func() {
		b := stripe.NewRequestBuilder("PUT", "/v1/customers").Params(42)
		Expect(errors.Is(b.Err(), stripe.ErrClientMisuse)).To(BeTrue())
	})

	It("adapts a hand-built builder into a typed request", func() {
		req := stripe.NewRequest[customer](stripe.Get("/v1/customers/cus_123"))
		Expect(req.Build().Path).To(Equal("/v1/customers/cus_123"))
	})
})
