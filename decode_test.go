package stripe_test

import (
	"encoding/json"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	stripe "github.com/JohnPlummer/jp-go-stripe"
)

type cardDetails struct {
	Type string `json:"type"`
	Card struct {
		Last4 string `json:"last4"`
	} `json:"card"`
}

type sepaDetails struct {
	Type      string `json:"type"`
	SepaDebit struct {
		Country string `json:"country"`
	} `json:"sepa_debit"`
}

var paymentMethodVariants = map[string]func() any{
	"card":       func() any { return &cardDetails{} },
	"sepa_debit": func() any { return &sepaDetails{} },
}

var _ = Describe("Decoding", func() {
	Describe("round trip", func() {
		DescribeTable("re-encodes fixtures to equivalent JSON",
			func(fixture string) {
				var c customer
				Expect(json.Unmarshal([]byte(fixture), &c)).To(Succeed())

				out, err := json.Marshal(c)
				Expect(err).NotTo(HaveOccurred())
				Expect(out).To(MatchJSON(fixture))
			},
			Entry("unexpanded reference",
				`{"id":"cus_1","object":"customer","email":"a@b.c","balance":100,"status":"active","default_source":"card_1","metadata":{"k":"v"}}`),
			Entry("expanded reference",
				`{"id":"cus_1","object":"customer","balance":0,"default_source":{"id":"card_1","object":"card","last4":"4242"}}`),
			Entry("null reference",
				`{"id":"cus_1","object":"customer","balance":-5,"default_source":null}`),
			Entry("unknown enum value",
				`{"id":"cus_1","object":"customer","balance":0,"status":"__future_variant__","default_source":null}`),
		)
	})

	Describe("enum tolerance", func() {
		It("keeps values it does not know", func() {
			var status customerStatus
			Expect(json.Unmarshal([]byte(`"__future_variant__"`), &status)).To(Succeed())
			Expect(status).To(Equal(customerStatus("__future_variant__")))
			Expect(status.IsKnown()).To(BeFalse())
		})

		It("recognises documented values", func() {
			Expect(customerStatusActive.IsKnown()).To(BeTrue())
		})
	})

	Describe("unknown field tolerance", func() {
		It("ignores keys it does not know", func() {
			var plain, extended customer
			Expect(json.Unmarshal([]byte(customerJSON), &plain)).To(Succeed())
			Expect(json.Unmarshal([]byte(`{"id":"cus_123","object":"customer","email":"jenny@example.com","balance":0,"future_field":{"nested":[1,2,3]}}`), &extended)).To(Succeed())
			Expect(extended).To(Equal(plain))
		})
	})

	Describe("Expandable", func() {
		It("decodes a bare id", func() {
			var e stripe.Expandable[bankCard]
			Expect(json.Unmarshal([]byte(`"card_1"`), &e)).To(Succeed())
			Expect(e.ID).To(Equal("card_1"))
			Expect(e.IsExpanded()).To(BeFalse())
		})

		It("decodes an expanded object and keeps its id", func() {
			var e stripe.Expandable[bankCard]
			Expect(json.Unmarshal([]byte(`{"id":"card_1","object":"card","last4":"4242"}`), &e)).To(Succeed())
			Expect(e.IsExpanded()).To(BeTrue())
			Expect(e.ID).To(Equal("card_1"))
			Expect(e.Object.Last4).To(Equal("4242"))
		})

		It("validates an expanded object", func() {
			var e stripe.Expandable[charge]
			Expect(json.Unmarshal([]byte(`{"id":"ch_1"}`), &e)).To(MatchError(ContainSubstring("missing required field amount")))
			Expect(json.Unmarshal([]byte(`{"id":"ch_1","amount":500}`), &e)).To(Succeed())
			Expect(*e.Object.Amount).To(Equal(int64(500)))
		})

		It("rejects other JSON kinds", func() {
			var e stripe.Expandable[bankCard]
			Expect(json.Unmarshal([]byte(`42`), &e)).NotTo(Succeed())
		})

		It("encodes in the form it was built", func() {
			id, err := json.Marshal(stripe.ExpandableID[bankCard]("card_1"))
			Expect(err).NotTo(HaveOccurred())
			Expect(id).To(MatchJSON(`"card_1"`))

			obj, err := json.Marshal(stripe.ExpandableObject("card_1", &bankCard{ID: "card_1", Object: "card", Last4: "1881"}))
			Expect(err).NotTo(HaveOccurred())
			Expect(obj).To(MatchJSON(`{"id":"card_1","object":"card","last4":"1881"}`))

			empty, err := json.Marshal(stripe.Expandable[bankCard]{})
			Expect(err).NotTo(HaveOccurred())
			Expect(empty).To(MatchJSON(`null`))
		})
	})

	Describe("DecodeUnion", func() {
		It("selects the variant named by the discriminator", func() {
			u, err := stripe.DecodeUnion([]byte(`{"type":"card","card":{"last4":"4242"}}`), "type", paymentMethodVariants)
			Expect(err).NotTo(HaveOccurred())
			Expect(u.Tag).To(Equal("card"))
			Expect(u.Value).To(BeAssignableToTypeOf(&cardDetails{}))
			Expect(u.Value.(*cardDetails).Card.Last4).To(Equal("4242"))
		})

		It("keeps unknown variants as raw JSON", func() {
			data := []byte(`{"type":"crypto","crypto":{"network":"eth"}}`)
			u, err := stripe.DecodeUnion(data, "type", paymentMethodVariants)
			Expect(err).NotTo(HaveOccurred())
			Expect(u.Tag).To(Equal("crypto"))
			Expect(u.Value).To(BeNil())

			out, err := json.Marshal(u)
			Expect(err).NotTo(HaveOccurred())
			Expect(out).To(MatchJSON(data))
		})

		It("requires the discriminator", func() {
			_, err := stripe.DecodeUnion([]byte(`{"card":{}}`), "type", paymentMethodVariants)
			Expect(err).To(HaveOccurred())
		})

		It("reports a variant that does not decode", func() {
			_, err := stripe.DecodeUnion([]byte(`{"type":"sepa_debit","sepa_debit":"DE"}`), "type", paymentMethodVariants)
			Expect(err).To(HaveOccurred())
		})
	})
})
