package stripe_test

import (
	"encoding/json"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	stripe "github.com/JohnPlummer/jp-go-stripe"
)

var _ = Describe("HealthStatus", func() {
	Describe("JSON Marshaling", func() {
		It("should marshal to JSON correctly", func() {
			health := stripe.HealthStatus{
				Healthy:              true,
				Status:               "closed",
				Requests:             10,
				TotalSuccesses:       8,
				TotalFailures:        2,
				ConsecutiveFailures:  0,
				ConsecutiveSuccesses: 2,
			}

			data, err := json.Marshal(health)
			Expect(err).To(BeNil())
			Expect(data).To(MatchJSON(`{
				"healthy": true,
				"status": "closed",
				"requests": 10,
				"total_successes": 8,
				"total_failures": 2,
				"consecutive_failures": 0,
				"consecutive_successes": 2
			}`))
		})

		It("should unmarshal from JSON correctly", func() {
			jsonData := `{
				"healthy": false,
				"status": "open",
				"requests": 5,
				"total_successes": 0,
				"total_failures": 5,
				"consecutive_failures": 5,
				"consecutive_successes": 0
			}`

			var health stripe.HealthStatus
			err := json.Unmarshal([]byte(jsonData), &health)
			Expect(err).To(BeNil())

			Expect(health.Healthy).To(BeFalse())
			Expect(health.Status).To(Equal("open"))
			Expect(health.Requests).To(Equal(uint32(5)))
			Expect(health.TotalFailures).To(Equal(uint32(5)))
			Expect(health.ConsecutiveFailures).To(Equal(uint32(5)))
		})
	})
})
