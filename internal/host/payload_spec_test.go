package host

import (
	"github.com/onsi/ginkgo/v2"
	"github.com/onsi/gomega"
)

var _ = ginkgo.Describe("DecodePayload", func() {
	ginkgo.It("decodes integral numbers as int", func() {
		v, err := DecodePayload("5")
		gomega.Expect(err).NotTo(gomega.HaveOccurred())
		gomega.Expect(v).To(gomega.Equal(5))

		v, err = DecodePayload("-3")
		gomega.Expect(err).NotTo(gomega.HaveOccurred())
		gomega.Expect(v).To(gomega.Equal(-3))
	})

	ginkgo.It("keeps fractional numbers as float64", func() {
		v, err := DecodePayload("2.5")
		gomega.Expect(err).NotTo(gomega.HaveOccurred())
		gomega.Expect(v).To(gomega.Equal(2.5))
	})

	ginkgo.It("normalizes nested objects and arrays", func() {
		v, err := DecodePayload(`{"amount": 250, "ratio": 0.5, "tags": [1, "x"]}`)
		gomega.Expect(err).NotTo(gomega.HaveOccurred())
		gomega.Expect(v).To(gomega.Equal(map[string]any{
			"amount": 250,
			"ratio":  0.5,
			"tags":   []any{1, "x"},
		}))
	})

	ginkgo.It("treats an empty string as a nil payload", func() {
		v, err := DecodePayload("")
		gomega.Expect(err).NotTo(gomega.HaveOccurred())
		gomega.Expect(v).To(gomega.BeNil())
	})

	ginkgo.It("rejects malformed and trailing input", func() {
		_, err := DecodePayload("{not json")
		gomega.Expect(err).To(gomega.MatchError(gomega.ContainSubstring("not valid JSON")))

		_, err = DecodePayload("1 2")
		gomega.Expect(err).To(gomega.MatchError(gomega.ContainSubstring("trailing data")))
	})
})
