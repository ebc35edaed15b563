package staticanswer_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/angeloszaimis/advisor-gateway/internal/staticanswer"
)

var _ = Describe("Matcher", func() {
	Describe("New", func() {
		DescribeTable("rejects malformed rules",
			func(rule staticanswer.Rule) {
				m, err := staticanswer.New([]staticanswer.Rule{rule})
				Expect(err).To(HaveOccurred())
				Expect(m).To(BeNil())
			},
			Entry("no patterns", staticanswer.Rule{Answer: "a", Confidence: 0.5}),
			Entry("empty pattern", staticanswer.Rule{Patterns: []string{"  "}, Answer: "a", Confidence: 0.5}),
			Entry("empty answer", staticanswer.Rule{Patterns: []string{"gst"}, Confidence: 0.5}),
			Entry("confidence above one", staticanswer.Rule{Patterns: []string{"gst"}, Answer: "a", Confidence: 1.5}),
			Entry("negative confidence", staticanswer.Rule{Patterns: []string{"gst"}, Answer: "a", Confidence: -0.1}),
			Entry("invalid pattern", staticanswer.Rule{Patterns: []string{"gst("}, Answer: "a", Confidence: 0.5}),
		)

		It("should accept the built-in rules", func() {
			m, err := staticanswer.New(staticanswer.DefaultRules())
			Expect(err).NotTo(HaveOccurred())
			Expect(m.Len()).To(Equal(len(staticanswer.DefaultRules())))
		})

		It("should accept an empty rule list", func() {
			m, err := staticanswer.New(nil)
			Expect(err).NotTo(HaveOccurred())
			_, ok := m.Match("anything")
			Expect(ok).To(BeFalse())
		})
	})

	Describe("Match", func() {
		var m *staticanswer.Matcher

		BeforeEach(func() {
			var err error
			m, err = staticanswer.New([]staticanswer.Rule{
				{Patterns: []string{"tax"}, Answer: "A", Category: "generic", Confidence: 0.5},
				{Patterns: []string{"income tax slab"}, Answer: "B", Category: "slabs", Confidence: 0.95},
				{Patterns: []string{`^hello$`}, Answer: "C", Category: "greeting", Confidence: 0.1},
			})
			Expect(err).NotTo(HaveOccurred())
		})

		It("should return the first matching rule even when a later one fits better", func() {
			rule, ok := m.Match("What is the income tax slab for 2025?")
			Expect(ok).To(BeTrue())
			Expect(rule.Answer).To(Equal("A"))
			Expect(rule.Category).To(Equal("generic"))
		})

		It("should match case-insensitively", func() {
			rule, ok := m.Match("INCOME TAX")
			Expect(ok).To(BeTrue())
			Expect(rule.Answer).To(Equal("A"))
		})

		It("should honour regular expression anchors", func() {
			_, ok := m.Match("hello there")
			Expect(ok).To(BeFalse())

			rule, ok := m.Match("Hello")
			Expect(ok).To(BeTrue())
			Expect(rule.Answer).To(Equal("C"))
		})

		It("should return false when nothing matches", func() {
			_, ok := m.Match("How do I open a demat account?")
			Expect(ok).To(BeFalse())
		})

		It("should not expose internal pattern slices", func() {
			rule, _ := m.Match("tax")
			rule.Patterns[0] = "mutated"

			again, _ := m.Match("tax")
			Expect(again.Patterns[0]).To(Equal("tax"))
		})
	})

	Describe("DefaultRules", func() {
		var m *staticanswer.Matcher

		BeforeEach(func() {
			var err error
			m, err = staticanswer.New(staticanswer.DefaultRules())
			Expect(err).NotTo(HaveOccurred())
		})

		DescribeTable("routes common questions",
			func(query, category string, confidence float64) {
				rule, ok := m.Match(query)
				Expect(ok).To(BeTrue())
				Expect(rule.Category).To(Equal(category))
				Expect(rule.Confidence).To(Equal(confidence))
			},
			Entry("gst on gold", "What is GST on gold?", "gst", 0.85),
			Entry("80C", "How much can I claim under 80C?", "deductions", 0.9),
			Entry("80CCD(1B)", "Is 80CCD(1B) over and above?", "deductions", 0.85),
			Entry("ITR deadline", "When is the ITR due date this year?", "itr", 0.8),
			Entry("LTCG", "How is LTCG on mutual funds taxed?", "capital_gains", 0.8),
			Entry("advance tax", "Do I need to pay advance tax?", "advance_tax", 0.8),
		)
	})
})
