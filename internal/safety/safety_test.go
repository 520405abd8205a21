package safety_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/san-kum/cellsim/internal/safety"
)

var _ = Describe("Assess", func() {
	Context("when every value is within limits", func() {
		It("is safe with an empty, non-nil reason list", func() {
			v := safety.Assess(4.2, 35.0, 0.02, 25)
			Expect(v.Safe).To(BeTrue())
			Expect(v.Reasons).NotTo(BeNil())
			Expect(v.Reasons).To(BeEmpty())
			Expect(v.Triggered).To(BeEmpty())
		})
	})

	DescribeTable("single violations",
		func(finalV, maxT, anode, ambient float64, rule safety.Rule, reason string) {
			v := safety.Assess(finalV, maxT, anode, ambient)
			Expect(v.Safe).To(BeFalse())
			Expect(v.Reasons).To(Equal([]string{reason}))
			Expect(v.Triggered).To(Equal([]safety.Rule{rule}))
		},
		Entry("thermal", 4.2, 55.0, 0.02, 25.0, safety.RuleThermal, "Thermal Violation: 55.0°C (Limit: 50°C)."),
		Entry("sub-zero ambient", 4.2, 40.0, 0.02, -2.0, safety.RuleSubZero, "Sub-zero hazard: High risk of lithium plating."),
		Entry("plating", 4.2, 35.0, 0.003, 25.0, safety.RulePlating, "Plating Risk: Anode Potential at 3.0 mV."),
		Entry("negative anode potential", 4.2, 35.0, -0.0124, 25.0, safety.RulePlating, "Plating Risk: Anode Potential at -12.4 mV."),
		Entry("overvoltage", 5.5, 35.0, 0.02, 25.0, safety.RuleOvervoltage, "Overvoltage: 5.50V (Limit: 5.0V)."),
	)

	DescribeTable("strict comparisons at the limits",
		func(finalV, maxT, anode, ambient float64) {
			Expect(safety.Assess(finalV, maxT, anode, ambient).Safe).To(BeTrue())
		},
		Entry("max temperature exactly 50 °C", 4.2, 50.0, 0.02, 25.0),
		Entry("ambient exactly 0 °C", 4.2, 35.0, 0.02, 0.0),
		Entry("anode potential exactly 5 mV", 4.2, 35.0, 0.005, 25.0),
		Entry("final voltage exactly 5.0 V", 5.0, 35.0, 0.02, 25.0),
	)

	Context("when several rules fire", func() {
		It("reports thermal before overvoltage", func() {
			v := safety.Assess(5.5, 55.0, 0.02, 25)
			Expect(v.Safe).To(BeFalse())
			Expect(v.Reasons).To(Equal([]string{
				"Thermal Violation: 55.0°C (Limit: 50°C).",
				"Overvoltage: 5.50V (Limit: 5.0V).",
			}))
		})

		It("reports all four in fixed order", func() {
			v := safety.Assess(5.2, 61.24, 0.001, -5)
			Expect(v.Triggered).To(Equal(safety.Rules()))
			Expect(v.Reasons).To(HaveLen(4))
			Expect(v.Reasons[0]).To(HavePrefix("Thermal Violation: 61.2°C"))
			Expect(v.Reasons[1]).To(Equal("Sub-zero hazard: High risk of lithium plating."))
			Expect(v.Reasons[2]).To(Equal("Plating Risk: Anode Potential at 1.0 mV."))
			Expect(v.Reasons[3]).To(Equal("Overvoltage: 5.20V (Limit: 5.0V)."))
			Expect(v.Has(safety.RuleSubZero)).To(BeTrue())
		})
	})

	It("is idempotent", func() {
		first := safety.Assess(5.1, 52.0, 0.004, -1)
		second := safety.Assess(5.1, 52.0, 0.004, -1)
		Expect(second).To(Equal(first))
	})
})
