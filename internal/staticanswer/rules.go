package staticanswer

// DefaultRules is the built-in answer set for the most frequent questions.
// Order matters: the first matching rule wins.
func DefaultRules() []Rule {
	return []Rule{
		{
			Patterns:   []string{`gst.*gold`, `gold.*gst`},
			Answer:     "GST on gold jewellery, coins and bars is 3% of the metal value. Making charges attract a separate 5% GST.",
			Category:   "gst",
			Confidence: 0.85,
		},
		{
			Patterns:   []string{`\b80\s?c\b`},
			Answer:     "Section 80C allows deductions of up to Rs 1,50,000 per year for PPF, ELSS, EPF, life insurance premiums, tuition fees and home loan principal. It is available only under the old tax regime.",
			Category:   "deductions",
			Confidence: 0.9,
		},
		{
			Patterns:   []string{`80\s?ccd\s?\(?1b\)?`, `nps.*deduction`},
			Answer:     "Section 80CCD(1B) gives an additional deduction of up to Rs 50,000 for your own NPS contribution, over and above the Section 80C limit.",
			Category:   "deductions",
			Confidence: 0.85,
		},
		{
			Patterns:   []string{`itr.*(due|deadline|last date)`, `(due|last) date.*(itr|return)`},
			Answer:     "For individuals not requiring an audit, the ITR due date is normally 31 July following the end of the financial year. Belated returns can be filed until 31 December with a late fee.",
			Category:   "itr",
			Confidence: 0.8,
		},
		{
			Patterns:   []string{`ltcg`, `long[- ]term capital gain`},
			Answer:     "LTCG on listed equity and equity mutual funds is taxed at 12.5% above an annual exemption of Rs 1.25 lakh (Section 112A). Other long-term gains are generally taxed at 12.5% without indexation.",
			Category:   "capital_gains",
			Confidence: 0.8,
		},
		{
			Patterns:   []string{`stcg`, `short[- ]term capital gain`},
			Answer:     "STCG on listed equity and equity mutual funds is taxed at 20% (Section 111A). Short-term gains on other assets are added to your income and taxed at slab rates.",
			Category:   "capital_gains",
			Confidence: 0.8,
		},
		{
			Patterns:   []string{`advance tax`},
			Answer:     "Advance tax is due when your estimated tax liability exceeds Rs 10,000. Instalments are due by 15 June (15%), 15 September (45%), 15 December (75%) and 15 March (100%).",
			Category:   "advance_tax",
			Confidence: 0.8,
		},
		{
			Patterns:   []string{`\btds\b`},
			Answer:     "TDS is tax deducted at source by the payer. It is credited against your final liability; check Form 26AS or the AIS to confirm deductions before filing your return.",
			Category:   "tds",
			Confidence: 0.75,
		},
		{
			Patterns:   []string{`gst registration`, `register.*gst`},
			Answer:     "GST registration is mandatory once aggregate turnover exceeds Rs 40 lakh for goods (Rs 20 lakh for services), with lower limits in special category states.",
			Category:   "gst",
			Confidence: 0.75,
		},
		{
			Patterns:   []string{`new regime`, `old regime`, `which (tax )?regime`},
			Answer:     "The new tax regime has lower slab rates but disallows most deductions such as 80C and HRA. The old regime suits you if your eligible deductions are large.",
			Category:   "income_tax",
			Confidence: 0.7,
		},
	}
}
