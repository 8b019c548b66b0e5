package valuation

import "strings"

// Damodaran equity risk premiums by country, in percent (NYU Stern, 2024).
// https://pages.stern.nyu.edu/~adamodar/New_Home_Page/datafile/ctryprem.html
var countryEquityRiskPremiums = map[string]float64{
	"United States":  4.46,
	"Canada":         4.23,
	"United Kingdom": 5.01,
	"Germany":        4.23,
	"France":         5.01,
	"Japan":          5.14,
	"China":          5.14,
	"Taiwan":         5.01,
	"Korea":          4.87,
	"India":          7.08,
	"Brazil":         7.47,
	"Australia":      4.23,
	"Singapore":      4.23,
	"Hong Kong":      5.01,
	"Netherlands":    4.23,
	"Switzerland":    4.23,
	"Sweden":         4.23,
	"Norway":         4.23,
	"Denmark":        4.23,
	"Finland":        4.59,
	"Ireland":        5.01,
	"Israel":         6.30,
	"Mexico":         6.69,
	"South Africa":   8.13,
	"Russia":         8.13,
	"Turkey":         10.06,
	"Argentina":      13.94,
	"Indonesia":      6.69,
	"Malaysia":       5.78,
	"Thailand":       6.30,
	"Philippines":    6.69,
	"Vietnam":        8.13,
}

// Long-term GDP growth estimates by country/region, in percent. Terminal
// growth should not exceed these.
var countryGDPGrowth = map[string]float64{
	"United States":  2.5,
	"Canada":         2.0,
	"United Kingdom": 1.5,
	"Germany":        1.5,
	"France":         1.5,
	"Japan":          1.0,
	"China":          4.0,
	"Taiwan":         2.5,
	"Korea":          2.5,
	"India":          5.0,
	"Brazil":         2.5,
	"Australia":      2.5,
	"Singapore":      2.5,
	"Hong Kong":      2.5,
	"Netherlands":    1.5,
	"Switzerland":    1.5,
	"Sweden":         2.0,
	"Norway":         2.0,
	"Denmark":        2.0,
	"Finland":        1.5,
	"Ireland":        2.5,
	"Israel":         3.0,
	"Mexico":         2.5,
	"Indonesia":      4.5,
	"Malaysia":       4.0,
	"Thailand":       3.5,
	"Philippines":    5.0,
	"Vietnam":        5.5,
	"Developed":      2.0,
	"Emerging":       4.5,
}

// Annual churn benchmarks by industry segment.
var industryChurnRates = map[string]float64{
	"streaming": 0.05,
	"fintech":   0.10,
	"saas_b2b":  0.05,
	"saas_b2c":  0.07,
	"ecommerce": 0.25,
	"telecom":   0.15,
	"gaming":    0.20,
	"insurance": 0.08,
	"banking":   0.06,
	"default":   0.10,
}

var tickerIndustryMap = map[string]string{
	// Streaming
	"NFLX": "streaming",
	"DIS":  "streaming",
	"SPOT": "streaming",
	"PARA": "streaming",
	"WBD":  "streaming",
	// Fintech
	"SOFI": "fintech",
	"HOOD": "fintech",
	"SQ":   "fintech",
	"PYPL": "fintech",
	"AFRM": "fintech",
	"UPST": "fintech",
	// SaaS B2B
	"CRM":  "saas_b2b",
	"NOW":  "saas_b2b",
	"WDAY": "saas_b2b",
	"ZM":   "saas_b2b",
	"DDOG": "saas_b2b",
	"SNOW": "saas_b2b",
	// SaaS B2C
	"MTCH": "saas_b2c",
	"DUOL": "saas_b2c",
	// E-commerce
	"SHOP": "ecommerce",
	"ETSY": "ecommerce",
	"CHWY": "ecommerce",
	// Telecom
	"T":    "telecom",
	"VZ":   "telecom",
	"TMUS": "telecom",
	// Gaming
	"RBLX": "gaming",
	"TTWO": "gaming",
	"EA":   "gaming",
	// Insurance
	"LMND": "insurance",
	"ROOT": "insurance",
}

// EquityRiskPremium returns the country's equity risk premium in percent.
// Lookup is exact first, then case-insensitive, then the United States value.
func EquityRiskPremium(country string) float64 {
	return lookupCountry(countryEquityRiskPremiums, country)
}

// LongTermGrowthRate returns the country's long-term GDP growth estimate in
// percent, with the same fallback chain as EquityRiskPremium.
func LongTermGrowthRate(country string) float64 {
	return lookupCountry(countryGDPGrowth, country)
}

func lookupCountry(table map[string]float64, country string) float64 {
	if v, ok := table[country]; ok {
		return v
	}
	lower := strings.ToLower(country)
	for key, v := range table {
		if strings.ToLower(key) == lower {
			return v
		}
	}
	return table["United States"]
}

// IndustryForTicker maps a ticker to its industry segment, or "default".
func IndustryForTicker(ticker string) string {
	if industry, ok := tickerIndustryMap[strings.ToUpper(ticker)]; ok {
		return industry
	}
	return "default"
}

// ChurnBenchmark returns the annual churn benchmark for the ticker's
// industry segment.
func ChurnBenchmark(ticker string) float64 {
	return industryChurnRates[IndustryForTicker(ticker)]
}
