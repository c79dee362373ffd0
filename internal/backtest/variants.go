package backtest

import "github.com/wonny/sigtrade/internal/contracts"

// EnumerateVariants returns models × entry fields × exit fields, model-major
func EnumerateVariants(models []string) []contracts.Variant {
	variants := make([]contracts.Variant, 0, len(models)*len(contracts.PriceFields)*len(contracts.PriceFields))
	for _, model := range models {
		for _, entry := range contracts.PriceFields {
			for _, exit := range contracts.PriceFields {
				variants = append(variants, contracts.Variant{
					Model:     model,
					EntryType: entry,
					ExitType:  exit,
				})
			}
		}
	}
	return variants
}
