package stockaudit

// Classify suggests a discrepancy label from the signed count difference.
// A reviewer's explicit label always wins over the suggestion.
func Classify(discrepancy int64) DiscrepancyType {
	switch {
	case discrepancy == 0:
		return DiscrepancyNone
	case discrepancy < 0:
		return DiscrepancyMissing
	default:
		return DiscrepancySurplus
	}
}
