package app

import "anxiety-quiz-bot/internal/domain"

// calmThreshold is the minimum number of A answers for the calm type.
// Only A carries a threshold; B, C and D win on the max-count tie alone.
const calmThreshold = 4

// Classify maps a completed answer set to a result type.
//
// Labels are checked in the fixed order A, B, C, D and the first one whose count equals
// the maximum wins, so ties resolve towards the earlier label. A additionally needs at
// least calmThreshold answers; when it misses that bar evaluation continues with B.
func Classify(answers map[int]string) domain.ResultType {
	counts := make(map[string]int, len(domain.Labels))
	for _, label := range answers {
		counts[label]++
	}

	maxCount := 0
	for _, label := range domain.Labels {
		if counts[label] > maxCount {
			maxCount = counts[label]
		}
	}

	switch {
	case counts["A"] == maxCount && counts["A"] >= calmThreshold:
		return domain.ResultCalm
	case maxCount > 0 && counts["B"] == maxCount:
		return domain.ResultCatastrophizer
	case maxCount > 0 && counts["C"] == maxCount:
		return domain.ResultMindReader
	case maxCount > 0 && counts["D"] == maxCount:
		return domain.ResultPerfectionist
	default:
		return domain.ResultMixed
	}
}
