package production

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/paintworks/backend/internal/domain/shared"
)

// MaxMonthlySequence is the largest sequence that fits the 4 digit batch number
const MaxMonthlySequence = 9999

// FormatBatchNumber renders NNNN-MM-YYYY
func FormatBatchNumber(seq int, period time.Time) string {
	return fmt.Sprintf("%04d-%02d-%04d", seq, int(period.Month()), period.Year())
}

// BatchNumberSuffix returns the -MM-YYYY part shared by every batch of a month
func BatchNumberSuffix(period time.Time) string {
	return fmt.Sprintf("-%02d-%04d", int(period.Month()), period.Year())
}

// ParseBatchSequence extracts the sequence part of a batch number
func ParseBatchSequence(number string) (int, error) {
	parts := strings.Split(number, "-")
	if len(parts) != 3 || len(parts[0]) != 4 || len(parts[1]) != 2 || len(parts[2]) != 4 {
		return 0, shared.NewValidationError("Malformed batch number %q", number)
	}
	seq, err := strconv.Atoi(parts[0])
	if err != nil {
		return 0, shared.NewValidationError("Malformed batch number %q", number)
	}
	return seq, nil
}

// NextBatchNumber returns the number following the latest sequence of the month
func NextBatchNumber(latestSeq int, period time.Time) (string, error) {
	next := latestSeq + 1
	if next > MaxMonthlySequence {
		return "", shared.NewDomainError(shared.CodeBatchNumberExhausted,
			"Batch numbers for "+period.Format("01-2006")+" are exhausted")
	}
	return FormatBatchNumber(next, period), nil
}
