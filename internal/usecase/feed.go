package usecase

import (
	"log"
	"strconv"
	"strings"

	"github.com/scentsync/backend/internal/domain"
)

// minusReplacer folds Unicode minus variants into an ASCII hyphen before
// numeric parsing. Spreadsheet exports routinely contain U+2212 where a
// human typed a minus.
var minusReplacer = strings.NewReplacer(
	"−", "-", // minus sign
	"–", "-", // en dash
	"－", "-", // fullwidth hyphen-minus
)

// ParseQuantities turns raw feed rows into a catalog-number-to-quantity map.
// Rows with blank or unparsable fields are skipped, negative counts are
// clamped to zero, and when the same number appears twice the later row wins.
func ParseQuantities(rows []domain.FeedRow) map[float64]int {
	quantities := make(map[float64]int, len(rows))

	for i, row := range rows {
		rawNum := strings.TrimSpace(row.Number)
		rawCount := strings.TrimSpace(row.Count)
		if rawNum == "" || rawCount == "" {
			continue
		}

		rawNum = minusReplacer.Replace(rawNum)
		rawCount = minusReplacer.Replace(rawCount)

		num, err := strconv.ParseFloat(rawNum, 64)
		if err != nil {
			log.Printf("[feed] row %d: cannot parse number %q, skipping", i+1, row.Number)
			continue
		}
		count, err := strconv.Atoi(rawCount)
		if err != nil {
			log.Printf("[feed] row %d: cannot parse count %q, skipping", i+1, row.Count)
			continue
		}
		if count < 0 {
			log.Printf("[feed] row %d: negative count %d clamped to 0", i+1, count)
			count = 0
		}

		quantities[num] = count
	}

	return quantities
}
