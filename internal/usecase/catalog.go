package usecase

import (
	"log"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"unicode"

	"github.com/scentsync/backend/internal/domain"
)

// numberPattern matches a run of 1-3 digits with an optional decimal
// fraction. Word-boundary and trailing-digit rules are enforced separately
// in ExtractCatalogNumber; RE2 has no lookahead.
var numberPattern = regexp.MustCompile(`\d{1,3}(?:\.\d+)?`)

// CatalogIndex holds one store's reconcilable catalog, indexed three ways.
// ByNumber joins products against the quantity feed; ByTitle serves
// cross-catalog identity resolution.
type CatalogIndex struct {
	ByID     map[string]*domain.Product
	ByNumber map[float64]*domain.Product
	ByTitle  map[string]*domain.Product
}

// BuildCatalogIndex filters and indexes a fetched catalog. Products whose
// title contains any exclusion substring (case-insensitive) are dropped
// entirely: sample units and bundles are never reconciled. A product whose
// title yields no catalog number stays in ByID and ByTitle but cannot be
// joined against the feed.
func BuildCatalogIndex(products []domain.Product, excludeTitles []string) *CatalogIndex {
	idx := &CatalogIndex{
		ByID:     make(map[string]*domain.Product, len(products)),
		ByNumber: make(map[float64]*domain.Product, len(products)),
		ByTitle:  make(map[string]*domain.Product, len(products)),
	}

	for i := range products {
		p := &products[i]
		if titleExcluded(p.Title, excludeTitles) {
			log.Printf("[catalog] excluding %q (id=%s)", p.Title, p.ID)
			continue
		}

		idx.ByID[p.ID] = p

		titleKey := NormalizeTitle(p.Title)
		if prev, ok := idx.ByTitle[titleKey]; ok {
			// Data-quality concern, not fatal: last write wins.
			log.Printf("[catalog] duplicate title %q (ids %s, %s)", p.Title, prev.ID, p.ID)
		}
		idx.ByTitle[titleKey] = p

		if num, ok := ExtractCatalogNumber(p.Title); ok {
			idx.ByNumber[num] = p
		} else {
			log.Printf("[catalog] no catalog number in %q (id=%s)", p.Title, p.ID)
		}
	}

	return idx
}

// Numbers returns the indexed catalog numbers in ascending order, giving
// runs a deterministic processing order.
func (idx *CatalogIndex) Numbers() []float64 {
	nums := make([]float64, 0, len(idx.ByNumber))
	for n := range idx.ByNumber {
		nums = append(nums, n)
	}
	sort.Float64s(nums)
	return nums
}

// NormalizeTitle produces the key used for case-insensitive title equality.
func NormalizeTitle(title string) string {
	return strings.ToLower(strings.TrimSpace(title))
}

func titleExcluded(title string, excludes []string) bool {
	lower := strings.ToLower(title)
	for _, e := range excludes {
		if e != "" && strings.Contains(lower, strings.ToLower(e)) {
			return true
		}
	}
	return false
}

// ExtractCatalogNumber finds the catalog number embedded in a product title:
// the first run of 1-3 digits with an optional decimal fraction standing on
// its own. A candidate adjacent to further digits is rejected so the leading
// digits of a longer figure in the title (a price like "1 000,00 kr") are
// never mistaken for a catalog number.
func ExtractCatalogNumber(title string) (float64, bool) {
	for _, loc := range numberPattern.FindAllStringIndex(title, -1) {
		if !standaloneNumber(title, loc[0], loc[1]) {
			continue
		}
		num, err := strconv.ParseFloat(title[loc[0]:loc[1]], 64)
		if err != nil {
			continue
		}
		return num, true
	}
	return 0, false
}

// standaloneNumber checks the context around a candidate match: it must sit
// at a word boundary and must not run into more digits, directly or across
// spaces or a decimal/thousands separator.
func standaloneNumber(s string, start, end int) bool {
	if start > 0 {
		prev := rune(s[start-1])
		if isWordRune(prev) {
			return false
		}
		// A separator glued to a preceding digit means the candidate is
		// the tail of a longer figure ("000,⟨00⟩").
		if (prev == '.' || prev == ',') && start > 1 && unicode.IsDigit(rune(s[start-2])) {
			return false
		}
	}

	rest := []rune(s[end:])
	i := 0
	for i < len(rest) && unicode.IsSpace(rest[i]) {
		i++
	}
	if i < len(rest) {
		if unicode.IsDigit(rest[i]) {
			return false
		}
		if (rest[i] == '.' || rest[i] == ',') && i+1 < len(rest) && unicode.IsDigit(rest[i+1]) {
			return false
		}
	}
	return true
}

func isWordRune(r rune) bool {
	return r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r)
}
