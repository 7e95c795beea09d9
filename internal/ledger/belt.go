// Package ledger computes points totals, belt progress and leaderboards over activity records.
//
// Every function is pure: results depend only on the supplied activities and reference time.
package ledger

import (
	"fmt"
	"strings"
)

// PromotionThreshold is the number of points within one calendar year that makes an athlete
// eligible for the next belt.
const PromotionThreshold = 200

// Belt is one of the five ordered BJJ ranks.
type Belt uint8

const (
	White Belt = iota
	Blue
	Purple
	Brown
	Black
)

type beltInfo struct {
	key       string
	label     string
	next      Belt
	hasNext   bool
	threshold int
}

var beltTable = [...]beltInfo{
	White:  {key: "white", label: "Weißgurt", next: Blue, hasNext: true, threshold: PromotionThreshold},
	Blue:   {key: "blue", label: "Blaugurt", next: Purple, hasNext: true, threshold: PromotionThreshold},
	Purple: {key: "purple", label: "Lilagurt", next: Brown, hasNext: true, threshold: PromotionThreshold},
	Brown:  {key: "brown", label: "Braungurt", next: Black, hasNext: true, threshold: PromotionThreshold},
	Black:  {key: "black", label: "Schwarzgurt"},
}

// Belts returns all ranks in ascending order.
func Belts() []Belt {
	return []Belt{White, Blue, Purple, Brown, Black}
}

func (b Belt) info() beltInfo {
	if int(b) >= len(beltTable) {
		return beltTable[White]
	}
	return beltTable[b]
}

// String returns the storage key ("white", "blue", ...).
func (b Belt) String() string { return b.info().key }

// Label returns the display name of the belt.
func (b Belt) Label() string { return b.info().label }

// Next returns the successor rank. The second value is false for black.
func (b Belt) Next() (Belt, bool) {
	info := b.info()
	return info.next, info.hasNext
}

// Threshold returns the points needed for promotion, or 0 when there is no successor.
func (b Belt) Threshold() int { return b.info().threshold }

// ParseBelt resolves a storage key. Matching ignores case and surrounding whitespace.
func ParseBelt(value string) (Belt, bool) {
	normalized := strings.ToLower(strings.TrimSpace(value))
	for i, info := range beltTable {
		if info.key == normalized {
			return Belt(i), true
		}
	}
	return White, false
}

// BeltOrWhite resolves a stored value for display, falling back to white.
func BeltOrWhite(value string) Belt {
	belt, _ := ParseBelt(value)
	return belt
}

// MarshalText encodes the belt as its storage key.
func (b Belt) MarshalText() ([]byte, error) {
	return []byte(b.String()), nil
}

// UnmarshalText rejects unknown keys.
func (b *Belt) UnmarshalText(text []byte) error {
	parsed, ok := ParseBelt(string(text))
	if !ok {
		return fmt.Errorf("unknown belt %q", string(text))
	}
	*b = parsed
	return nil
}
