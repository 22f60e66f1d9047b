// Package catalogue holds the question records a session samples from.
package catalogue

import (
	"context"
	"math/rand"
	"strings"
)

// Record is one external catalogue entry: an item or monster with its image
// variants, year of introduction, and per-language display names.
type Record struct {
	Vnum       int64             `json:"vnum"`
	IsMonster  bool              `json:"isMonster"`
	ImageName1 string            `json:"imageName1"`
	ImageName2 string            `json:"imageName2,omitempty"`
	Year       int               `json:"year"`
	Names      map[string]string `json:"names"`
}

// Image picks one of the record's image variants, uniformly when two exist.
// The choice is made once at question construction and never resampled.
func (r Record) Image(rnd *rand.Rand) string {
	if r.ImageName2 == "" {
		return r.ImageName1
	}
	if rnd.Intn(2) == 0 {
		return r.ImageName1
	}
	return r.ImageName2
}

// LocalizedNames returns the record's names restricted to langs, cleaned for
// matching.
func (r Record) LocalizedNames(langs []string) map[string]string {
	names := make(map[string]string, len(langs))
	for _, lang := range langs {
		if name, ok := r.Names[lang]; ok {
			names[lang] = CleanName(name)
		}
	}
	return names
}

// CleanName strips the trailing upgrade suffix and normalizes non-breaking
// spaces; the raw game tables carry both and they would break matching.
func CleanName(name string) string {
	name = strings.TrimSuffix(name, "+0")
	name = strings.ReplaceAll(name, " ", " ")
	return strings.TrimSpace(name)
}

// Loader fetches the full record set from a backing store.
type Loader interface {
	LoadAll(ctx context.Context) ([]Record, error)
}

// Catalogue is the immutable record set, loaded once at startup.
type Catalogue struct {
	records []Record
}

func New(records []Record) *Catalogue {
	return &Catalogue{records: records}
}

// Load builds a Catalogue from a loader. The engine cannot run without one,
// so a load failure is fatal to startup.
func Load(ctx context.Context, loader Loader) (*Catalogue, error) {
	records, err := loader.LoadAll(ctx)
	if err != nil {
		return nil, err
	}
	return New(records), nil
}

// Len is the total number of guessable records.
func (c *Catalogue) Len() int {
	return len(c.records)
}

// Sample picks count records uniformly without replacement, optionally
// restricted to records introduced in maxYear or earlier (maxYear <= 0
// disables the filter). Fewer records than requested returns them all; a
// non-positive count returns none.
func (c *Catalogue) Sample(maxYear, count int, rnd *rand.Rand) []Record {
	eligible := make([]Record, 0, len(c.records))
	for _, record := range c.records {
		if maxYear > 0 && record.Year > maxYear {
			continue
		}
		eligible = append(eligible, record)
	}

	rnd.Shuffle(len(eligible), func(i, j int) {
		eligible[i], eligible[j] = eligible[j], eligible[i]
	})
	if count < 0 {
		count = 0
	}
	if count < len(eligible) {
		eligible = eligible[:count]
	}
	return eligible
}
