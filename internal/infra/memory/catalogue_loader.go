package memory

import (
	"context"

	"trivia-quiz-service/internal/catalogue"
	"trivia-quiz-service/internal/domain"
)

// StaticCatalogueLoader serves a fixed record set (useful for tests/demos).
type StaticCatalogueLoader struct {
	records []catalogue.Record
}

func NewStaticCatalogueLoader(records []catalogue.Record) *StaticCatalogueLoader {
	return &StaticCatalogueLoader{records: records}
}

func (l *StaticCatalogueLoader) LoadAll(_ context.Context) ([]catalogue.Record, error) {
	if len(l.records) == 0 {
		return nil, domain.ErrCatalogueEmpty
	}
	return l.records, nil
}
