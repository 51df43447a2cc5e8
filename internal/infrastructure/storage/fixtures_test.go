package storage_test

import (
	"time"

	"NewsScanner/internal/domain"
)

func sampleArticle(url string, accepted bool) domain.Article {
	verdict := domain.Verdict{}
	if accepted {
		verdict = domain.Verdict{
			Subject:    "comando vermelho",
			Action:     "tiroteio",
			Accepted:   true,
			AcceptedBy: "comando vermelho - tiroteio",
			Gangs:      []string{"comando vermelho"},
		}
	}
	return domain.Article{
		ID:              "id-" + url,
		URL:             url,
		Title:           "Operação no Rio",
		Body:            "Texto da matéria",
		Newspaper:       "g1",
		Keyword:         "tiroteio",
		PublicationDate: "01-02-2024",
		AcquisitionDate: "02-02-2024",
		Verdict:         verdict,
		AcquiredAt:      time.Date(2024, 2, 2, 10, 0, 0, 0, time.UTC),
	}
}
