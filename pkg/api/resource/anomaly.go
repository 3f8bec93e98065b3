package resource

import (
	"github.com/anomstream/anomalyd/pkg/model"
)

type AnomalyResource struct {
	TransactionID    string `json:"transactionId"`
	Name             string `json:"name"`
	Address          string `json:"address"`
	City             string `json:"city"`
	State            string `json:"state"`
	Age              int    `json:"age"`
	Transaction      int64  `json:"transaction"`
	BankID           string `json:"bankId"`
	CreatedAt        string `json:"createdAt"`
	CustomEnrichment int64  `json:"customEnrichment"`
	InspectedAt      string `json:"inspectedAt"`
}

type AnomalyListResource struct {
	Members []*AnomalyResource `json:"members"`
}

func NewAnomaly(m *model.AnomalyRecord) (out *AnomalyResource) {
	out = &AnomalyResource{
		TransactionID:    m.TransactionID,
		Name:             m.Name,
		Address:          m.Address,
		City:             m.City,
		State:            m.State,
		Age:              m.Age,
		Transaction:      m.Transaction,
		BankID:           m.BankID,
		CreatedAt:        m.CreatedAt,
		CustomEnrichment: m.CustomEnrichment,
		InspectedAt:      m.InspectedAt,
	}

	return // out
}

// NewAnomalyList keeps the order of the given records, the store
// already returns them newest first.
func NewAnomalyList(m []model.AnomalyRecord) (out *AnomalyListResource) {
	out = &AnomalyListResource{
		Members: make([]*AnomalyResource, 0),
	}

	for i := range m {
		out.Members = append(out.Members, NewAnomaly(&m[i]))
	}

	return // out
}
