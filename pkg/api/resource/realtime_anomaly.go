package resource

type RealtimeAnomalyResource struct {
	BankID string      `json:"bankId"`
	Data   interface{} `json:"data"`
}

func NewRealtimeAnomaly(bankID string, data interface{}) *RealtimeAnomalyResource {
	return &RealtimeAnomalyResource{
		BankID: bankID,
		Data:   data,
	}
}
