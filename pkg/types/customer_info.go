package types

// CustomerInfo carries the shipping contact captured at checkout. Stored as
// jsonb on the order so the engine never joins against buyer profile tables.
type CustomerInfo struct {
	Name       string `json:"name"`
	Phone      string `json:"phone,omitempty"`
	Email      string `json:"email,omitempty"`
	Address    string `json:"address"`
	City       string `json:"city,omitempty"`
	PostalCode string `json:"postal_code,omitempty"`
}
