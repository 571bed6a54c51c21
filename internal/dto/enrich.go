package dto

// EnrichRequest names the exhibitor whose contacts are looked up.
type EnrichRequest struct {
	CompanyName string `json:"company_name"`
	Website     string `json:"website,omitempty"`
}
