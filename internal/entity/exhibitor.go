package entity

// Exhibitor is a company record extracted from an exhibitor listing.
type Exhibitor struct {
	Name    string  `json:"name"`
	City    *string `json:"city,omitempty"`
	Country string  `json:"country"`
	Website *string `json:"website,omitempty"`
	Email   *string `json:"email,omitempty"`
}

// Contact is a person found for an exhibitor through one of the enrichment channels.
type Contact struct {
	CompanyName string  `json:"company_name"`
	FullName    string  `json:"full_name"`
	Position    string  `json:"position"`
	Email       *string `json:"email,omitempty"`
	Source      string  `json:"source"`
}

// StringValue dereferences optional columns for tabular output.
func StringValue(value *string) string {
	if value == nil {
		return ""
	}
	return *value
}
