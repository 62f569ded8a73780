package domain

type Address struct {
	ID           int64  `json:"id"`
	FullName     string `json:"full_name"`
	Phone        string `json:"phone"`
	AddressLine1 string `json:"address_line1"`
	AddressLine2 string `json:"address_line2,omitempty"`
	City         string `json:"city"`
	State        string `json:"state"`
	StateCode    string `json:"state_code"`
	Pincode      string `json:"pincode"`
	IsDefault    bool   `json:"is_default"`
}

type PincodeDetails struct {
	City      string `json:"city"`
	State     string `json:"state"`
	StateCode string `json:"state_code"`
}
