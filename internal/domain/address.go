package domain

const DefaultCountry = "USA"

type Address struct {
	Street  string `json:"street" gorm:"size:255"`
	City    string `json:"city" gorm:"size:128"`
	State   string `json:"state" gorm:"size:64"`
	ZipCode string `json:"zipCode" gorm:"size:32"`
	Country string `json:"country" gorm:"size:64"`
}

func (a Address) IsZero() bool {
	return a.Street == "" && a.City == "" && a.State == "" && a.ZipCode == ""
}

// Normalized fills in the default country.
func (a Address) Normalized() Address {
	if a.Country == "" && !a.IsZero() {
		a.Country = DefaultCountry
	}
	return a
}
