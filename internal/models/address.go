package models

type Address struct {
	ID         string  `json:"id"`
	MemberID   string  `json:"member_id"`
	Line1      string  `json:"line_1"`
	Line2      *string `json:"line_2"`
	PostalCode string  `json:"postal_code"`
	City       string  `json:"city"`
	Country    string  `json:"country"`
}

type AddressInput struct {
	MemberID   string `json:"member_id"`
	Line1      string `json:"line_1" valid:"required,length(1|200)"`
	Line2      string `json:"line_2" valid:"length(0|200)"`
	PostalCode string `json:"postal_code" valid:"required,length(2|12)"`
	City       string `json:"city" valid:"required,length(1|100)"`
	Country    string `json:"country" valid:"required,length(2|100)"`
}

func (in *AddressInput) ToAddress() *Address {
	return &Address{
		MemberID:   in.MemberID,
		Line1:      in.Line1,
		Line2:      NullableString(in.Line2),
		PostalCode: in.PostalCode,
		City:       in.City,
		Country:    in.Country,
	}
}
