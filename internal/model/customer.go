package model

// Customer identifies a diner by name and phone number.  The triple
// (FirstName, LastName, PhoneNumber) is unique with names compared
// case-insensitively; Email is the only field updated after creation.
//
// Fields:
//  ID          – primary key identifier.
//  FirstName   – given name as first entered.
//  LastName    – family name as first entered.
//  PhoneNumber – canonical "(AAA) BBB-CCCC" form.
//  Email       – contact address, empty when unknown.
type Customer struct {
	ID          uint64 `json:"customer_id"`  // customers.customer_id
	FirstName   string `json:"first_name"`   // customers.first_name
	LastName    string `json:"last_name"`    // customers.last_name
	PhoneNumber string `json:"phone_number"` // customers.phone_number
	Email       string `json:"email"`        // customers.email
}
