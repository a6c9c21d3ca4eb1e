package models

// Gender is the profile gender enum as the API serializes it
type Gender string

const (
	GenderMale   Gender = "MALE"
	GenderFemale Gender = "FEMALE"
	GenderOther  Gender = "OTHER"
)

// User represents the profile record returned by the API
type User struct {
	Name    string  `json:"name"`
	Surname string  `json:"surname"`
	Email   string  `json:"email"`
	Gender  Gender  `json:"gender,omitempty"`
	Height  float64 `json:"height,omitempty"`
	Weight  float64 `json:"weight,omitempty"`
}

// UpdateUserPayload is a partial profile update. Nil fields are omitted
// from the request body and left unchanged by the server.
type UpdateUserPayload struct {
	Name    *string  `json:"name,omitempty"`
	Surname *string  `json:"surname,omitempty"`
	Email   *string  `json:"email,omitempty"`
	Gender  *Gender  `json:"gender,omitempty"`
	Height  *float64 `json:"height,omitempty"`
	Weight  *float64 `json:"weight,omitempty"`
}
