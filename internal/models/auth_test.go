package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRegisterResponse_Tokens(t *testing.T) {
	resp := &RegisterResponse{
		Username:     "alan",
		Role:         "USER",
		Token:        "T",
		RefreshToken: "R",
		ExpiresIn:    3600,
		Name:         "Alan",
		Email:        "alan@example.com",
	}

	tokens := resp.Tokens()
	assert.Equal(t, "T", tokens.Token)
	assert.Equal(t, "R", tokens.RefreshToken)
	assert.Equal(t, int64(3600), tokens.ExpiresIn)
}

func TestNewProvisionalUser_DefaultsMissingFields(t *testing.T) {
	user := NewProvisionalUser(&RegisterResponse{
		Username: "u",
		Role:     "USER",
		Token:    "T",
		Name:     "A",
		Email:    "a@x.com",
	})

	assert.Equal(t, "A", user.Name)
	assert.Equal(t, "", user.Surname)
	assert.Equal(t, "a@x.com", user.Email)
	assert.Equal(t, Gender(""), user.Gender)
	assert.Equal(t, 0.0, user.Height)
	assert.Equal(t, 0.0, user.Weight)
}
