package api

import "storyshare/internal/domain"

// Response envelopes used by the story API. Every endpoint answers
// with {error, message, ...}.

type listResponse struct {
	Error     bool           `json:"error"`
	Message   string         `json:"message"`
	ListStory []domain.Story `json:"listStory"`
}

type detailResponse struct {
	Error   bool          `json:"error"`
	Message string        `json:"message"`
	Story   *domain.Story `json:"story"`
}

type loginResponse struct {
	Error       bool                `json:"error"`
	Message     string              `json:"message"`
	LoginResult *domain.Credentials `json:"loginResult"`
}

type basicResponse struct {
	Error   bool   `json:"error"`
	Message string `json:"message"`
}

type registerRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type unsubscribeRequest struct {
	Endpoint string `json:"endpoint"`
}
