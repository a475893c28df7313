package models

// LoginRequest represents the body sent to the HR service login endpoint
type LoginRequest struct {
	Username string `json:"username" form:"username"`
	Password string `json:"password" form:"password"`
}

// LoginResponse represents the HR service reply to a successful login
type LoginResponse struct {
	AccessToken string `json:"access_token"`
	User        *User  `json:"user"`
}

// ErrorResponse is the body the HR service returns on failure
type ErrorResponse struct {
	Msg string `json:"msg"`
}
