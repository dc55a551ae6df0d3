package api

type credentialsRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type userIDResponse struct {
	UserID  string `json:"user_id"`
	Message string `json:"message"`
}

type messageResponse struct {
	Message string `json:"message"`
}

type userResponse struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}
