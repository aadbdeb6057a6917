package request

// RegisterRequest is the request body for registering an account
type RegisterRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// ObjectiveRequest is the optional body of POST /game/objective
type ObjectiveRequest struct {
	Name string `json:"name,omitempty"`
}

// StartGameRequest is the optional body of POST /lobby/start
type StartGameRequest struct {
	// Force starts even when nobody has spawned in the lobby
	Force bool `json:"force,omitempty"`
}
