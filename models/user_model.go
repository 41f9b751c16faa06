package models

type User struct {
	ID           string `json:"id"`
	Username     string `json:"username"`
	PasswordHash string `json:"password"`
}

// SafeUser is the client-facing view of a user. The password hash never
// leaves the persistence layer through this type.
type SafeUser struct {
	ID       string `json:"id"`
	Username string `json:"username"`
}

func (u User) Safe() SafeUser {
	return SafeUser{
		ID:       u.ID,
		Username: u.Username,
	}
}

type Token struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

type RegisterForm struct {
	Username string `json:"username"`
	Password string `json:"password"`
}
