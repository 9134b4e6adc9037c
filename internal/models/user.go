package models

type User struct {
	ID       int64   `json:"id" db:"id"`
	Username *string `json:"username" db:"username"`
	Email    *string `json:"email" db:"email"`
}

type UserInput struct {
	Username *string `json:"username"`
	Email    *string `json:"email"`
}
