package model

import "time"

type User struct {
	UUID         string    `db:"uuid" json:"uuid"`
	Email        string    `db:"email" json:"email"`
	Name         string    `db:"name" json:"name"`
	PasswordHash string    `db:"password_hash" json:"-"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
}

// DisplayFields поля пользователя, которые попадают в access токен
type DisplayFields struct {
	Email string `json:"email,omitempty"`
	Name  string `json:"name,omitempty"`
}

func (u *User) DisplayFields() DisplayFields {
	return DisplayFields{Email: u.Email, Name: u.Name}
}
