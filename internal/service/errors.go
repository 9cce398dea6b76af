package service

import "errors"

var (
	ErrPasswordMismatch   = errors.New("passwords do not match")
	ErrInvalidCredentials = errors.New("email or password is incorrect")
	ErrEmailNotRegistered = errors.New("email is not registered")
	ErrInvalidSubject     = errors.New("token subject is not a user id")
)
