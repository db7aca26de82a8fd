package location

import "errors"

var (
	ErrFixNotFound      = errors.New("location fix not found")
	ErrFixAlreadyExists = errors.New("location fix already exists")
)
