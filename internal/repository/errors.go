package repository

import "errors"

var (
	// ErrProductNotFound is returned when a store item does not exist.
	ErrProductNotFound = errors.New("product not found")
	// ErrInsufficientStock is returned when a conditional stock decrement matches no row.
	ErrInsufficientStock = errors.New("insufficient stock")
	// ErrUserNotFound is returned when a game user does not exist.
	ErrUserNotFound = errors.New("user not found")
	// ErrDuplicateLink is returned when a user is already linked to a present.
	ErrDuplicateLink = errors.New("present already linked to user")
	// ErrNameTaken is returned when a rename collides with an existing user name.
	ErrNameTaken = errors.New("user name already taken")
	// ErrConflict wraps uniqueness violations nobody anticipated.
	ErrConflict = errors.New("unique constraint violated")
	// ErrAlreadyDrawn is returned when the user already drew the lottery today.
	ErrAlreadyDrawn = errors.New("lottery already drawn today")
	// ErrPrizeClaimed is returned when a limited prize was taken by someone else.
	ErrPrizeClaimed = errors.New("prize already claimed")
)
