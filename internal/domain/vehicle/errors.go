package vehicle

import "errors"

var (
	ErrVehicleNotFound       = errors.New("vehicle not found")
	ErrVehicleAlreadyExists  = errors.New("vehicle with this license plate already exists")
	ErrDriverAlreadyAssigned = errors.New("driver is already assigned to another vehicle")
	ErrInvalidStatus         = errors.New("invalid vehicle status")
)
