package association

import (
	"errors"
)

// Error codes for remote associations
const (
	ASSOCIATION_SETTINGS_NOT_FOUND = "ASSOCIATION_SETTINGS_NOT_FOUND"
	ASSOCIATION_INVALID_OPTIONS    = "ASSOCIATION_INVALID_OPTIONS"
)

var (
	ErrDuplicateAssociation = errors.New("remote association already declared")
	ErrUnknownRemoteType    = errors.New("unknown remote type")
	ErrNoRemote             = errors.New("remote association has no remote type handle")
)

// SettingsNotFoundError is returned when an association name was never
// declared on the owner type.
type SettingsNotFoundError struct {
	Name string
}

func (e *SettingsNotFoundError) Error() string {
	return "Can't find settings for " + e.Name + " association"
}

// IsSettingsNotFound reports whether err is a *SettingsNotFoundError.
func IsSettingsNotFound(err error) bool {
	var target *SettingsNotFoundError
	return errors.As(err, &target)
}
