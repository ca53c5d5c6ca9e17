package fingerprint

import "fmt"

// MissingComponentError is returned when a required characteristics group is absent
type MissingComponentError struct {
	Component string
}

func (e MissingComponentError) Error() string {
	return fmt.Sprintf("missing required fingerprint component: %s", e.Component)
}
