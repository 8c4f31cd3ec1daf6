package models

// IdentityKind selects which identity attribute an availability check covers.
type IdentityKind string

const (
	IdentityUsername IdentityKind = "username"
	IdentityEmail    IdentityKind = "email"
)

// AvailabilityResult is the tri-state answer for "can this identity still be
// claimed". Available is nil when the input could not be judged (for example
// a malformed value); Checking mirrors the in-flight flag the UI renders
// during debounced as-you-type checks and is always false in API responses.
type AvailabilityResult struct {
	Available *bool  `json:"available"`
	Message   string `json:"message"`
	Checking  bool   `json:"checking"`
}

// AvailabilityYes builds an available result.
func AvailabilityYes(message string) AvailabilityResult {
	v := true
	return AvailabilityResult{Available: &v, Message: message}
}

// AvailabilityNo builds an unavailable result.
func AvailabilityNo(message string) AvailabilityResult {
	v := false
	return AvailabilityResult{Available: &v, Message: message}
}

// AvailabilityUnknown builds an indeterminate result.
func AvailabilityUnknown() AvailabilityResult {
	return AvailabilityResult{}
}
