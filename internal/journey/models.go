package journey

import "errors"

type Side string

const (
	SideSource      Side = "source"
	SideDestination Side = "destination"
)

var (
	ErrMissingInput       = errors.New("missing input")
	ErrUnresolvedLocation = errors.New("unresolved location")
	ErrNoRoute            = errors.New("no route")
	ErrTransportFailure   = errors.New("transport failure")
)

// Endpoint is a resolved journey end with the name shown to the user.
type Endpoint struct {
	Latitude    float64 `json:"latitude"`
	Longitude   float64 `json:"longitude"`
	DisplayName string  `json:"display_name"`
}

type Result struct {
	DistanceMeters  float64  `json:"distance_meters"`
	DurationSeconds int64    `json:"duration_seconds"`
	SourceName      string   `json:"source_name"`
	DestinationName string   `json:"destination_name"`
	Source          Endpoint `json:"source"`
	Destination     Endpoint `json:"destination"`
}

// Error is the single user-facing failure of a lookup. Kind is one of the
// sentinel errors above and is what errors.Is matches against.
type Error struct {
	Kind    error
	Side    Side
	Input   string
	Message string
	Err     error
}

func (e *Error) Error() string {
	return e.Message
}

func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}
