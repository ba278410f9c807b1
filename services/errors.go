package services

import (
	"fmt"

	"github.com/pkg/errors"
)

// ErrNodeUnavailable is returned when no index server node answered the call:
// server not started, network partition, refused connection and so on.
var ErrNodeUnavailable = errors.New("elasticsearch node not available")

// ResponseError is an error answer from the index server.
type ResponseError struct {
	Op     string
	Status int
	Body   string
}

func (e *ResponseError) Error() string {
	return fmt.Sprintf("%s: elasticsearch returned %d: %s", e.Op, e.Status, e.Body)
}

// IsNodeUnavailable reports whether err means the index server could not be reached.
func IsNodeUnavailable(err error) bool {
	return errors.Is(err, ErrNodeUnavailable)
}
