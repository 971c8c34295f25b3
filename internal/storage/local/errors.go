package local

import (
	"fmt"

	"github.com/felixgeelhaar/chatty/internal/domain"
)

// ErrNotFound is returned when a document does not exist. It matches
// domain.ErrNotFound.
var ErrNotFound = fmt.Errorf("local document %w", domain.ErrNotFound)
