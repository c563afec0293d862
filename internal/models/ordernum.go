package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// NewOrderNumber returns ORD-YYYYMMDD-XXXXXXXXXXXX, the suffix being the
// last twelve hex digits of a random UUID.
func NewOrderNumber(at time.Time) string {
	id := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", ""))
	return "ORD-" + at.UTC().Format("20060102") + "-" + id[len(id)-12:]
}
