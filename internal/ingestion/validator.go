package ingestion

import (
	"fmt"
	"sort"

	"github.com/icancar/fleet-management-sub000/internal/usecase/tracking"
	"github.com/icancar/fleet-management-sub000/pkg/utils"
)

// ValidationError represents a validation error
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error [%s]: %s", e.Field, e.Message)
}

// ValidateLocationMessage rejects a message before it is queued so malformed
// payloads never occupy a worker.
func ValidateLocationMessage(msg *tracking.IngestRequest) error {
	if msg.DeviceID == "" {
		return &ValidationError{Field: "device_id", Message: "device_id is required"}
	}

	if err := utils.ValidateStruct(msg); err != nil {
		fields := utils.FieldErrors(err)
		if len(fields) == 0 {
			return &ValidationError{Field: "payload", Message: err.Error()}
		}

		names := make([]string, 0, len(fields))
		for name := range fields {
			names = append(names, name)
		}
		sort.Strings(names)
		return &ValidationError{Field: names[0], Message: "failed on " + fields[names[0]]}
	}

	return nil
}
