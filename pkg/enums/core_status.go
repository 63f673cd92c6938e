package enums

import "fmt"

// CoreStatus maps to the core_status_enum enum in Postgres.
type CoreStatus string

const (
	CoreStatusSold     CoreStatus = "sold"
	CoreStatusReturned CoreStatus = "returned"
	CoreStatusCredited CoreStatus = "credited"
)

var validCoreStatuses = []CoreStatus{
	CoreStatusSold,
	CoreStatusReturned,
	CoreStatusCredited,
}

func (s CoreStatus) IsValid() bool {
	for _, candidate := range validCoreStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// ParseCoreStatus converts raw input into CoreStatus.
func ParseCoreStatus(value string) (CoreStatus, error) {
	for _, candidate := range validCoreStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid core status %q", value)
}
