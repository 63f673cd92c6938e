package instance

import (
	"os"
	"strings"
)

// GetID identifies the running process in logs. It prefers
// DMS_INSTANCE_ID, then the platform-provided DYNO or HOSTNAME, and finally
// "<service>-0".
func GetID(service string) string {
	for _, key := range []string{"DMS_INSTANCE_ID", "DYNO", "HOSTNAME"} {
		if id := strings.TrimSpace(os.Getenv(key)); id != "" {
			return id
		}
	}
	if service == "" {
		service = "dms"
	}
	return service + "-0"
}
