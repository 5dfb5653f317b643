// Package instance names the running process in logs.
package instance

import "os"

var lookups = []string{"STOREFRONT_INSTANCE_ID", "DYNO", "HOSTNAME"}

// ID returns the first configured instance name, then the OS hostname,
// then "local".
func ID() string {
	for _, key := range lookups {
		if v := os.Getenv(key); v != "" {
			return v
		}
	}
	if host, err := os.Hostname(); err == nil && host != "" {
		return host
	}
	return "local"
}
