package app

import (
	"fmt"
	"os"

	"github.com/google/uuid"
)

// instanceID names this gateway process for structured logs, so log lines
// from different replicas can be told apart. Push-relay messages do not
// carry it.
func instanceID() string {
	if v := os.Getenv("LCS_INSTANCE_ID"); v != "" {
		return v
	}
	hostname, err := os.Hostname()
	if err != nil {
		hostname = "unknown"
	}
	return fmt.Sprintf("lcs-gateway-%s-%s", hostname, uuid.New().String()[:8])
}
