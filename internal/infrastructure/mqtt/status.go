package mqtt

import (
	"fmt"
	"time"
)

// StatusTopic is where Hass Core publishes its own availability.
//
// The payload is a small JSON document carrying status ("online"/"offline"),
// the client id, and a timestamp. The offline variant is also configured as
// the Last Will and Testament so brokers announce unexpected disconnects.
const StatusTopic = "hasscore/system/status"

// buildOnlinePayload creates the JSON payload for online status messages.
func buildOnlinePayload(clientID string) string {
	return fmt.Sprintf(
		`{"status":"online","client_id":"%s","timestamp":"%s"}`,
		clientID,
		time.Now().UTC().Format(time.RFC3339),
	)
}

// buildOfflinePayload creates the JSON payload for graceful offline status.
func buildOfflinePayload(clientID string) string {
	return fmt.Sprintf(
		`{"status":"offline","client_id":"%s","reason":"graceful_shutdown","timestamp":"%s"}`,
		clientID,
		time.Now().UTC().Format(time.RFC3339),
	)
}
