package ingestion

import (
	"encoding/json"
	"strings"

	"github.com/icancar/fleet-management-sub000/internal/usecase/tracking"
)

// ParseLocationMessage decodes an MQTT location payload. The payload uses the
// same JSON shape as the HTTP ingest endpoint. When device_id is missing it is
// taken from the topic segment matched by the single-level wildcard of
// pattern, so devices may publish to fleet/<device>/location without
// repeating their id.
func ParseLocationMessage(pattern, topic string, payload []byte) (*tracking.IngestRequest, error) {
	var msg tracking.IngestRequest
	if err := json.Unmarshal(payload, &msg); err != nil {
		return nil, &ValidationError{Field: "payload", Message: "payload is not valid JSON"}
	}

	if strings.TrimSpace(msg.DeviceID) == "" {
		msg.DeviceID = DeviceIDFromTopic(pattern, topic)
	}
	return &msg, nil
}

// DeviceIDFromTopic returns the topic level matched by the first "+" in
// pattern, or "" when the topic does not match the pattern.
func DeviceIDFromTopic(pattern, topic string) string {
	patternLevels := strings.Split(pattern, "/")
	topicLevels := strings.Split(topic, "/")

	deviceID := ""
	for i, level := range patternLevels {
		if level == "#" {
			return deviceID
		}
		if i >= len(topicLevels) {
			return ""
		}
		switch {
		case level == "+":
			if deviceID == "" {
				deviceID = topicLevels[i]
			}
		case level != topicLevels[i]:
			return ""
		}
	}
	if len(topicLevels) != len(patternLevels) {
		return ""
	}
	return deviceID
}
