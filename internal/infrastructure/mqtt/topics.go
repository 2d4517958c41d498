package mqtt

import "strings"

// Topic layout published by the bridge:
//
//	habridge/system/status           bridge online/offline (retained)
//	habridge/state/<domain>/<object> entity state changes (retained)
const (
	topicRoot = "habridge"

	// SystemStatusTopic carries the bridge's own online/offline status.
	SystemStatusTopic = topicRoot + "/system/status"
)

// StateTopic returns the state topic for an entity. The dot in the
// entity ID becomes a topic level, so subscribers can use wildcards
// like habridge/state/light/+.
func StateTopic(entityID string) string {
	domain, object, found := strings.Cut(entityID, ".")
	if !found {
		return topicRoot + "/state/" + entityID
	}
	return topicRoot + "/state/" + domain + "/" + object
}
