package mqtt

import "fmt"

// Topic prefixes for the controller's MQTT surface.
//
// All light topics use the flat scheme: govee/light/{id}/{leaf}.
// {id} is the inventory light ID, never a raw MAC with colons.
const (
	// TopicPrefixLight is the base for all per-light topics.
	TopicPrefixLight = "govee/light"

	// TopicPrefixSystem is the base for system topics.
	TopicPrefixSystem = "govee/system"
)

// Topics provides builders for the controller's MQTT topics.
// Using these helpers ensures consistent topic naming across the codebase.
//
//	topics := mqtt.Topics{}
//	stateTopic := topics.LightState("desk-lamp")
//	// Returns: "govee/light/desk-lamp/state"
type Topics struct{}

// LightSet returns the topic on which a light accepts intents.
//
// Example: govee/light/desk-lamp/set
func (Topics) LightSet(lightID string) string {
	return fmt.Sprintf("%s/%s/set", TopicPrefixLight, lightID)
}

// LightState returns the topic on which a light's state is published.
// Messages here are retained so new subscribers see the last state.
//
// Example: govee/light/desk-lamp/state
func (Topics) LightState(lightID string) string {
	return fmt.Sprintf("%s/%s/state", TopicPrefixLight, lightID)
}

// LightAvailability returns the topic carrying a light's reachability.
//
// Example: govee/light/desk-lamp/availability
func (Topics) LightAvailability(lightID string) string {
	return fmt.Sprintf("%s/%s/availability", TopicPrefixLight, lightID)
}

// SystemStatus returns the controller status topic. The broker publishes
// the Last Will here if the controller dies without a graceful shutdown.
//
// Example: govee/system/status
func (Topics) SystemStatus() string {
	return fmt.Sprintf("%s/status", TopicPrefixSystem)
}

// SystemHealth returns the topic carrying periodic health summaries
// (slot pool occupancy, scheduler queue depth).
//
// Example: govee/system/health
func (Topics) SystemHealth() string {
	return fmt.Sprintf("%s/health", TopicPrefixSystem)
}

// AllLightSets returns a pattern matching intent messages for any light.
//
// Pattern: govee/light/+/set
func (Topics) AllLightSets() string {
	return fmt.Sprintf("%s/+/set", TopicPrefixLight)
}

// AllLightStates returns a pattern matching state messages for any light.
//
// Pattern: govee/light/+/state
func (Topics) AllLightStates() string {
	return fmt.Sprintf("%s/+/state", TopicPrefixLight)
}

// AllTopics returns a pattern matching every controller topic.
// Use with caution, this receives all traffic.
//
// Pattern: govee/#
func (Topics) AllTopics() string {
	return "govee/#"
}
