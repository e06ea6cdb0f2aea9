package assets

import (
	"fmt"
	"regexp"
)

// Redis key pattern helpers
//
// Keys and channels are namespaced by instance name so several gamedata
// instances can share one Redis server.
//
// Key pattern: gamedata:{instance_name}:asset:{handle}
// Channel pattern: gamedata:{instance_name}:asset_events

// AssetKey returns the Redis key for an asset hash.
// Pattern: gamedata:{instance_name}:asset:{handle}
func AssetKey(instanceName, handle string) string {
	return fmt.Sprintf("gamedata:%s:asset:%s", instanceName, handle)
}

// AssetIndexKey returns the Redis key of the set holding every stored handle.
// Pattern: gamedata:{instance_name}:assets
func AssetIndexKey(instanceName string) string {
	return fmt.Sprintf("gamedata:%s:assets", instanceName)
}

// AssetEventsChannel returns the Pub/Sub channel announcing newly stored handles.
// Pattern: gamedata:{instance_name}:asset_events
func AssetEventsChannel(instanceName string) string {
	return fmt.Sprintf("gamedata:%s:asset_events", instanceName)
}

// MaxInstanceNameLength bounds the key prefix shared by an instance.
const MaxInstanceNameLength = 63

// InstanceNamePattern: lowercase alphanumeric, hyphens allowed but not at start/end
var InstanceNamePattern = regexp.MustCompile(`^[a-z0-9]([-a-z0-9]*[a-z0-9])?$`)

// ValidateInstanceName checks that name can be embedded in key patterns.
func ValidateInstanceName(name string) error {
	if name == "" {
		return fmt.Errorf("instance name cannot be empty")
	}

	if len(name) > MaxInstanceNameLength {
		return fmt.Errorf("instance name too long: %d characters (max: %d)", len(name), MaxInstanceNameLength)
	}

	if !InstanceNamePattern.MatchString(name) {
		return fmt.Errorf("invalid instance name '%s': must be lowercase alphanumeric with hyphens (not at start/end)", name)
	}

	return nil
}
