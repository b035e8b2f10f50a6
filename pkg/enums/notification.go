package enums

import "fmt"

// NotificationDriver selects how user-visible notifications leave the process.
type NotificationDriver string

const (
	NotificationDriverLog    NotificationDriver = "log"
	NotificationDriverRedis  NotificationDriver = "redis"
	NotificationDriverPubSub NotificationDriver = "pubsub"
)

var validNotificationDrivers = []NotificationDriver{
	NotificationDriverLog,
	NotificationDriverRedis,
	NotificationDriverPubSub,
}

func (d NotificationDriver) String() string {
	return string(d)
}

func (d NotificationDriver) IsValid() bool {
	for _, candidate := range validNotificationDrivers {
		if candidate == d {
			return true
		}
	}
	return false
}

func ParseNotificationDriver(value string) (NotificationDriver, error) {
	for _, candidate := range validNotificationDrivers {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid notification driver %q", value)
}

// NotificationLevel mirrors toast severities shown by the UI.
type NotificationLevel string

const (
	NotificationLevelSuccess NotificationLevel = "success"
	NotificationLevelError   NotificationLevel = "error"
)

func (l NotificationLevel) String() string {
	return string(l)
}
