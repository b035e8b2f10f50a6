package enums

import "fmt"

// SnapshotDriver selects the backend used to persist cart mirrors.
type SnapshotDriver string

const (
	SnapshotDriverNone  SnapshotDriver = "none"
	SnapshotDriverRedis SnapshotDriver = "redis"
	SnapshotDriverDB    SnapshotDriver = "db"
)

var validSnapshotDrivers = []SnapshotDriver{
	SnapshotDriverNone,
	SnapshotDriverRedis,
	SnapshotDriverDB,
}

func (d SnapshotDriver) String() string {
	return string(d)
}

func (d SnapshotDriver) IsValid() bool {
	for _, candidate := range validSnapshotDrivers {
		if candidate == d {
			return true
		}
	}
	return false
}

func ParseSnapshotDriver(value string) (SnapshotDriver, error) {
	for _, candidate := range validSnapshotDrivers {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid snapshot driver %q", value)
}
