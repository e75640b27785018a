package domain

import "fmt"

// Table identifies one of the mirrored remote tables.
type Table string

const (
	TableSatellites      Table = "satellites"
	TableDebris          Table = "debris"
	TableCollisionEvents Table = "collision_events"
	TableAlerts          Table = "alerts"
	TableManeuvers       Table = "maneuvers"
)

// Tables returns the fixed set of mirrored tables, in sync order.
func Tables() []Table {
	return []Table{
		TableSatellites,
		TableDebris,
		TableCollisionEvents,
		TableAlerts,
		TableManeuvers,
	}
}

// ParseTable validates a table name against the fixed set.
// Unknown names are rejected, never silently created.
func ParseTable(name string) (Table, error) {
	for _, t := range Tables() {
		if string(t) == name {
			return t, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownTable, name)
}
