package battle

import (
	"math"

	"wego-server/internal/battle/vector"
)

// autopilotStandoff is the fraction of laser range AI units close to.
const autopilotStandoff = 0.5

// PlanAutopilot returns fresh orders for every AI controlled unit: close on
// the nearest enemy and fire lasers at it. Distance ties go to the lower
// unit id so the plan is deterministic.
func PlanAutopilot(units map[UnitID]Unit, weapons WeaponTable) map[UnitID]Order {
	laser, ok := weapons.Profile(WeaponModeLaserEnergy)
	if !ok {
		return nil
	}

	ids := sortedIDs(units)
	orders := make(map[UnitID]Order)

	for _, id := range ids {
		u := units[id]
		if !u.IsAI() || !u.Alive() {
			continue
		}

		targetID, dist, found := nearestEnemy(u, ids, units)
		if !found {
			continue
		}
		target := units[targetID]

		order := AttackOrder(targetID, WeaponModeLaserEnergy)
		standoff := laser.Range * autopilotStandoff
		if laser.Range <= 0 || dist > standoff {
			dir, ok := vector.Normalize(target.Position.Sub(u.Position))
			if ok {
				dest := target.Position.Sub(dir.Scale(standoff))
				speed := 1.0
				order.MoveTarget = &dest
				order.MoveSpeed = &speed
			}
		}
		orders[id] = order
	}
	return orders
}

func nearestEnemy(u Unit, ids []UnitID, units map[UnitID]Unit) (UnitID, float64, bool) {
	best := UnitID("")
	bestDist := math.Inf(1)
	for _, id := range ids {
		other := units[id]
		if other.CommanderID == u.CommanderID || !other.Alive() {
			continue
		}
		d := vector.Distance(u.Position, other.Position)
		if d < bestDist {
			best, bestDist = id, d
		}
	}
	return best, bestDist, best != ""
}
