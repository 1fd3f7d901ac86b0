package battle

import (
	"errors"
	"fmt"

	"wego-server/internal/battle/vector"
)

var ErrNonFiniteResult = errors.New("resolution produced a non-finite vector")

// AttackOutcome records one attack as it was applied.
type AttackOutcome struct {
	AttackerID   UnitID     `json:"attackerId"`
	TargetID     UnitID     `json:"targetId"`
	WeaponMode   WeaponMode `json:"weaponMode"`
	OutOfRange   bool       `json:"outOfRange,omitempty"`
	ShieldDamage float64    `json:"shieldDamage"`
	HullDamage   float64    `json:"hullDamage"`
}

// Resolution is the outcome of resolving one turn.
type Resolution struct {
	Turn      int             `json:"turn"`
	Units     map[UnitID]Unit `json:"-"`
	Attacks   []AttackOutcome `json:"attacks"`
	Destroyed []UnitID        `json:"destroyed"`
	// Dangling maps attackers to the stale target ids dropped from their orders.
	Dangling map[UnitID]UnitID `json:"dangling,omitempty"`
}

// Resolve computes the next state of every unit from the orders they hold.
// The input map is not modified. Every attack reads the pre-turn snapshot,
// hits are applied in lexical attacker order and destroyed units are removed
// only after all attacks and moves are computed.
func Resolve(units map[UnitID]Unit, weapons WeaponTable) (Resolution, error) {
	ids := sortedIDs(units)
	next := cloneUnits(units)
	res := Resolution{
		Attacks:   []AttackOutcome{},
		Destroyed: []UnitID{},
	}

	for _, id := range ids {
		attacker := units[id]
		if attacker.Order == nil || !attacker.Order.HasAttack() {
			continue
		}
		targetID := *attacker.Order.AttackTargetID
		mode := *attacker.Order.WeaponMode

		target, ok := units[targetID]
		if !ok || !target.Alive() {
			if res.Dangling == nil {
				res.Dangling = make(map[UnitID]UnitID)
			}
			res.Dangling[id] = targetID
			continue
		}

		profile, ok := weapons.Profile(mode)
		if !ok {
			continue
		}

		outcome := AttackOutcome{AttackerID: id, TargetID: targetID, WeaponMode: mode}
		if !profile.inRange(vector.Distance(attacker.Position, target.Position)) {
			outcome.OutOfRange = true
			res.Attacks = append(res.Attacks, outcome)
			continue
		}

		damage := profile.Damage
		if isPointDefending(target) {
			damage *= profile.PointDefenseFactor
		}

		hit := next[targetID]
		outcome.ShieldDamage, outcome.HullDamage = applyDamage(&hit, damage)
		next[targetID] = hit
		res.Attacks = append(res.Attacks, outcome)
	}

	for _, id := range ids {
		pre := units[id]
		u := next[id]
		if pre.Order != nil && pre.Order.HasMove() {
			move(&u, pre, *pre.Order)
		} else {
			u.Velocity = vector.Zero
		}
		u.Order = nil

		if !u.Position.IsFinite() || !u.Velocity.IsFinite() {
			return Resolution{}, fmt.Errorf("unit %s: %w", id, ErrNonFiniteResult)
		}
		next[id] = u
	}

	for _, id := range ids {
		if !next[id].Alive() {
			delete(next, id)
			res.Destroyed = append(res.Destroyed, id)
		}
	}

	res.Units = next
	return res, nil
}

// move advances u by one velocity step toward the order's target, reading
// only the pre-turn state of the same unit.
func move(u *Unit, pre Unit, o Order) {
	d := o.MoveTarget.Sub(pre.Position)
	dir, ok := vector.Normalize(d)
	if !ok {
		u.Velocity = vector.Zero
		return
	}
	u.Velocity = dir.Scale(o.Speed() * pre.MaxSpeed)
	u.Position = pre.Position.Add(u.Velocity)
	u.Rotation = vector.New(pre.Rotation.X, vector.DirectionToAngle(d), pre.Rotation.Z)
}

// applyDamage lets shields absorb first and spills the rest onto health.
func applyDamage(u *Unit, damage float64) (shield, hull float64) {
	if damage <= 0 {
		return 0, 0
	}
	shield = min(u.Shields, damage)
	u.Shields -= shield
	hull = min(u.Health, damage-shield)
	u.Health -= hull
	return shield, hull
}

func isPointDefending(u Unit) bool {
	return u.Order != nil && u.Order.WeaponMode != nil && *u.Order.WeaponMode == WeaponModePointDefense
}
