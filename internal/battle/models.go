package battle

import (
	"math"
	"sort"

	"wego-server/internal/battle/vector"
)

type (
	BattleID    string
	UnitID      string
	CommanderID string
	PlayerID    string
)

type ShipType string

const (
	ShipTypeFighter ShipType = "FIGHTER"
	ShipTypeFrigate ShipType = "FRIGATE"
)

func (s ShipType) IsValid() bool {
	switch s {
	case ShipTypeFighter, ShipTypeFrigate:
		return true
	}
	return false
}

type WeaponMode string

const (
	WeaponModeLaserEnergy  WeaponMode = "LASER_ENERGY"
	WeaponModeMissiles     WeaponMode = "MISSILES"
	WeaponModePointDefense WeaponMode = "POINT_DEFENSE"
)

func (m WeaponMode) IsValid() bool {
	switch m {
	case WeaponModeLaserEnergy, WeaponModeMissiles, WeaponModePointDefense:
		return true
	}
	return false
}

// Battlefield limits. Rosters and move targets inside them cannot overflow
// a resolution step.
const (
	MaxCoordinate = 1e9
	MaxUnitSpeed  = 1e6
)

type TurnPhase string

const (
	TurnPhasePlanning  TurnPhase = "PLANNING"
	TurnPhaseAnimation TurnPhase = "ANIMATION"
)

// Unit is one combatant in a battle.
type Unit struct {
	ID           UnitID         `json:"id"`
	CommanderID  CommanderID    `json:"commanderId"`
	ControlledBy *PlayerID      `json:"controlledBy"`
	ShipType     ShipType       `json:"shipType"`
	Position     vector.Vector3 `json:"position"`
	Velocity     vector.Vector3 `json:"velocity"`
	Rotation     vector.Vector3 `json:"rotation"`
	MaxSpeed     float64        `json:"maxSpeed"`
	Acceleration float64        `json:"acceleration"`
	Health       float64        `json:"health"`
	Shields      float64        `json:"shields"`
	Order        *Order         `json:"order,omitempty"`
}

// IsAI reports whether no player controls the unit.
func (u Unit) IsAI() bool {
	return u.ControlledBy == nil
}

func (u Unit) Alive() bool {
	return u.Health > 0
}

// Clone returns a copy that shares no pointers with u.
func (u Unit) Clone() Unit {
	c := u
	if u.ControlledBy != nil {
		p := *u.ControlledBy
		c.ControlledBy = &p
	}
	if u.Order != nil {
		o := u.Order.Clone()
		c.Order = &o
	}
	return c
}

// BattleState is a snapshot of one engagement.
type BattleState struct {
	ID                   BattleID        `json:"id"`
	AttackingCommanderID CommanderID     `json:"attackingCommanderId"`
	DefendingCommanderID CommanderID     `json:"defendingCommanderId"`
	CurrentTurn          int             `json:"currentTurn"`
	TurnPhase            TurnPhase       `json:"turnPhase"`
	TimeRemaining        float64         `json:"timeRemaining"`
	Units                map[UnitID]Unit `json:"units"`
	Ended                bool            `json:"ended"`
	EndReason            string          `json:"endReason,omitempty"`
}

// SortedUnitIDs returns the unit ids in lexical order.
func (s BattleState) SortedUnitIDs() []UnitID {
	return sortedIDs(s.Units)
}

// Survivors counts live units per commander.
func (s BattleState) Survivors() map[CommanderID]int {
	return countSurvivors(s.Units, s.AttackingCommanderID, s.DefendingCommanderID)
}

func cloneUnits(units map[UnitID]Unit) map[UnitID]Unit {
	out := make(map[UnitID]Unit, len(units))
	for id, u := range units {
		out[id] = u.Clone()
	}
	return out
}

func sortedIDs(units map[UnitID]Unit) []UnitID {
	ids := make([]UnitID, 0, len(units))
	for id := range units {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

func countSurvivors(units map[UnitID]Unit, commanders ...CommanderID) map[CommanderID]int {
	counts := make(map[CommanderID]int, len(commanders))
	for _, c := range commanders {
		counts[c] = 0
	}
	for _, u := range units {
		if u.Alive() {
			counts[u.CommanderID]++
		}
	}
	return counts
}

func withinBounds(v vector.Vector3) bool {
	return math.Abs(v.X) <= MaxCoordinate && math.Abs(v.Y) <= MaxCoordinate && math.Abs(v.Z) <= MaxCoordinate
}
