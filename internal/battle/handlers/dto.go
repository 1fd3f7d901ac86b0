package handlers

import (
	"wego-server/internal/battle"
	"wego-server/internal/battle/vector"
)

// UnitRequest seeds one unit of a new battle. An empty id is generated.
type UnitRequest struct {
	ID           string          `json:"id"`
	CommanderID  string          `json:"commanderId" validate:"required"`
	ControlledBy *string         `json:"controlledBy"`
	ShipType     string          `json:"shipType" validate:"required,oneof=FIGHTER FRIGATE"`
	Position     vector.Vector3  `json:"position"`
	Velocity     *vector.Vector3 `json:"velocity"`
	Rotation     *vector.Vector3 `json:"rotation"`
	MaxSpeed     float64         `json:"maxSpeed" validate:"gt=0"`
	Acceleration float64         `json:"acceleration" validate:"gt=0"`
	Health       float64         `json:"health" validate:"gt=0"`
	Shields      float64         `json:"shields" validate:"gte=0"`
}

type CreateBattleRequest struct {
	GameID               *int          `json:"gameId"`
	AttackingCommanderID string        `json:"attackingCommanderId" validate:"required"`
	DefendingCommanderID string        `json:"defendingCommanderId" validate:"required,nefield=AttackingCommanderID"`
	Units                []UnitRequest `json:"units" validate:"required,min=2,dive"`
}

// OrderRequest carries one unit's order fields alongside the unit id.
type OrderRequest struct {
	UnitID string `json:"unitId" validate:"required"`
	battle.Order
}

type RetreatRequest struct {
	UnitID string `json:"unitId" validate:"required"`
}

type EndBattleRequest struct {
	Reason string `json:"reason" validate:"max=200"`
}

func (r CreateBattleRequest) toInput() battle.CreateInput {
	units := make([]battle.Unit, len(r.Units))
	for i, u := range r.Units {
		unit := battle.Unit{
			ID:           battle.UnitID(u.ID),
			CommanderID:  battle.CommanderID(u.CommanderID),
			ShipType:     battle.ShipType(u.ShipType),
			Position:     u.Position,
			MaxSpeed:     u.MaxSpeed,
			Acceleration: u.Acceleration,
			Health:       u.Health,
			Shields:      u.Shields,
		}
		if u.ControlledBy != nil {
			p := battle.PlayerID(*u.ControlledBy)
			unit.ControlledBy = &p
		}
		if u.Velocity != nil {
			unit.Velocity = *u.Velocity
		}
		if u.Rotation != nil {
			unit.Rotation = *u.Rotation
		}
		units[i] = unit
	}

	return battle.CreateInput{
		GameID:               r.GameID,
		AttackingCommanderID: battle.CommanderID(r.AttackingCommanderID),
		DefendingCommanderID: battle.CommanderID(r.DefendingCommanderID),
		Units:                units,
	}
}
