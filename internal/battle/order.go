package battle

import (
	"fmt"

	"wego-server/internal/battle/vector"
)

// Order is a unit's declared intent for the upcoming resolution.
// Nil fields are unset; an order with no fields set does nothing.
type Order struct {
	MoveTarget     *vector.Vector3 `json:"moveTarget,omitempty"`
	MoveSpeed      *float64        `json:"moveSpeed,omitempty"`
	AttackTargetID *UnitID         `json:"attackTargetId,omitempty"`
	WeaponMode     *WeaponMode     `json:"weaponMode,omitempty"`
}

// MoveOrder builds an order that only moves.
func MoveOrder(target vector.Vector3, speed float64) Order {
	return Order{MoveTarget: &target, MoveSpeed: &speed}
}

// AttackOrder builds an order that only attacks.
func AttackOrder(target UnitID, mode WeaponMode) Order {
	return Order{AttackTargetID: &target, WeaponMode: &mode}
}

func (o Order) IsEmpty() bool {
	return o.MoveTarget == nil && o.MoveSpeed == nil && o.AttackTargetID == nil && o.WeaponMode == nil
}

func (o Order) HasMove() bool {
	return o.MoveTarget != nil
}

// HasAttack reports whether both a target and a weapon mode are declared.
func (o Order) HasAttack() bool {
	return o.AttackTargetID != nil && o.WeaponMode != nil
}

// Speed returns the requested fraction of max speed, 1 when unset.
func (o Order) Speed() float64 {
	if o.MoveSpeed == nil {
		return 1
	}
	return *o.MoveSpeed
}

// Merge overlays the set fields of patch onto o.
func (o Order) Merge(patch Order) Order {
	return o.Clone().mergeFields(patch)
}

func (o Order) Clone() Order {
	return Order{}.mergeFields(o)
}

func (o Order) mergeFields(src Order) Order {
	if src.MoveTarget != nil {
		t := *src.MoveTarget
		o.MoveTarget = &t
	}
	if src.MoveSpeed != nil {
		s := *src.MoveSpeed
		o.MoveSpeed = &s
	}
	if src.AttackTargetID != nil {
		id := *src.AttackTargetID
		o.AttackTargetID = &id
	}
	if src.WeaponMode != nil {
		m := *src.WeaponMode
		o.WeaponMode = &m
	}
	return o
}

// validate checks the fields that can be checked without the battle roster.
func (o Order) validate() error {
	if o.MoveTarget != nil && !o.MoveTarget.IsFinite() {
		return fmt.Errorf("move target %s is not finite", *o.MoveTarget)
	}
	if o.MoveTarget != nil && !withinBounds(*o.MoveTarget) {
		return fmt.Errorf("move target %s is outside +/-%g", *o.MoveTarget, float64(MaxCoordinate))
	}
	if o.MoveSpeed != nil {
		s := *o.MoveSpeed
		if !(s >= 0 && s <= 1) {
			return fmt.Errorf("move speed %v must be within [0,1]", s)
		}
	}
	if o.WeaponMode != nil && !o.WeaponMode.IsValid() {
		return fmt.Errorf("unknown weapon mode %q", *o.WeaponMode)
	}
	return nil
}
