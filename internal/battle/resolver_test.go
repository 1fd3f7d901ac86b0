package battle

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wego-server/internal/battle/vector"
)

func unitsOf(us ...Unit) map[UnitID]Unit {
	m := make(map[UnitID]Unit, len(us))
	for _, u := range us {
		m[u.ID] = u
	}
	return m
}

func withOrder(u Unit, o Order) Unit {
	u.Order = &o
	return u
}

func TestResolveMoveExactStep(t *testing.T) {
	units := unitsOf(
		withOrder(fighter("unit1", attacker, vector.New(0, 0, -5)), MoveOrder(vector.New(0, 0, -3), 1)),
		fighter("unit2", defender, vector.New(0, 0, 5)),
	)

	res, err := Resolve(units, DefaultWeapons)
	require.NoError(t, err)

	u1 := res.Units["unit1"]
	assert.Equal(t, vector.New(0, 0, -3), u1.Position)
	assert.Equal(t, vector.New(0, 0, 2), u1.Velocity)
	assert.Nil(t, u1.Order)
	assert.InDelta(t, 0.0, u1.Rotation.Y, 1e-12)
}

func TestResolveMoveIsOneVelocityStep(t *testing.T) {
	// target is 10 away, max speed 2 at half throttle: one step of 1
	units := unitsOf(withOrder(fighter("unit1", attacker, vector.New(0, 0, 0)), MoveOrder(vector.New(10, 0, 0), 0.5)))

	res, err := Resolve(units, DefaultWeapons)
	require.NoError(t, err)

	u := res.Units["unit1"]
	assert.Equal(t, vector.New(1, 0, 0), u.Velocity)
	assert.Equal(t, vector.New(1, 0, 0), u.Position)
	assert.InDelta(t, math.Pi/2, u.Rotation.Y, 1e-12)
}

func TestResolveMoveOvershootsShortTargets(t *testing.T) {
	units := unitsOf(withOrder(fighter("unit1", attacker, vector.New(0, 0, 0)), MoveOrder(vector.New(0, 0, 1), 1)))

	res, err := Resolve(units, DefaultWeapons)
	require.NoError(t, err)
	assert.Equal(t, vector.New(0, 0, 2), res.Units["unit1"].Position)
}

func TestResolveZeroDistanceMove(t *testing.T) {
	start := vector.New(4, 0, 4)
	u := fighter("unit1", attacker, start)
	u.Velocity = vector.New(1, 1, 1)
	units := unitsOf(withOrder(u, MoveOrder(start, 1)))

	res, err := Resolve(units, DefaultWeapons)
	require.NoError(t, err)

	got := res.Units["unit1"]
	assert.Equal(t, vector.Zero, got.Velocity)
	assert.Equal(t, start, got.Position)
	assert.Nil(t, got.Order)
}

func TestResolveUnitWithoutMoveOrderStops(t *testing.T) {
	u := fighter("unit1", attacker, vector.New(1, 2, 3))
	u.Velocity = vector.New(0, 0, 2)
	units := unitsOf(u)

	res, err := Resolve(units, DefaultWeapons)
	require.NoError(t, err)

	assert.Equal(t, vector.Zero, res.Units["unit1"].Velocity)
	assert.Equal(t, vector.New(1, 2, 3), res.Units["unit1"].Position)
}

func TestResolveDoesNotMutateInput(t *testing.T) {
	units := unitsOf(
		withOrder(fighter("unit1", attacker, vector.New(0, 0, -5)), MoveOrder(vector.New(0, 0, 0), 1).Merge(AttackOrder("unit2", WeaponModeLaserEnergy))),
		fighter("unit2", defender, vector.New(0, 0, 5)),
	)

	_, err := Resolve(units, DefaultWeapons)
	require.NoError(t, err)

	assert.Equal(t, vector.New(0, 0, -5), units["unit1"].Position)
	assert.NotNil(t, units["unit1"].Order)
	assert.Equal(t, 50.0, units["unit2"].Shields)
}

func TestResolveShieldsAbsorbBeforeHealth(t *testing.T) {
	target := fighter("unit2", defender, vector.New(0, 0, 5))
	target.Shields = 10
	units := unitsOf(
		withOrder(fighter("unit1", attacker, vector.New(0, 0, -5)), AttackOrder("unit2", WeaponModeLaserEnergy)),
		target,
	)

	res, err := Resolve(units, DefaultWeapons)
	require.NoError(t, err)

	hit := res.Units["unit2"]
	assert.Equal(t, 0.0, hit.Shields)
	assert.Equal(t, 90.0, hit.Health)
	require.Len(t, res.Attacks, 1)
	assert.Equal(t, 10.0, res.Attacks[0].ShieldDamage)
	assert.Equal(t, 10.0, res.Attacks[0].HullDamage)
}

func TestResolveAttacksUsePreTurnPositions(t *testing.T) {
	// unit2 flies out of laser range this turn but is still hit
	units := unitsOf(
		withOrder(fighter("unit1", attacker, vector.New(0, 0, 0)), AttackOrder("unit2", WeaponModeLaserEnergy)),
		withOrder(fighter("unit2", defender, vector.New(0, 0, 29)), MoveOrder(vector.New(0, 0, 93), 1)),
	)

	res, err := Resolve(units, DefaultWeapons)
	require.NoError(t, err)

	assert.Equal(t, 30.0, res.Units["unit2"].Shields)
	assert.Equal(t, vector.New(0, 0, 31), res.Units["unit2"].Position)
}

func TestResolveOutOfRange(t *testing.T) {
	units := unitsOf(
		withOrder(fighter("unit1", attacker, vector.New(0, 0, 0)), AttackOrder("unit2", WeaponModePointDefense)),
		fighter("unit2", defender, vector.New(0, 0, 50)),
	)

	res, err := Resolve(units, DefaultWeapons)
	require.NoError(t, err)

	require.Len(t, res.Attacks, 1)
	assert.True(t, res.Attacks[0].OutOfRange)
	assert.Equal(t, 50.0, res.Units["unit2"].Shields)
}

func TestResolvePointDefenseHalvesMissiles(t *testing.T) {
	pd := Order{WeaponMode: ptr(WeaponModePointDefense)}
	units := unitsOf(
		withOrder(fighter("unit1", attacker, vector.New(0, 0, 0)), AttackOrder("unit2", WeaponModeMissiles)),
		withOrder(fighter("unit2", defender, vector.New(0, 0, 40)), pd),
	)

	res, err := Resolve(units, DefaultWeapons)
	require.NoError(t, err)
	assert.Equal(t, 50.0-17.5, res.Units["unit2"].Shields)
}

func TestResolveMutualKillIsSimultaneous(t *testing.T) {
	a := withOrder(fighter("unit1", attacker, vector.New(0, 0, 0)), AttackOrder("unit2", WeaponModeLaserEnergy))
	b := withOrder(fighter("unit2", defender, vector.New(0, 0, 5)), AttackOrder("unit1", WeaponModeLaserEnergy))
	a.Health, a.Shields = 5, 0
	b.Health, b.Shields = 5, 0

	res, err := Resolve(unitsOf(a, b), DefaultWeapons)
	require.NoError(t, err)

	assert.Empty(t, res.Units)
	assert.Equal(t, []UnitID{"unit1", "unit2"}, res.Destroyed)
	assert.Len(t, res.Attacks, 2)
}

func TestResolveFocusFireAppliesInAttackerOrder(t *testing.T) {
	target := fighter("target", defender, vector.New(0, 0, 0))
	target.Shields = 25
	target.Health = 100

	units := unitsOf(
		withOrder(fighter("b-wing", attacker, vector.New(0, 0, 5)), AttackOrder("target", WeaponModeLaserEnergy)),
		withOrder(fighter("a-wing", attacker, vector.New(0, 0, -5)), AttackOrder("target", WeaponModeLaserEnergy)),
		target,
	)

	res, err := Resolve(units, DefaultWeapons)
	require.NoError(t, err)

	require.Len(t, res.Attacks, 2)
	assert.Equal(t, UnitID("a-wing"), res.Attacks[0].AttackerID)
	assert.Equal(t, 20.0, res.Attacks[0].ShieldDamage)
	assert.Equal(t, 5.0, res.Attacks[1].ShieldDamage)
	assert.Equal(t, 15.0, res.Attacks[1].HullDamage)
	assert.Equal(t, 85.0, res.Units["target"].Health)
}

func TestResolveDanglingTargetIsIgnored(t *testing.T) {
	units := unitsOf(
		withOrder(fighter("unit1", attacker, vector.New(0, 0, -5)),
			MoveOrder(vector.New(0, 0, -3), 1).Merge(AttackOrder("ghost", WeaponModeMissiles))),
		withOrder(fighter("unit2", defender, vector.New(0, 0, 5)), AttackOrder("unit1", WeaponModeLaserEnergy)),
	)

	res, err := Resolve(units, DefaultWeapons)
	require.NoError(t, err)

	assert.Equal(t, map[UnitID]UnitID{"unit1": "ghost"}, res.Dangling)
	assert.Equal(t, vector.New(0, 0, -3), res.Units["unit1"].Position)
	assert.Nil(t, res.Units["unit1"].Order)
	assert.Equal(t, 30.0, res.Units["unit1"].Shields)
}

func TestResolveUnknownWeaponProfileIsSkipped(t *testing.T) {
	table := StaticWeaponTable{WeaponModeLaserEnergy: DefaultWeapons[WeaponModeLaserEnergy]}
	units := unitsOf(
		withOrder(fighter("unit1", attacker, vector.New(0, 0, 0)), AttackOrder("unit2", WeaponModeMissiles)),
		fighter("unit2", defender, vector.New(0, 0, 5)),
	)

	res, err := Resolve(units, table)
	require.NoError(t, err)
	assert.Empty(t, res.Attacks)
	assert.Equal(t, 50.0, res.Units["unit2"].Shields)
}

func TestResolveRejectsOverflow(t *testing.T) {
	u := fighter("unit1", attacker, vector.New(1e308, 0, 0))
	u.MaxSpeed = 1e308
	units := unitsOf(withOrder(u, MoveOrder(vector.New(1.7e308, 0, 0), 1)))

	_, err := Resolve(units, DefaultWeapons)
	assert.ErrorIs(t, err, ErrNonFiniteResult)
}
