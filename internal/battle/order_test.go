package battle

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wego-server/internal/battle/vector"
)

func TestOrderIsEmpty(t *testing.T) {
	assert.True(t, Order{}.IsEmpty())
	assert.False(t, MoveOrder(vector.New(1, 0, 0), 1).IsEmpty())
	assert.False(t, Order{WeaponMode: ptr(WeaponModeMissiles)}.IsEmpty())
}

func TestOrderSpeedDefaultsToFull(t *testing.T) {
	target := vector.New(1, 0, 0)
	assert.Equal(t, 1.0, Order{MoveTarget: &target}.Speed())
	assert.Equal(t, 0.25, MoveOrder(target, 0.25).Speed())
}

func TestOrderHasAttackNeedsTargetAndMode(t *testing.T) {
	assert.False(t, Order{AttackTargetID: ptr(UnitID("unit2"))}.HasAttack())
	assert.False(t, Order{WeaponMode: ptr(WeaponModeLaserEnergy)}.HasAttack())
	assert.True(t, AttackOrder("unit2", WeaponModeLaserEnergy).HasAttack())
}

func TestOrderMergeKeepsUnsetFields(t *testing.T) {
	base := MoveOrder(vector.New(0, 0, -3), 0.5)
	merged := base.Merge(AttackOrder("unit2", WeaponModeMissiles))

	require.NotNil(t, merged.MoveTarget)
	assert.Equal(t, vector.New(0, 0, -3), *merged.MoveTarget)
	assert.Equal(t, 0.5, merged.Speed())
	assert.Equal(t, UnitID("unit2"), *merged.AttackTargetID)
	assert.Equal(t, WeaponModeMissiles, *merged.WeaponMode)

	overridden := merged.Merge(Order{MoveSpeed: ptr(1.0)})
	assert.Equal(t, 1.0, overridden.Speed())
	assert.Equal(t, vector.New(0, 0, -3), *overridden.MoveTarget)
}

func TestOrderMergeDoesNotAlias(t *testing.T) {
	base := MoveOrder(vector.New(1, 1, 1), 1)
	merged := base.Merge(Order{})
	merged.MoveTarget.X = 99

	assert.Equal(t, 1.0, base.MoveTarget.X)
}

func TestOrderValidate(t *testing.T) {
	tests := []struct {
		name    string
		order   Order
		wantErr bool
	}{
		{"empty", Order{}, false},
		{"full speed", MoveOrder(vector.New(1, 2, 3), 1), false},
		{"stop", MoveOrder(vector.New(1, 2, 3), 0), false},
		{"speed above one", MoveOrder(vector.New(1, 2, 3), 1.5), true},
		{"negative speed", MoveOrder(vector.New(1, 2, 3), -0.1), true},
		{"unknown weapon", Order{WeaponMode: ptr(WeaponMode("PHASERS"))}, true},
		{"target at the edge", MoveOrder(vector.New(MaxCoordinate, -MaxCoordinate, 0), 1), false},
		{"target off the map", MoveOrder(vector.New(1.7e308, 0, 0), 1), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.order.validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestOrderJSONOmitsUnsetFields(t *testing.T) {
	data, err := json.Marshal(AttackOrder("unit2", WeaponModeLaserEnergy))
	require.NoError(t, err)
	assert.JSONEq(t, `{"attackTargetId":"unit2","weaponMode":"LASER_ENERGY"}`, string(data))

	var o Order
	require.NoError(t, json.Unmarshal([]byte(`{"moveTarget":[0,0,-3],"moveSpeed":1}`), &o))
	assert.Equal(t, vector.New(0, 0, -3), *o.MoveTarget)
	assert.Nil(t, o.AttackTargetID)
}
