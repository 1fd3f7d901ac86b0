package battle

// WeaponProfile holds the combat-balance numbers for one weapon mode.
type WeaponProfile struct {
	Damage float64 `json:"damage"`
	// Range is the maximum firing distance; 0 means unlimited.
	Range float64 `json:"range"`
	// PointDefenseFactor scales damage against a target whose own order
	// this turn is POINT_DEFENSE. 1 leaves damage unchanged.
	PointDefenseFactor float64 `json:"pointDefenseFactor"`
}

// WeaponTable looks up combat-balance numbers.
type WeaponTable interface {
	Profile(mode WeaponMode) (WeaponProfile, bool)
}

type StaticWeaponTable map[WeaponMode]WeaponProfile

func (t StaticWeaponTable) Profile(mode WeaponMode) (WeaponProfile, bool) {
	p, ok := t[mode]
	return p, ok
}

// DefaultWeapons is the stock balance table.
var DefaultWeapons = StaticWeaponTable{
	WeaponModeLaserEnergy:  {Damage: 20, Range: 30, PointDefenseFactor: 1},
	WeaponModeMissiles:     {Damage: 35, Range: 60, PointDefenseFactor: 0.5},
	WeaponModePointDefense: {Damage: 5, Range: 10, PointDefenseFactor: 1},
}

func (p WeaponProfile) inRange(dist float64) bool {
	return p.Range <= 0 || dist <= p.Range
}
