package roll

// Special results of a natural d20
const (
	SpecialGMIntrusion = "gm_intrusion"
	SpecialDamagePlus1 = "damage_plus_1"
	SpecialDamagePlus2 = "damage_plus_2"
	SpecialMinorEffect = "minor_effect"
	SpecialMajorEffect = "major_effect"
)

const targetNumberPerLevel = 3

// TargetNumber is the d20 result needed to beat a task of the given level
func TargetNumber(taskLevel int) int {
	return max(taskLevel, 0) * targetNumberPerLevel
}

// Resolve decides a natural d20 against a task level. Level 0 tasks always
// succeed; a natural 1 still reports a GM intrusion.
func Resolve(die, taskLevel int) (success bool, special string) {
	success = taskLevel <= 0 || die >= TargetNumber(taskLevel)

	switch die {
	case 1:
		special = SpecialGMIntrusion
	case 17:
		special = SpecialDamagePlus1
	case 18:
		special = SpecialDamagePlus2
	case 19:
		special = SpecialMinorEffect
	case 20:
		special = SpecialMajorEffect
	}

	return success, special
}
