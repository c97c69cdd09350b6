package numenera

// SkillLevel is the training tier of a skill
type SkillLevel int

// Skill levels
const (
	SkillUntrained   SkillLevel = 0
	SkillTrained     SkillLevel = 1
	SkillSpecialized SkillLevel = 2
)

// Skill is an owned skill item
type Skill struct {
	ID         string     `json:"id" yaml:"id"`
	Name       string     `json:"name" yaml:"name"`
	Stat       Stat       `json:"stat" yaml:"stat"`
	SkillLevel SkillLevel `json:"skillLevel" yaml:"skillLevel"`
	Inability  bool       `json:"inability" yaml:"inability"`
}
