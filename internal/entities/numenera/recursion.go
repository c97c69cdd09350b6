package numenera

const (
	// ItemTypeRecursion is the item type of recursions
	ItemTypeRecursion = "recursion"

	// DefaultRecursionImg replaces the host's generic item icon
	DefaultRecursionImg = "icons/svg/circle.svg"

	// KeyNewRecursion is the catalog key of the default recursion name
	KeyNewRecursion = "NUMENERA.item.recursion.newRecursion"
)

// Localizer resolves catalog keys for a locale
type Localizer interface {
	Localize(locale, key string) string
}

// Recursion is a recursion item (Strange character sheets).
// Active, Level and the text fields default to their zero values.
type Recursion struct {
	ID             string `json:"id" yaml:"id"`
	Name           string `json:"name" yaml:"name"`
	Img            string `json:"img" yaml:"img"`
	Active         bool   `json:"active" yaml:"active"`
	Level          int    `json:"level" yaml:"level"`
	Laws           string `json:"laws" yaml:"laws"`
	Race           string `json:"race" yaml:"race"`
	Trait          string `json:"trait" yaml:"trait"`
	Focus          string `json:"focus" yaml:"focus"`
	FocusAbilities string `json:"focusAbilities" yaml:"focusAbilities"`
}

// PrepareData fills the defaults that need more than a zero value: the icon
// and a localized name for unnamed recursions. Only empty values are replaced;
// a blank name or a negative level is kept as given.
func (r *Recursion) PrepareData(loc Localizer, locale string) {
	if r.Img == "" {
		r.Img = DefaultRecursionImg
	}
	if r.Name == "" {
		r.Name = loc.Localize(locale, KeyNewRecursion)
	}
}
