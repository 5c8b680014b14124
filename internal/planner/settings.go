package planner

// DefaultLogoRotation turns the center logo sideways.
const DefaultLogoRotation = 90.0

// Settings is the single per-scope settings record. LogoURL is nil when no
// logo has been chosen.
type Settings struct {
	LogoURL      *string `json:"logoUrl"`
	LogoRotation float64 `json:"logoRotation"`
}

func DefaultSettings() Settings {
	return Settings{LogoRotation: DefaultLogoRotation}
}
