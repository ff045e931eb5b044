package enums

import "fmt"

// GenerationPurpose identifies which product flow produced a generation and
// determines the storage namespace its artifact lives under.
type GenerationPurpose string

const (
	GenerationPurposeRedesign  GenerationPurpose = "redesign"
	GenerationPurposeFurniture GenerationPurpose = "furniture"
	GenerationPurposeMagic     GenerationPurpose = "magic"
	GenerationPurposeColors    GenerationPurpose = "colors"
)

var validGenerationPurposes = []GenerationPurpose{
	GenerationPurposeRedesign,
	GenerationPurposeFurniture,
	GenerationPurposeMagic,
	GenerationPurposeColors,
}

// String returns the literal string for the purpose.
func (p GenerationPurpose) String() string {
	return string(p)
}

// IsValid reports whether the purpose is known.
func (p GenerationPurpose) IsValid() bool {
	for _, candidate := range validGenerationPurposes {
		if candidate == p {
			return true
		}
	}
	return false
}

// ParseGenerationPurpose converts raw input into a GenerationPurpose.
func ParseGenerationPurpose(value string) (GenerationPurpose, error) {
	for _, candidate := range validGenerationPurposes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid generation purpose %q", value)
}
