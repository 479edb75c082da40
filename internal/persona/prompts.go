package persona

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Transform selects how much of the source photo a persona edit may change.
type Transform string

const (
	TransformGlobal         Transform = "global"
	TransformOutfitsBG      Transform = "outfits_bg"
	TransformBackgroundOnly Transform = "background_only"
)

// Control selects an optional structure hint derived from the source photo.
type Control string

const (
	ControlNone  Control = "none"
	ControlCanny Control = "canny"
	ControlDepth Control = "depth"
)

// DefaultAvatarPrompt is the storybook hero prompt used when a caller sends
// no theme of their own.
const DefaultAvatarPrompt = "Make this image an illustration of a bustling, magical desert city with glowing towers and golden domes at sunset. A young hero (whose face is this) holding a glowing magic lamp stands beside a flying carpet, with a curious monkey and a princess in a jeweled gown nearby. The atmosphere is warm, mystical, and rich with detail. The hero should resemble the uploaded image of a face and be age appropriate within the context of the illustration, so remove any beard."

const guardPrefix = "Transform everyone in this uploaded group photo while preserving each person's facial features, expressions, body positions, and relative placement. " +
	"Do not add or generate any extra people, only include the individuals originally present in the uploaded image. " +
	"Photorealistic rendering, studio-grade lighting, sharp facial details, lifelike textures, cinematic depth of field. "

const guardTail = " Maintain the original group arrangement and proportions; consistent styling across all subjects; print-ready quality."

var titler = cases.Title(language.English)

// BuildGuardedPrompt wraps a user theme in the face/arrangement guardrails
// every persona edit carries.
func BuildGuardedPrompt(userPrompt, structureHint string) string {
	return guardPrefix + structureHint + strings.TrimSpace(userPrompt) + guardTail
}

// StructureHint returns the text nudge matching a control probe. The probe
// itself only warms the provider; the hint is what steers the edit.
func StructureHint(control Control) string {
	switch control {
	case ControlCanny:
		return " Follow the original composition and edge contours; keep outlines and placements consistent. "
	case ControlDepth:
		return " Preserve subject distances and spatial layout consistent with the original depth structure. "
	default:
		return ""
	}
}

// HeroName canonicalizes a child's name for page headings.
func HeroName(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return "Ella"
	}
	return titler.String(strings.ToLower(name))
}
