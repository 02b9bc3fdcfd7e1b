package generation

import (
	"fmt"
	"strings"
)

// buildAnalysisPrompt asks the model to plan the restyling as structured
// JSON. The model is not contractually guaranteed to comply; parsing handles
// that.
func buildAnalysisPrompt(req *Request) string {
	var b strings.Builder

	fmt.Fprintf(&b, `You are an interior designer. The first image is a photo of a %s.
Plan how to restyle it in the "%s" style without touching the room's structure.`,
		req.RoomType, req.Style)

	if req.Description != "" {
		fmt.Fprintf(&b, "\nThe owner adds: %s", req.Description)
	}

	if len(req.Materials) > 0 {
		b.WriteString("\nMaterial reference photos follow, each labeled with the surface it applies to. Use them when planning surface finishes.")
	}

	b.WriteString(`

Respond with a single JSON object, no prose around it:
{
  "changes": ["one entry per surface or furniture group describing what changes"],
  "style": "the style you resolved to",
  "estimatedMaterials": ["materials needed to realize the plan"]
}`)

	return b.String()
}

// buildSynthesisPrompt instructs the image model to apply the stage-1 plan
// while preserving the room's geometry.
func buildSynthesisPrompt(req *Request, analysis *AnalysisResult) string {
	var b strings.Builder

	fmt.Fprintf(&b, `Transform the first photo of this %s into the "%s" style.

Hard constraints, never violate them:
- Keep the room geometry exactly as photographed: walls, ceiling height, proportions.
- Keep the camera angle and perspective identical.
- Keep every window and door in its current position and size.

Apply these changes photorealistically:`, req.RoomType, analysis.Style)

	for _, change := range analysis.Changes {
		fmt.Fprintf(&b, "\n- %s", change)
	}

	b.WriteString("\n\nReplace floor, wall and ceiling finishes and the furniture accordingly.")

	if len(req.Materials) > 0 {
		b.WriteString(" Match each labeled material reference photo on the surface it is labeled for.")
	}

	b.WriteString("\nReturn the transformed photo as an image.")

	return b.String()
}

// materialMarker is the short text part that precedes each material photo in
// the model request, naming the surface it belongs to.
func materialMarker(pos MaterialPosition) string {
	return fmt.Sprintf("Material reference for the %s:", pos)
}
