package analysis

import (
	"fmt"
	"strings"

	"github.com/lithammer/dedent"
)

// Variant selects which instruction the model receives
type Variant string

const (
	// VariantStandard asks for the four core sections
	VariantStandard Variant = "standard"
	// VariantEnhanced adds medications and home remedies
	VariantEnhanced Variant = "enhanced"
)

// Disclaimer must accompany every analysis
const Disclaimer = "Consult with a Doctor before making any decisions."

// Undetermined is the wording for findings the image cannot support
const Undetermined = "Unable to be determined based on the provided image."

// ParseVariant maps a configuration value to a Variant
func ParseVariant(s string) (Variant, error) {
	switch Variant(strings.ToLower(strings.TrimSpace(s))) {
	case "", VariantEnhanced:
		return VariantEnhanced, nil
	case VariantStandard:
		return VariantStandard, nil
	default:
		return "", fmt.Errorf("unknown prompt variant: %s", s)
	}
}

// Sections lists the headings the instruction asks for
func (v Variant) Sections() []string {
	sections := []string{
		"Detailed Analysis",
		"Findings Report",
		"Recommendation and Next Steps",
		"Treatment Suggestions",
	}
	if v == VariantEnhanced {
		sections = append(sections, "Medications & Ointments", "Home-Made Remedies")
	}
	return sections
}

// Instruction builds the system instruction sent with every image
func (v Variant) Instruction() string {
	responsibilities := []string{
		"Detailed Analysis: Thoroughly analyze each image, focusing on identifying any abnormal findings.",
		"Findings Report: Document all observed anomalies or signs of disease. Clearly articulate these findings in a structured form.",
		"Recommendation and Next Steps: Based on your analysis, suggest potential next steps, including further tests or treatments as applicable.",
		"Treatment Suggestions: If appropriate, recommend possible treatment options or interventions.",
	}
	notes := []string{
		"Scope of Response: Only respond if the image pertains to human health issues.",
	}

	if v == VariantEnhanced {
		responsibilities = append(responsibilities,
			"Medications & Ointments: If applicable, suggest medications (with dosage) and ointments based on the diagnosis.",
			"Home-Made Remedies: If suitable, provide safe and effective natural remedies that may help alleviate symptoms.",
		)
		notes = append(notes,
			"Only provide medications if there is a clear diagnosis.",
			"Ensure that your recommendations align with standard medical practices.",
		)
	}

	notes = append(notes, fmt.Sprintf("Clarity of Image: In cases where the image quality impedes clear analysis, note that certain aspects are '%s'", Undetermined))
	if v == VariantEnhanced {
		notes = append(notes, "Home-made remedies should be safe, simple, and widely recognized (e.g., warm compress, turmeric milk, saline rinse).")
	}
	notes = append(notes,
		fmt.Sprintf("Disclaimer: Accompany your analysis with the disclaimer %q", Disclaimer),
		"Your insights are invaluable in guiding clinical decisions. Please proceed with the analysis, adhering to the structured approach outlined above.",
	)

	intro := dedent.Dedent(`
		As a highly skilled medical practitioner specializing in image analysis, you are tasked with
		examining medical images for a renowned hospital. Your expertise is crucial in identifying any
		anomalies, diseases, or health issues that may be present in the image.
	`)

	var sb strings.Builder
	sb.WriteString(strings.TrimSpace(intro))
	sb.WriteString("\n\nYour Responsibilities include:\n\n")
	writeNumbered(&sb, responsibilities)
	sb.WriteString("\nImportant Notes:\n\n")
	writeNumbered(&sb, notes)

	sections := v.Sections()
	fmt.Fprintf(&sb, "\nPlease provide me an output response with these %d headings: %s\n", len(sections), strings.Join(sections, ", "))
	return sb.String()
}

func writeNumbered(sb *strings.Builder, items []string) {
	for i, item := range items {
		fmt.Fprintf(sb, "%d. %s\n", i+1, item)
	}
}
