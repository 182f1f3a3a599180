package domain

import "strings"

// Requirements is the structured analysis of what the user wants built.
// After Normalize every slice is non-nil.
type Requirements struct {
	MainGoal              string   `json:"mainGoal"`
	KeyFeatures           []string `json:"keyFeatures"`
	TechnicalRequirements []string `json:"technicalRequirements"`
	Preferences           []string `json:"preferences"`
	Considerations        []string `json:"considerations"`
	UIComponents          []string `json:"uiComponents"`
	Interactions          []string `json:"interactions"`
	DataVisualization     []string `json:"dataVisualization"`
	ResponsiveLayouts     []string `json:"responsiveLayouts"`
	AccessibilityFeatures []string `json:"accessibilityFeatures"`
}

// NoRequirementsContext is rendered when no analysis exists for the cycle.
const NoRequirementsContext = "No requirements analysis available."

// Normalize replaces missing lists with empty ones.
func (r Requirements) Normalize() Requirements {
	for _, p := range r.lists() {
		if *p.values == nil {
			*p.values = []string{}
		}
	}
	return r
}

type requirementList struct {
	label  string
	values *[]string
}

func (r *Requirements) lists() []requirementList {
	return []requirementList{
		{"Key Features", &r.KeyFeatures},
		{"Technical Requirements", &r.TechnicalRequirements},
		{"Preferences", &r.Preferences},
		{"Considerations", &r.Considerations},
		{"UI Components", &r.UIComponents},
		{"Interactions", &r.Interactions},
		{"Data Visualization", &r.DataVisualization},
		{"Responsive Layouts", &r.ResponsiveLayouts},
		{"Accessibility Features", &r.AccessibilityFeatures},
	}
}

// Context renders the record as prompt text. Empty lists are omitted.
func (r *Requirements) Context() string {
	if r == nil {
		return NoRequirementsContext
	}
	var sb strings.Builder
	sb.WriteString("Main Goal: ")
	sb.WriteString(r.MainGoal)
	sb.WriteString("\n")
	cp := *r
	for _, l := range cp.lists() {
		if len(*l.values) == 0 {
			continue
		}
		sb.WriteString(l.label)
		sb.WriteString(":\n")
		for _, v := range *l.values {
			sb.WriteString("- ")
			sb.WriteString(v)
			sb.WriteString("\n")
		}
	}
	return strings.TrimRight(sb.String(), "\n")
}
