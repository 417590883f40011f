package ui

import "github.com/vanderheijden86/gitgraph/pkg/model"

// AIErrorPresentation is the icon, title, and suggestion shown for one
// analysis failure kind.
type AIErrorPresentation struct {
	Icon       string
	Title      string
	Suggestion string
}

// aiErrorPresentations maps every known failure kind to its presentation.
// Lookups for kinds not in this table fall back to the unknown entry, so a
// newer backend never breaks the panel.
var aiErrorPresentations = map[model.AIErrorKind]AIErrorPresentation{
	model.AIErrDisabled: {
		Icon:       "◇",
		Title:      "Analysis disabled",
		Suggestion: "Enable it under ai.enabled in the configuration file.",
	},
	model.AIErrNoReadableFiles: {
		Icon:       "∅",
		Title:      "Nothing to analyze",
		Suggestion: "This commit contains no readable file changes.",
	},
	model.AIErrExtractionFailed: {
		Icon:       "✗",
		Title:      "Could not read changes",
		Suggestion: "The commit's changes could not be extracted from the repository.",
	},
	model.AIErrAnalysisFailed: {
		Icon:       "✗",
		Title:      "Analysis failed",
		Suggestion: "The analysis run failed. Try again.",
	},
	model.AIErrTimeout: {
		Icon:       "◷",
		Title:      "Analysis timed out",
		Suggestion: "The commit may be too large. Try a smaller selection.",
	},
	model.AIErrServiceUnavailable: {
		Icon:       "⚠",
		Title:      "Service unavailable",
		Suggestion: "The analysis service is unreachable. Check your connection and retry.",
	},
	model.AIErrAuthFailed: {
		Icon:       "⚠",
		Title:      "Authentication failed",
		Suggestion: "Check the analysis service credentials in the configuration file.",
	},
	model.AIErrRateLimited: {
		Icon:       "◷",
		Title:      "Rate limited",
		Suggestion: "Too many analysis requests. Wait a moment and retry.",
	},
	model.AIErrUnknown: {
		Icon:       "?",
		Title:      "Analysis error",
		Suggestion: "An unexpected error occurred. Try again.",
	},
}

// PresentAIError returns the presentation for kind, degrading to the
// unknown entry for unrecognized kinds.
func PresentAIError(kind model.AIErrorKind) AIErrorPresentation {
	if p, ok := aiErrorPresentations[kind]; ok {
		return p
	}
	return aiErrorPresentations[model.AIErrUnknown]
}
