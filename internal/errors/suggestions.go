package errors

import (
	"errors"
	"fmt"
	"strings"
)

// ErrorSuggestion represents a suggestion for fixing an error
type ErrorSuggestion struct {
	Title       string
	Description string
	Command     string
	Example     string
}

// SuggestionContext provides context for generating suggestions
type SuggestionContext struct {
	// Models lists the model types attached somewhere in the tree.
	Models     []string
	ConfigPath string
}

// Suggest returns fix hints for a ReactorError based on its code.
func Suggest(err error, ctx *SuggestionContext) []ErrorSuggestion {
	if ctx == nil {
		ctx = &SuggestionContext{}
	}

	var re *ReactorError
	if !errors.As(err, &re) {
		return nil
	}

	switch re.Code {
	case ErrCodeMissingModel:
		return missingModelSuggestions(re, ctx)
	case ErrCodeDuplicateModel:
		return []ErrorSuggestion{
			{
				Title:       "Attach the model once",
				Description: "A node holds at most one model of each type; the first attachment is kept",
			},
			{
				Title:       "Use a wrapper type",
				Description: "Two independent instances need two distinct types",
				Example:     "type leftCounter struct{ Counter }",
			},
		}
	case ErrCodeDowncastFailure:
		return []ErrorSuggestion{{
			Title:       "Check the lens source type",
			Description: "The lens was registered against a model of a different type than the one handled",
		}}
	case ErrCodeBuilderPanic:
		return []ErrorSuggestion{{
			Title:       "Fix the binding builder",
			Description: "The builder panicked; the binding keeps its previous children until the next change",
		}}
	case ErrCodeConfigInvalid, ErrCodeThemeInvalid:
		return configSuggestions(re, ctx)
	}

	return nil
}

func missingModelSuggestions(re *ReactorError, ctx *SuggestionContext) []ErrorSuggestion {
	model, _ := re.Context["model"].(string)

	suggestions := []ErrorSuggestion{
		{
			Title:       "Attach the model on an ancestor",
			Description: "A binding only sees models on its own node or its ancestors",
			Example:     fmt.Sprintf("state.Build(cx, &%s{})", strings.TrimPrefix(model, "*")),
		},
		{
			Title:       "Declare the binding after the model",
			Description: "Models must be built before bindings that read them",
		},
	}

	if len(ctx.Models) > 0 {
		suggestions = append(suggestions, ErrorSuggestion{
			Title:       "Available models",
			Description: "These models are currently attached: " + strings.Join(ctx.Models, ", "),
		})
	}

	return suggestions
}

func configSuggestions(re *ReactorError, ctx *SuggestionContext) []ErrorSuggestion {
	suggestions := []ErrorSuggestion{{
		Title:       "Validate configuration",
		Description: "Use the config command to print the effective configuration",
		Command:     "lenskit config",
	}}

	if ctx.ConfigPath != "" {
		suggestions = append(suggestions, ErrorSuggestion{
			Title:       "Check configuration file",
			Description: "Verify the file exists and has valid syntax",
			Command:     "cat " + ctx.ConfigPath,
		})
	}

	msg := strings.ToLower(re.Error())
	if strings.Contains(msg, "yaml") {
		suggestions = append(suggestions, ErrorSuggestion{
			Title:       "Fix YAML syntax",
			Description: "There's a syntax error in your YAML file",
			Example:     "Use proper indentation and avoid tabs",
		})
	}

	if strings.Contains(msg, "selector") {
		suggestions = append(suggestions, ErrorSuggestion{
			Title:       "Simplify the selector",
			Description: "Theme rules accept an element, a class, or element.class",
			Example:     "selector: label.selected",
		})
	}

	return suggestions
}

// FormatSuggestions formats suggestions into a user-friendly string
func FormatSuggestions(title string, suggestions []ErrorSuggestion) string {
	if len(suggestions) == 0 {
		return title
	}

	var output strings.Builder
	output.WriteString(title + "\n\n")
	output.WriteString("Suggestions:\n")

	for i, suggestion := range suggestions {
		output.WriteString(fmt.Sprintf("  %d. %s\n", i+1, suggestion.Title))
		if suggestion.Description != "" {
			output.WriteString(fmt.Sprintf("     %s\n", suggestion.Description))
		}
		if suggestion.Command != "" {
			output.WriteString(fmt.Sprintf("     Run: %s\n", suggestion.Command))
		}
		if suggestion.Example != "" {
			output.WriteString(fmt.Sprintf("     Example: %s\n", suggestion.Example))
		}
		output.WriteString("\n")
	}

	return output.String()
}
