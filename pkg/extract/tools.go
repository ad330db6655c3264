package extract

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/japaniel/vocab/pkg/domain"
	"github.com/japaniel/vocab/pkg/llm"
)

const (
	toolListThemes  = "list_themes"
	toolSearchWords = "search_theme_words"
)

// ThemeCatalog is the read side of the store offered to the model as tools.
type ThemeCatalog interface {
	ListThemes(ctx context.Context) ([]domain.Theme, error)
	Search(ctx context.Context, tableName, term string) ([]domain.Record, error)
}

var themeTools = []llm.ToolDefinition{
	{
		Name:        toolListThemes,
		Description: "List every existing vocabulary theme with its table name, description, language pair and word count.",
		Parameters:  map[string]any{},
	},
	{
		Name:        toolSearchWords,
		Description: "Look up the words stored in one theme. Optionally filter by a search term matched against lemma or translation.",
		Parameters: map[string]any{
			"table_name": map[string]any{
				"type":        "string",
				"description": "Table name of the theme, as returned by list_themes.",
			},
			"search_term": map[string]any{
				"type":        "string",
				"description": "Optional substring to filter on.",
			},
		},
		Required: []string{"table_name"},
	},
}

type searchArgs struct {
	TableName  string `json:"table_name"`
	SearchTerm string `json:"search_term"`
}

// runTool executes one tool call. Failures become error results so the
// model can recover instead of the loop aborting.
func runTool(ctx context.Context, catalog ThemeCatalog, call llm.ToolCall) llm.ToolResult {
	content, err := dispatchTool(ctx, catalog, call)
	if err != nil {
		return llm.ToolResult{CallID: call.ID, Content: "error: " + err.Error(), IsError: true}
	}
	return llm.ToolResult{CallID: call.ID, Content: content}
}

func dispatchTool(ctx context.Context, catalog ThemeCatalog, call llm.ToolCall) (string, error) {
	switch call.Name {
	case toolListThemes:
		themes, err := catalog.ListThemes(ctx)
		if err != nil {
			return "", err
		}
		return formatThemes(themes), nil

	case toolSearchWords:
		var args searchArgs
		if len(call.Arguments) > 0 {
			if err := json.Unmarshal(call.Arguments, &args); err != nil {
				return "", fmt.Errorf("invalid arguments: %w", err)
			}
		}
		if strings.TrimSpace(args.TableName) == "" {
			return "", fmt.Errorf("table_name is required")
		}
		records, err := catalog.Search(ctx, args.TableName, args.SearchTerm)
		if err != nil {
			return "", err
		}
		return formatWords(records), nil

	default:
		return "", fmt.Errorf("unknown tool %q", call.Name)
	}
}

func formatThemes(themes []domain.Theme) string {
	if len(themes) == 0 {
		return "No themes exist yet."
	}
	var b strings.Builder
	for _, t := range themes {
		fmt.Fprintf(&b, "%s: %s (%s -> %s, %d words)\n",
			t.TableName, t.Description, t.SourceLang, t.TargetLang, t.WordCount)
	}
	return strings.TrimRight(b.String(), "\n")
}

func formatWords(records []domain.Record) string {
	if len(records) == 0 {
		return "No words found."
	}
	parts := make([]string, 0, len(records))
	for _, r := range records {
		parts = append(parts, fmt.Sprintf("%s (%s)", r.Lemma, r.Translation))
	}
	return fmt.Sprintf("%d words: %s", len(records), strings.Join(parts, ", "))
}
