package supervisor

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/sashabaranov/go-openai/jsonschema"

	"github.com/ppiankov/factlens/internal/llm"
)

// Tool names offered to the planning model
const (
	ToolResearch = "research_events"
	ToolReflect  = "reflect"
	ToolFinish   = "finish"
)

// Action is the decoded decision of one planning turn
type Action interface {
	action() string
}

// Research crawls for Question
type Research struct{ Question string }

// Reflect records a thought without acting
type Reflect struct{ Reflection string }

// Finish ends the session
type Finish struct{}

// Idle is a turn without a usable tool call
type Idle struct{ Reason string }

func (Research) action() string { return ToolResearch }
func (Reflect) action() string  { return ToolReflect }
func (Finish) action() string   { return ToolFinish }
func (Idle) action() string     { return "idle" }

// Tools returns the tool definitions for the planning call
func Tools() []llm.ToolSpec {
	return []llm.ToolSpec{
		{
			Name:        ToolResearch,
			Description: "Search the web for sources about a focused research question and extract findings from them.",
			Parameters: jsonschema.Definition{
				Type: jsonschema.Object,
				Properties: map[string]jsonschema.Definition{
					"research_question": {
						Type:        jsonschema.String,
						Description: "A focused search question that targets missing categories",
					},
				},
				Required: []string{"research_question"},
			},
		},
		{
			Name:        ToolReflect,
			Description: "Think about what has been found and what is still missing before acting.",
			Parameters: jsonschema.Definition{
				Type: jsonschema.Object,
				Properties: map[string]jsonschema.Definition{
					"reflection": {
						Type:        jsonschema.String,
						Description: "Your reasoning about gaps and next steps",
					},
				},
				Required: []string{"reflection"},
			},
		},
		{
			Name:        ToolFinish,
			Description: "Stop researching when every category has enough findings.",
			Parameters: jsonschema.Definition{
				Type:       jsonschema.Object,
				Properties: map[string]jsonschema.Definition{},
			},
		},
	}
}

// decodeAction maps the first tool call of a planning response to an Action.
// Arguments that are not a JSON object decode as empty with ErrMalformedToolArguments.
func decodeAction(resp *llm.Completion) (Action, error) {
	if resp == nil || len(resp.ToolCalls) == 0 {
		return Idle{Reason: "no tool call"}, nil
	}
	call := resp.ToolCalls[0]

	args, argErr := decodeArguments(call.Arguments)

	switch normalizeToolName(call.Name) {
	case ToolResearch:
		return Research{Question: stringArg(args, "research_question")}, argErr
	case ToolReflect:
		return Reflect{Reflection: stringArg(args, "reflection")}, argErr
	case ToolFinish:
		return Finish{}, nil
	default:
		return Idle{Reason: fmt.Sprintf("unknown tool %q", call.Name)}, nil
	}
}

func decodeArguments(raw string) (map[string]any, error) {
	args := map[string]any{}
	if strings.TrimSpace(raw) == "" {
		return args, nil
	}
	if err := json.Unmarshal([]byte(raw), &args); err != nil || args == nil {
		return map[string]any{}, fmt.Errorf("%w: %q", ErrMalformedToolArguments, raw)
	}
	return args, nil
}

func stringArg(args map[string]any, key string) string {
	s, _ := args[key].(string)
	return strings.TrimSpace(s)
}

// normalizeToolName also accepts the CamelCase names some models echo back
func normalizeToolName(name string) string {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case ToolResearch, "researcheventstool", "research":
		return ToolResearch
	case ToolReflect, "think_tool", "think":
		return ToolReflect
	case ToolFinish, "finishresearchtool", "finish_research":
		return ToolFinish
	}
	return name
}
