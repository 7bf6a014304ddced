// Package interpret classifies raw backend responses into the four kinds of
// turn outcome the session understands.
package interpret

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/zhouzirui/platepal/frontend/internal/model/chat"
	"github.com/zhouzirui/platepal/frontend/internal/service/backend"
)

const (
	DefaultCollectPrompt = "📝 Please enter the required fields."
	DefaultAnswerText    = "Query processed successfully"
	DefaultFailureText   = "Sorry, I couldn't process your request."
	FailureTrace         = "Error processing query"
)

var mongoQueryPattern = regexp.MustCompile(`(?i)MongoDB query:\s*(.*?\s+find\s+.*?)(?:\n|$)`)

// Result is one of CollectRequest, ConfirmRequest, Answer or Failure.
type Result interface {
	result()
}

// CollectRequest asks for field values before a write can run.
type CollectRequest struct {
	Prompt     string
	Operation  string
	Collection string
	Fields     []string
}

// ConfirmRequest asks the user to approve a generated query.
type ConfirmRequest struct {
	Prompt string
	Query  any
}

// Answer is a normal assistant reply.
type Answer struct {
	Content   string
	QueryCode string
	RawTrace  string
}

// Failure is a reply the backend could not answer.
type Failure struct {
	Content  string
	RawTrace string
}

func (CollectRequest) result() {}
func (ConfirmRequest) result() {}
func (Answer) result()         {}
func (Failure) result()        {}

// Interpret classifies resp. It never fails: unexpected shapes become a Failure
// or fall back to defaults.
func Interpret(resp *backend.Response, query string, mode chat.Mode) Result {
	var fields map[string]any
	if resp != nil {
		fields = resp.Fields
	}

	switch action, _ := fields["action"].(string); action {
	case "collect_input":
		return collectRequest(fields)
	case "confirm_query":
		prompt, _ := fields["prompt"].(string)
		return ConfirmRequest{Prompt: prompt, Query: fields["query"]}
	}

	if !truthy(fields["success"]) && !truthy(fields["result"]) && !truthy(fields["data"]) {
		content, _ := fields["message"].(string)
		if content == "" {
			content = DefaultFailureText
		}
		return Failure{Content: content, RawTrace: FailureTrace}
	}

	var (
		payload any = fields
		key     string
	)
	switch {
	case truthy(fields["data"]):
		payload, key = fields["data"], "data"
	case truthy(fields["result"]):
		payload, key = fields["result"], "result"
	}

	return Answer{
		Content:   answerContent(fields, payload, rawItems(resp, key)),
		QueryCode: queryFragment(payload, query, mode),
		RawTrace:  rawTrace(resp, payload, query),
	}
}

func collectRequest(fields map[string]any) CollectRequest {
	prompt, _ := fields["prompt"].(string)
	if prompt == "" {
		prompt = DefaultCollectPrompt
	}
	operation, _ := fields["operation"].(string)

	collection, _ := fields["collection"].(string)
	if collection == "" {
		collection, _ = fields["table"].(string)
	}

	var names []string
	if list, ok := fields["fields"].([]any); ok {
		names = make([]string, 0, len(list))
		for _, f := range list {
			if name := display(f); name != "" {
				names = append(names, name)
			}
		}
	}

	return CollectRequest{
		Prompt:     prompt,
		Operation:  operation,
		Collection: collection,
		Fields:     names,
	}
}

func answerContent(fields map[string]any, payload any, raws []json.RawMessage) string {
	if text, ok := payload.(string); ok {
		return text
	}

	content, _ := fields["message"].(string)
	if content == "" {
		content = DefaultAnswerText
	}

	items, ok := payload.([]any)
	if !ok {
		return content
	}

	var b strings.Builder
	b.WriteString(content)
	for i, item := range items {
		var raw json.RawMessage
		if len(raws) == len(items) {
			raw = raws[i]
		}
		b.WriteString("\n• ")
		b.WriteString(formatItem(item, raw))
	}
	return b.String()
}

// rawItems returns the elements of the array under key exactly as the backend
// sent them, or nil when the body holds no such array.
func rawItems(resp *backend.Response, key string) []json.RawMessage {
	if resp == nil || key == "" || len(resp.Raw) == 0 {
		return nil
	}
	var top map[string]json.RawMessage
	if err := json.Unmarshal(resp.Raw, &top); err != nil {
		return nil
	}
	var items []json.RawMessage
	if err := json.Unmarshal(top[key], &items); err != nil {
		return nil
	}
	return items
}

// formatItem renders one bullet. raw, when present, is the item as received
// and is used for items that are neither recipes nor ingredients.
func formatItem(item any, raw json.RawMessage) string {
	obj, _ := item.(map[string]any)

	if truthy(obj["name"]) {
		ingredients := obj["recipeingredientparts"]
		if !truthy(ingredients) {
			ingredients = obj["ingredients"]
		}
		if !truthy(ingredients) {
			ingredients = []any{}
		}

		var joined string
		if list, ok := ingredients.([]any); ok {
			parts := make([]string, 0, len(list))
			for _, ing := range list {
				parts = append(parts, display(ing))
			}
			joined = strings.Join(parts, ", ")
		} else {
			joined = display(ingredients)
		}
		return fmt.Sprintf("%s (ingredients: %s)", display(obj["name"]), joined)
	}

	if truthy(obj["ingredient_name"]) {
		energy := obj["energy_kcal"]
		if !truthy(energy) {
			energy = float64(0)
		}
		return fmt.Sprintf("%s - %s kcal", display(obj["ingredient_name"]), display(energy))
	}

	if len(raw) > 0 {
		var buf bytes.Buffer
		if err := json.Compact(&buf, raw); err == nil {
			return buf.String()
		}
	}
	return compactJSON(item)
}

func queryFragment(payload any, query string, mode chat.Mode) string {
	if text, ok := payload.(string); ok {
		if m := mongoQueryPattern.FindStringSubmatch(text); m != nil && m[1] != "" {
			return strings.TrimSpace(m[1])
		}
	}

	if mode == chat.ModeSQL {
		return fmt.Sprintf("SELECT * FROM recipes WHERE name LIKE '%%%s%%'", query)
	}
	return fmt.Sprintf(`db.recipes.find({ $text: { $search: "%s" } })`, query)
}

func rawTrace(resp *backend.Response, payload any, query string) string {
	count := "N/A"
	if items, ok := payload.([]any); ok {
		count = strconv.Itoa(len(items))
	}

	return fmt.Sprintf("Query processed: \"%s\"\nDatabase operation: %s\nFound %s results matching criteria.",
		query, encodeResponse(resp), count)
}

func encodeResponse(resp *backend.Response) string {
	if resp == nil {
		return "null"
	}
	if len(resp.Raw) > 0 {
		var buf bytes.Buffer
		if err := json.Compact(&buf, resp.Raw); err == nil {
			return buf.String()
		}
	}
	return compactJSON(resp.Fields)
}

// truthy follows JSON-value truthiness: null, false, 0, NaN and "" are false;
// arrays and objects are true even when empty.
func truthy(v any) bool {
	switch val := v.(type) {
	case nil:
		return false
	case bool:
		return val
	case string:
		return val != ""
	case float64:
		return val != 0 && !math.IsNaN(val)
	case json.Number:
		f, err := val.Float64()
		return err == nil && f != 0
	default:
		return true
	}
}

// display renders a JSON value the way it reads inside prose.
func display(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(val)
	case []any:
		parts := make([]string, 0, len(val))
		for _, p := range val {
			parts = append(parts, display(p))
		}
		return strings.Join(parts, ",")
	default:
		return compactJSON(val)
	}
}

func compactJSON(v any) string {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return fmt.Sprint(v)
	}
	return strings.TrimRight(buf.String(), "\n")
}
