package interpret

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/zhouzirui/platepal/frontend/internal/model/chat"
	"github.com/zhouzirui/platepal/frontend/internal/service/backend"
)

func decode(t *testing.T, body string) *backend.Response {
	t.Helper()
	resp, err := backend.DecodeResponse([]byte(body))
	if err != nil {
		t.Fatalf("DecodeResponse err: %v", err)
	}
	return resp
}

func TestInterpretCollectRequest(t *testing.T) {
	tests := []struct {
		name string
		body string
		want Result
	}{
		{
			name: "collection field",
			body: `{"action":"collect_input","fields":["name","qty"],"operation":"insert","collection":"items","data":["ignored"]}`,
			want: CollectRequest{Prompt: DefaultCollectPrompt, Operation: "insert", Collection: "items", Fields: []string{"name", "qty"}},
		},
		{
			name: "legacy table field",
			body: `{"action":"collect_input","prompt":"Which row?","fields":["id"],"operation":"delete","collection":"","table":"recipes"}`,
			want: CollectRequest{Prompt: "Which row?", Operation: "delete", Collection: "recipes", Fields: []string{"id"}},
		},
		{
			name: "missing fields",
			body: `{"action":"collect_input","operation":"update"}`,
			want: CollectRequest{Prompt: DefaultCollectPrompt, Operation: "update"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Interpret(decode(t, tt.body), "add salt", chat.ModeMongo)
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Fatalf("Interpret mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestInterpretConfirmRequest(t *testing.T) {
	got := Interpret(decode(t, `{"action":"confirm_query","prompt":"Delete all?","query":{"op":"delete"},"result":"x"}`), "delete", chat.ModeMongo)

	want := ConfirmRequest{Prompt: "Delete all?", Query: map[string]any{"op": "delete"}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("Interpret mismatch (-want +got):\n%s", diff)
	}
}

func TestInterpretRecipeList(t *testing.T) {
	body := `{"data":[{"name":"Soup","recipeingredientparts":["leek","potato"]}]}`

	got, ok := Interpret(decode(t, body), "soup", chat.ModeMongo).(Answer)
	if !ok {
		t.Fatalf("expected Answer, got %T", got)
	}

	if want := "Query processed successfully\n• Soup (ingredients: leek, potato)"; got.Content != want {
		t.Fatalf("unexpected content:\n%q\nwant\n%q", got.Content, want)
	}
	if !strings.HasSuffix(got.Content, "\n• Soup (ingredients: leek, potato)") {
		t.Fatal("content must end with the bullet line")
	}
	if want := `db.recipes.find({ $text: { $search: "soup" } })`; got.QueryCode != want {
		t.Fatalf("unexpected query code: %s", got.QueryCode)
	}
	wantTrace := "Query processed: \"soup\"\nDatabase operation: " + body + "\nFound 1 results matching criteria."
	if got.RawTrace != wantTrace {
		t.Fatalf("unexpected trace:\n%s", got.RawTrace)
	}
}

func TestInterpretItemHeuristics(t *testing.T) {
	body := `{"success":true,"message":"Here you go","data":[
		{"name":"Salad","ingredients":"lettuce"},
		{"name":"Toast"},
		{"ingredient_name":"Avocado","energy_kcal":160},
		{"ingredient_name":"Water"},
		{"ingredient_name":"Oil","energy_kcal":884.5},
		{"id":7,"note":"<b>"}
	]}`

	got := Interpret(decode(t, body), "list", chat.ModeMongo).(Answer)

	want := strings.Join([]string{
		"Here you go",
		"• Salad (ingredients: lettuce)",
		"• Toast (ingredients: )",
		"• Avocado - 160 kcal",
		"• Water - 0 kcal",
		"• Oil - 884.5 kcal",
		`• {"id":7,"note":"<b>"}`,
	}, "\n")
	if diff := cmp.Diff(want, got.Content); diff != "" {
		t.Fatalf("content mismatch (-want +got):\n%s", diff)
	}
	if !strings.HasSuffix(got.RawTrace, "Found 6 results matching criteria.") {
		t.Fatalf("unexpected trace: %s", got.RawTrace)
	}
}

func TestInterpretFallbackItemKeepsKeyOrder(t *testing.T) {
	body := `{"data":[{"zeta":1, "alpha":{"y":2,"x":[3, 4]}}]}`

	got := Interpret(decode(t, body), "odd", chat.ModeMongo).(Answer)

	want := "Query processed successfully\n" + `• {"zeta":1,"alpha":{"y":2,"x":[3,4]}}`
	if diff := cmp.Diff(want, got.Content); diff != "" {
		t.Fatalf("content mismatch (-want +got):\n%s", diff)
	}
}

func TestInterpretStringResultExtractsMongoQuery(t *testing.T) {
	body := `{"result":"Top pick: Minestrone\nMongoDB query: db.recipes find {\"name\": \"Minestrone\"}\nEnjoy!"}`

	got := Interpret(decode(t, body), "minestrone", chat.ModeMongo).(Answer)

	if !strings.HasPrefix(got.Content, "Top pick: Minestrone") {
		t.Fatalf("string payload must be verbatim, got %q", got.Content)
	}
	if want := `db.recipes find {"name": "Minestrone"}`; got.QueryCode != want {
		t.Fatalf("unexpected query code: %q", got.QueryCode)
	}
	if !strings.HasSuffix(got.RawTrace, "Found N/A results matching criteria.") {
		t.Fatalf("unexpected trace: %s", got.RawTrace)
	}
}

func TestInterpretSQLFallbackQuery(t *testing.T) {
	got := Interpret(decode(t, `{"result":"ok"}`), "kale", chat.ModeSQL).(Answer)

	if want := "SELECT * FROM recipes WHERE name LIKE '%kale%'"; got.QueryCode != want {
		t.Fatalf("unexpected query code: %q", got.QueryCode)
	}
}

func TestInterpretSuccessWithoutPayloadUsesWholeResponse(t *testing.T) {
	got := Interpret(decode(t, `{"success":true,"message":"Saved"}`), "save", chat.ModeMongo).(Answer)

	if got.Content != "Saved" {
		t.Fatalf("unexpected content: %q", got.Content)
	}
}

func TestInterpretFailure(t *testing.T) {
	tests := []struct {
		name string
		resp *backend.Response
		want Result
	}{
		{"message", decode(t, `{"message":"Backend unavailable"}`), Failure{Content: "Backend unavailable", RawTrace: FailureTrace}},
		{"empty result", decode(t, `{"result":"","data":null,"success":false}`), Failure{Content: DefaultFailureText, RawTrace: FailureTrace}},
		{"non-object", decode(t, `[1,2,3]`), Failure{Content: DefaultFailureText, RawTrace: FailureTrace}},
		{"nil", nil, Failure{Content: DefaultFailureText, RawTrace: FailureTrace}},
		{"wrong action type", decode(t, `{"action":5,"message":7}`), Failure{Content: DefaultFailureText, RawTrace: FailureTrace}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Interpret(tt.resp, "q", chat.ModeMongo)
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Fatalf("Interpret mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestInterpretIsDeterministic(t *testing.T) {
	body := `{"data":[{"name":"Soup","ingredients":["leek"]},{"x":1}],"message":"m"}`

	first := Interpret(decode(t, body), "soup", chat.ModeMongo)
	second := Interpret(decode(t, body), "soup", chat.ModeMongo)

	if diff := cmp.Diff(first, second); diff != "" {
		t.Fatalf("interpretation is not stable:\n%s", diff)
	}
}
