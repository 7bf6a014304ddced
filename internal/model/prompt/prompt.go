package prompt

// Prompt is a canned question offered on an empty chat.
type Prompt struct {
	Title       string `json:"title" yaml:"title"`
	Prompt      string `json:"prompt" yaml:"prompt"`
	Description string `json:"description,omitempty" yaml:"description"`
}

// Seed returns the built-in recipe and nutrition prompts.
func Seed() []Prompt {
	return []Prompt{
		{
			Title:       "Find a Recipe by Ingredients",
			Prompt:      "What can I make with chicken, spinach, and feta cheese?",
			Description: "List ingredients you have on hand",
		},
		{
			Title:       "Get Nutritional Information",
			Prompt:      "What's the nutritional value of a slice of avocado toast?",
			Description: "Ask about calories, protein, etc.",
		},
		{
			Title:       "Meal Planning Help",
			Prompt:      "Create a 5-day meal plan for a family of four with a focus on Mediterranean cuisine.",
			Description: "Specify dietary preferences",
		},
		{
			Title:       "Find Similar Recipes",
			Prompt:      "I love chicken parmesan. What are some similar dishes I could try?",
			Description: "Discover related recipes",
		},
		{
			Title:       "Dietary Restrictions",
			Prompt:      "What are some gluten-free dessert options that are also low in sugar?",
			Description: "Find recipes for specific diets",
		},
		{
			Title:       "Cooking Tips",
			Prompt:      "What's the best way to perfectly sear a steak?",
			Description: "Get advice on cooking techniques",
		},
	}
}
