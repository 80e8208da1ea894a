package entity

// Preset is a canned prompt offered as a shortcut for custom input.
type Preset struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Prompt      string `json:"prompt"`
}

const PresetCustom = "custom"

var Presets = []Preset{
	{
		ID:          "improve-coverage",
		Title:       "Improve Test Coverage",
		Description: "Enhance overall test coverage by identifying gaps in the current test suite",
		Prompt:      "Analyze the codebase and identify areas with insufficient test coverage. Generate tests that improve the overall coverage, focusing on critical paths and edge cases.",
	},
	{
		ID:          "sentry-issues",
		Title:       "Cover Sentry Issues",
		Description: "Create tests for issues reported in Sentry to prevent regressions",
		Prompt:      "Analyze Sentry error reports and create tests that would catch these issues. Focus on the most frequent errors and those affecting critical user flows.",
	},
	{
		ID:          "user-flows",
		Title:       "User Flow Coverage",
		Description: "Add tests for significant user journeys based on analytics",
		Prompt:      "Identify key user flows based on analytics data and create comprehensive tests for these journeys. Ensure that critical user paths are thoroughly tested.",
	},
	{
		ID:          PresetCustom,
		Title:       "Custom Prompt",
		Description: "Create your own custom test generation prompt",
	},
}

// FindPreset looks a preset up by id.
func FindPreset(id string) (Preset, bool) {
	for _, p := range Presets {
		if p.ID == id {
			return p, true
		}
	}
	return Preset{}, false
}

// PlaywrightPrompt instructs the model how to lay out generated files.
const PlaywrightPrompt = "You are an end-to-end test author. Produce complete Playwright tests written in TypeScript.\nRules:\n\n1. Return every file through the provided tool as an entry of the testFiles array, never as a string holding an array.\n2. Each entry has a filename ending in .spec.ts and its full content.\n3. Content is a JSON string: escape newlines as \\n and quotes as \\\", never use backticks as delimiters.\n4. Each file imports from '@playwright/test'.\n5. Cover critical user flows, navigation and routing, error states and edge cases.\n6. Use clear test descriptions and organized test.describe suites.\n7. List any extra NPM packages under dependencies.\n\nNow, using the specifications below, write the tests for the next instruction."
