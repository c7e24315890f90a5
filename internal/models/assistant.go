package models

// DefaultAssistantModel is used until the user picks a model in settings.
const DefaultAssistantModel = "gpt-4.1-nano"

// Assistant holds the assistant settings and the named generated-text cache.
// GeneratedTexts maps a cache key to a serialized GeneratedText envelope.
type Assistant struct {
	OpenAIAPIKey   string            `json:"openAiApiKey"`
	Model          string            `json:"model"`
	Personality    string            `json:"personality"`
	GeneratedTexts map[string]string `json:"generatedTexts"`
}

// GeneratedText is the cache envelope stored per key. Date is Unix
// milliseconds at the time the text was stored.
type GeneratedText struct {
	Text string `json:"text"`
	Date int64  `json:"date"`
}
