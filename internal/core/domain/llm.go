package domain

// Prompt is a rendered instruction for a model call.
type Prompt struct {
	Name       string
	System     string
	User       string
	StrictJSON bool
}

type Completion struct {
	Text             string
	Model            string
	PromptTokens     int
	CompletionTokens int
}
