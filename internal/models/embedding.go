package models

// PromptResponse is what a caller gets back for one successful generation.
type PromptResponse struct {
	Subject string `json:"subject"`
	Topic   string `json:"topic"`
	Chapter string `json:"chapter,omitempty"`
	MCQs    string `json:"mcqs"`
}
