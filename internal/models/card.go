// internal/models/card.go
package models

// PromptCard is a catalog prompt with one or more blanks to fill.
type PromptCard struct {
	ID   string `json:"id"`
	Text string `json:"text"`
	Pick int    `json:"pick"` // number of answer cards the prompt asks for
}

// AnswerCard is a single catalog answer.
type AnswerCard struct {
	ID   string `json:"id"`
	Text string `json:"text"`
}
