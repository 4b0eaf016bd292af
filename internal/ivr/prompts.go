package ivr

import "fmt"

// PromptBook holds every scripted line the IVR can speak, built once from the
// company identity so the turn handler never formats strings per call.
type PromptBook struct {
	Greeting   string
	Reminders  []string
	FollowUps  []string
	Farewell   string
	Escalate   string
	Fallback   string
	Transfer   string
	DigitsHint string
}

// NewPromptBook builds the scripted lines for a company name and tagline.
func NewPromptBook(company, tagline string) *PromptBook {
	return &PromptBook{
		Greeting: fmt.Sprintf(
			"Welcome to %s, %s. You've reached our virtual assistant. Are you calling about a policy, a claim, or a coverage question?",
			company, tagline,
		),
		Reminders: []string{
			fmt.Sprintf("I'm still here. How can %s assist with your insurance needs today?", company),
			"Are you still with me? Please let me know what insurance matter I can help you with.",
		},
		FollowUps: []string{
			"What else can I help with?",
			"How else may I assist you?",
			"Do you have other insurance questions?",
			"What would you like to know next?",
		},
		Farewell: fmt.Sprintf("Thank you for choosing %s. Have a secure day!", company),
		Escalate: "Let's connect you to a human agent. Thank you for your patience.",
		Fallback: "Let me connect you to a human representative for better assistance. Please hold.",
		Transfer: fmt.Sprintf(
			"All of our agents are currently assisting other callers. Please call %s back shortly. Thank you.",
			company,
		),
		DigitsHint: "I work best with spoken questions. After the tone, please tell me what you'd like to know.",
	}
}
