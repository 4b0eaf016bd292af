package ivr

import "time"

// Directive is one unit of call-control instruction emitted by the turn
// handler. The httpapi layer renders the ordered sequence to vendor markup.
type Directive interface {
	isDirective()
}

// Speak synthesizes text in the session's voice persona.
type Speak struct {
	Text  string
	Voice string
	Rate  string
	Pitch string
}

// Pause waits silently for the given number of seconds.
type Pause struct {
	Seconds float64
}

// Play streams an audio resource to the caller.
type Play struct {
	URL string
}

// Gather listens for caller speech and posts the result back to Action.
// ActionOnEmpty makes an empty result a normal webhook rather than a fault.
type Gather struct {
	Action        string
	SpeechTimeout time.Duration
	Timeout       time.Duration
	SpeechModel   string
	ActionOnEmpty bool
}

// Hangup terminates the call.
type Hangup struct{}

// Redirect hands the call to another webhook flow.
type Redirect struct {
	URL string
}

func (Speak) isDirective()    {}
func (Pause) isDirective()    {}
func (Play) isDirective()     {}
func (Gather) isDirective()   {}
func (Hangup) isDirective()   {}
func (Redirect) isDirective() {}
