// Package twiml renders turn-handler directives as Twilio call-control markup.
package twiml

import (
	"encoding/xml"
	"fmt"
	"strconv"
	"time"

	"github.com/afierro/coverline/internal/ivr"
)

// ContentType is the MIME type Twilio expects on webhook responses.
const ContentType = "text/xml; charset=utf-8"

type response struct {
	XMLName xml.Name `xml:"Response"`
	Verbs   []any
}

type prosody struct {
	XMLName xml.Name `xml:"prosody"`
	Rate    string   `xml:"rate,attr,omitempty"`
	Pitch   string   `xml:"pitch,attr,omitempty"`
	Text    string   `xml:",chardata"`
}

type say struct {
	XMLName xml.Name `xml:"Say"`
	Voice   string   `xml:"voice,attr,omitempty"`
	Text    string   `xml:",chardata"`
	Prosody *prosody
}

type pause struct {
	XMLName xml.Name `xml:"Pause"`
	Length  string   `xml:"length,attr"`
}

type play struct {
	XMLName xml.Name `xml:"Play"`
	URL     string   `xml:",chardata"`
}

type gather struct {
	XMLName             xml.Name `xml:"Gather"`
	Input               string   `xml:"input,attr"`
	Action              string   `xml:"action,attr"`
	Method              string   `xml:"method,attr"`
	SpeechTimeout       string   `xml:"speechTimeout,attr"`
	Timeout             string   `xml:"timeout,attr"`
	SpeechModel         string   `xml:"speechModel,attr,omitempty"`
	ActionOnEmptyResult bool     `xml:"actionOnEmptyResult,attr"`
}

type hangup struct {
	XMLName xml.Name `xml:"Hangup"`
}

type redirect struct {
	XMLName xml.Name `xml:"Redirect"`
	Method  string   `xml:"method,attr,omitempty"`
	URL     string   `xml:",chardata"`
}

// Render marshals an ordered directive sequence into a TwiML document,
// XML declaration included.
func Render(directives []ivr.Directive) ([]byte, error) {
	resp := response{}
	for _, d := range directives {
		switch v := d.(type) {
		case ivr.Speak:
			resp.Verbs = append(resp.Verbs, renderSay(v))
		case ivr.Pause:
			resp.Verbs = append(resp.Verbs, pause{Length: strconv.FormatFloat(v.Seconds, 'f', -1, 64)})
		case ivr.Play:
			resp.Verbs = append(resp.Verbs, play{URL: v.URL})
		case ivr.Gather:
			resp.Verbs = append(resp.Verbs, gather{
				Input:               "speech",
				Action:              v.Action,
				Method:              "POST",
				SpeechTimeout:       seconds(v.SpeechTimeout),
				Timeout:             seconds(v.Timeout),
				SpeechModel:         v.SpeechModel,
				ActionOnEmptyResult: v.ActionOnEmpty,
			})
		case ivr.Hangup:
			resp.Verbs = append(resp.Verbs, hangup{})
		case ivr.Redirect:
			resp.Verbs = append(resp.Verbs, redirect{Method: "POST", URL: v.URL})
		default:
			return nil, fmt.Errorf("twiml: unknown directive %T", d)
		}
	}

	out, err := xml.MarshalIndent(resp, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("twiml: marshal: %w", err)
	}
	return append([]byte(xml.Header), out...), nil
}

func renderSay(v ivr.Speak) say {
	if v.Rate == "" && v.Pitch == "" {
		return say{Voice: v.Voice, Text: v.Text}
	}
	return say{
		Voice:   v.Voice,
		Prosody: &prosody{Rate: v.Rate, Pitch: v.Pitch, Text: v.Text},
	}
}

func seconds(d time.Duration) string {
	s := int(d / time.Second)
	if s < 1 {
		s = 1
	}
	return strconv.Itoa(s)
}
