package gemini

import (
	"encoding/json"
	"strings"

	"github.com/sagepoint-analytics/sage-go/pkg/core"
)

// Response is the generateContent response format.
type Response struct {
	Candidates    []Candidate `json:"candidates"`
	UsageMetadata *Usage      `json:"usageMetadata,omitempty"`
	ModelVersion  string      `json:"modelVersion,omitempty"`
}

// Candidate represents a single candidate response.
type Candidate struct {
	Content      Content `json:"content"`
	FinishReason string  `json:"finishReason"`
	Index        int     `json:"index"`
}

// Usage contains token usage information.
type Usage struct {
	PromptTokenCount     int `json:"promptTokenCount"`
	CandidatesTokenCount int `json:"candidatesTokenCount"`
	TotalTokenCount      int `json:"totalTokenCount"`
}

// Text concatenates the text parts of the first candidate.
func (r *Response) Text() string {
	if r == nil || len(r.Candidates) == 0 {
		return ""
	}
	var sb strings.Builder
	for _, part := range r.Candidates[0].Content.Parts {
		sb.WriteString(part.Text)
	}
	return strings.TrimSpace(sb.String())
}

// FunctionCalls returns the function calls requested by the first
// candidate, in order. Empty when the turn is plain text.
func (r *Response) FunctionCalls() []FunctionCall {
	if r == nil || len(r.Candidates) == 0 {
		return nil
	}
	var calls []FunctionCall
	for _, part := range r.Candidates[0].Content.Parts {
		if part.FunctionCall != nil {
			calls = append(calls, *part.FunctionCall)
		}
	}
	return calls
}

// ModelContent returns the first candidate's content with the model role
// set, for appending to conversation history.
func (r *Response) ModelContent() Content {
	if r == nil || len(r.Candidates) == 0 {
		return Content{Role: "model"}
	}
	content := r.Candidates[0].Content
	content.Role = "model"
	return content
}

// parseResponse parses a generateContent response body.
func parseResponse(body []byte) (*Response, error) {
	var resp Response
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, core.NewProtocolError("unmarshal response: " + err.Error())
	}
	if len(resp.Candidates) == 0 {
		return nil, core.NewProtocolError("no candidates in response")
	}
	return &resp, nil
}
