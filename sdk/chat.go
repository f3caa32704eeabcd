package sage

import (
	"context"
	"strings"

	"github.com/sagepoint-analytics/sage-go/pkg/core"
	"github.com/sagepoint-analytics/sage-go/pkg/core/providers/gemini"
	"github.com/sagepoint-analytics/sage-go/pkg/history"
	"github.com/sagepoint-analytics/sage-go/pkg/sheets"
)

// maxToolRounds bounds the tool-call loop within one turn. A model that
// keeps requesting tools past this ceiling fails the turn.
const maxToolRounds = 5

// chatSession is the cached multi-turn state of the text path. It is
// rebuilt whenever the instruction context generation moves.
type chatSession struct {
	generation int64
	contents   []gemini.Content
}

// SendText runs one text turn: the user message, any tool rounds the model
// requests, and the final assistant reply. At most one turn runs at a time;
// a second call while one is in flight fails immediately.
func (c *Client) SendText(ctx context.Context, text string) (string, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return "", core.NewInvalidRequestError("message text is empty")
	}
	if !c.sending.CompareAndSwap(false, true) {
		return "", core.NewInvalidRequestError("a message is already in flight")
	}
	defer c.sending.Store(false)

	c.chatMu.Lock()
	defer c.chatMu.Unlock()

	// Rebuild from the store before the new message lands there, so the
	// rebuilt history and the explicit append below do not overlap.
	instruction, gen := c.instructionContext()
	if c.chat == nil || c.chat.generation != gen {
		c.chat = &chatSession{generation: gen, contents: c.rebuildContents(ctx)}
	}

	// Optimistic append: the user message is part of the record even when
	// the turn fails afterwards.
	c.appendMessage(ctx, history.NewMessage(history.RoleUser, text))

	session := c.chat
	session.contents = append(session.contents, gemini.TextContent("user", text))

	for round := 0; round < maxToolRounds; round++ {
		resp, err := c.transport.GenerateContent(ctx, c.chatModel, &gemini.Request{
			Contents:          session.contents,
			SystemInstruction: &gemini.Content{Parts: []gemini.Part{{Text: instruction}}},
			Tools:             chatTools(),
		})
		if err != nil {
			c.logger.Error("chat turn failed", "model", c.chatModel, "error", err)
			c.chat = nil
			c.systemNotice(ctx, c.ui().turnFailed)
			return "", err
		}

		calls := resp.FunctionCalls()
		if len(calls) == 0 {
			answer := resp.Text()
			session.contents = append(session.contents, resp.ModelContent())
			c.appendMessage(ctx, history.NewMessage(history.RoleAssistant, answer))
			c.logExchange(sheets.RecordTypeTextLog, text, answer)
			return answer, nil
		}

		session.contents = append(session.contents, resp.ModelContent())
		responses := gemini.Content{Role: "function"}
		for _, call := range calls {
			result := c.resolveFunctionCall(ctx, call.Name, call.Args)
			responses.Parts = append(responses.Parts, gemini.Part{
				FunctionResponse: &gemini.FunctionResponse{
					ID:       call.ID,
					Name:     call.Name,
					Response: result,
				},
			})
		}
		session.contents = append(session.contents, responses)
	}

	c.logger.Warn("tool loop ceiling reached", "rounds", maxToolRounds)
	c.chat = nil
	c.systemNotice(ctx, c.ui().toolLoopExceeded)
	return "", core.NewAPIError("model kept requesting tools past the round ceiling")
}

// rebuildContents reconstructs provider history from the conversation
// store. System notices and partial voice transcripts stay out of the
// model's view.
func (c *Client) rebuildContents(ctx context.Context) []gemini.Content {
	msgs, err := c.store.All(ctx)
	if err != nil {
		c.logger.Error("history load failed", "error", err)
		return nil
	}
	var contents []gemini.Content
	for _, m := range msgs {
		if m.Partial {
			continue
		}
		switch m.Role {
		case history.RoleUser:
			contents = append(contents, gemini.TextContent("user", m.Text))
		case history.RoleAssistant:
			contents = append(contents, gemini.TextContent("model", m.Text))
		}
	}
	return contents
}
