// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package gemini

import "strings"

// Roles used in Content.Role.
const (
	RoleUser  = "user"
	RoleModel = "model"
)

// Part is one piece of a content block. Only text parts are used.
type Part struct {
	Text string `json:"text"`
}

// Content is one turn of the conversation.
type Content struct {
	Role  string `json:"role,omitempty"`
	Parts []Part `json:"parts"`
}

// Text joins the text of all parts.
func (c Content) Text() string {
	if len(c.Parts) == 1 {
		return c.Parts[0].Text
	}
	var sb strings.Builder
	for _, p := range c.Parts {
		sb.WriteString(p.Text)
	}
	return sb.String()
}

func textContent(role, text string) Content {
	return Content{Role: role, Parts: []Part{{Text: text}}}
}

// generateRequest is the body of streamGenerateContent.
type generateRequest struct {
	Contents          []Content `json:"contents"`
	SystemInstruction *Content  `json:"system_instruction,omitempty"`
}

// streamChunk is one SSE payload.
type streamChunk struct {
	Candidates []struct {
		Content      Content `json:"content"`
		FinishReason string  `json:"finishReason,omitempty"`
	} `json:"candidates"`
	PromptFeedback *struct {
		BlockReason string `json:"blockReason,omitempty"`
	} `json:"promptFeedback,omitempty"`
	Error *apiError `json:"error,omitempty"`
}

// text returns the text carried by the first candidate.
func (c *streamChunk) text() string {
	if len(c.Candidates) == 0 {
		return ""
	}
	return c.Candidates[0].Content.Text()
}

// finishReason returns the first candidate's finish reason.
func (c *streamChunk) finishReason() string {
	if len(c.Candidates) == 0 {
		return ""
	}
	return c.Candidates[0].FinishReason
}

// apiError is the error object Google APIs return.
type apiError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Status  string `json:"status"`
	Details []struct {
		Type   string `json:"@type"`
		Reason string `json:"reason,omitempty"`
	} `json:"details,omitempty"`
}

type apiErrorResponse struct {
	Error apiError `json:"error"`
}

// reason returns the first ErrorInfo reason in the details, if any.
func (e *apiError) reason() string {
	for _, d := range e.Details {
		if d.Reason != "" {
			return d.Reason
		}
	}
	return ""
}

// blockedFinishReasons end a candidate without a usable reply.
var blockedFinishReasons = map[string]bool{
	"SAFETY":             true,
	"RECITATION":         true,
	"BLOCKLIST":          true,
	"PROHIBITED_CONTENT": true,
	"SPII":               true,
}
