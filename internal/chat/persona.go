// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

// MasterPrompt is the system instruction every session is seeded with.
const MasterPrompt = `You are an expert online business development assistant named Mega-Bot.
Your goal is to provide actionable advice, strategies, and insights for entrepreneurs and businesses looking to grow online.
Your responses should be practical, clear, and well-structured using markdown.`

// Suggestions are the starter prompts offered on an empty conversation.
var Suggestions = []string{
	"Outline a digital marketing strategy for a new e-commerce store.",
	"What are the key elements of a successful SaaS landing page?",
	"Generate 5 blog post ideas for a content marketing agency.",
	"Explain SEO best practices for a small business website in 2024.",
}

// User-facing texts.
const (
	Greeting    = "Hello, there"
	Subheading  = "How can I help you today?"
	WelcomeText = "Welcome to Mega-Bot"
	NeedKeyText = "Please set your Gemini API key to get started."

	// ResetConfirmText is asked before a non-empty conversation is discarded.
	ResetConfirmText = "Are you sure you want to delete the chat history? This will start a new conversation."

	// InitFailedText is shown when a stored key cannot start a session.
	InitFailedText = "Failed to initialize AI. The API key might be invalid."
)
