// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package gemini implements the chat provider on top of the Google Gemini
// REST API.
//
// Replies are streamed with streamGenerateContent over server-sent events.
// A Session keeps the turn history and resends it with every message, so the
// model sees the whole conversation. Only turns whose reply streamed to the
// end are recorded.
//
// # Usage
//
//	client := gemini.NewClient(gemini.WithModel("gemini-2.5-flash"))
//	sess, err := client.NewSession(apiKey, systemPrompt)
//	if err != nil {
//	    return err // matches provider.ErrInvalidAPIKey for a bad key
//	}
//	stream, err := sess.SendAndStream(ctx, "Hello")
//	if err != nil {
//	    return err
//	}
//	defer stream.Close()
//	for {
//	    fragment, err := stream.Recv()
//	    if err == io.EOF {
//	        break
//	    }
//	    if err != nil {
//	        return err
//	    }
//	    fmt.Print(fragment)
//	}
package gemini
