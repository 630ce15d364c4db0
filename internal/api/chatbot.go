package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

type ChatMessage struct {
	ID            int64           `json:"id,omitempty"`
	Query         string          `json:"query"`
	Response      string          `json:"response"`
	SearchResults json.RawMessage `json:"search_results,omitempty"`
	SearchURLs    []string        `json:"search_urls,omitempty"`
	CreatedAt     *time.Time      `json:"created_at,omitempty"`
}

type chatRequest struct {
	Query string `json:"query"`
	Lang  string `json:"lang,omitempty"`
}

func (c *Client) ListChatMessages(ctx context.Context) ([]ChatMessage, error) {
	messages := []ChatMessage{}
	return messages, c.executeRequest(
		ctx,
		outboundRequest{
			method:  http.MethodGet,
			path:    "chatbot/messages/",
			respObj: &messages,
		},
	)
}

// SendChatMessage asks the chatbot a question. lang is optional ("en", "fr").
func (c *Client) SendChatMessage(
	ctx context.Context,
	query string,
	lang string,
) (*ChatMessage, error) {
	message := &ChatMessage{}
	if err := c.executeRequest(
		ctx,
		outboundRequest{
			method:     http.MethodPost,
			path:       "chatbot/messages/",
			reqBodyObj: chatRequest{Query: query, Lang: lang},
			respObj:    message,
		},
	); err != nil {
		return nil, err
	}
	if message.Query == "" {
		message.Query = query
	}
	return message, nil
}

func (c *Client) DeleteChatMessage(ctx context.Context, id int64) error {
	return c.executeRequest(
		ctx,
		outboundRequest{
			method: http.MethodDelete,
			path:   fmt.Sprintf("chatbot/messages/%d/", id),
		},
	)
}
