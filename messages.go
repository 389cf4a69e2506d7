package nrfcloud

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
)

const messagesPath = "/messages"

// ListMessagesParams filters GET /messages. Nil fields are left out of the
// query string; values are passed through unvalidated.
type ListMessagesParams struct {
	AppID         *string `url:"appId,omitempty"`
	DeviceID      *string `url:"deviceId,omitempty"`
	Topic         *string `url:"topic,omitempty"`
	Start         *string `url:"start,omitempty"`
	End           *string `url:"end,omitempty"`
	PageLimit     *uint32 `url:"pageLimit,omitempty"`
	PageNextToken *string `url:"pageNextToken,omitempty"`
	PageSort      *string `url:"pageSort,omitempty"`
}

// NextPage returns a copy of p that requests the page after resp, or nil when
// resp was the last page.
func (p *ListMessagesParams) NextPage(resp *ListMessagesResponse) *ListMessagesParams {
	if resp == nil || !resp.HasNextPage() {
		return nil
	}
	next := ListMessagesParams{}
	if p != nil {
		next = *p
	}
	next.PageNextToken = String(resp.PageNextToken)
	return &next
}

// ListMessagesResponse is one page of GET /messages. Only the fields used for
// paging are modelled; items are kept as raw JSON.
type ListMessagesResponse struct {
	Items         []json.RawMessage `json:"items,omitempty"`
	PageNextToken string            `json:"pageNextToken,omitempty"`
}

func (r *ListMessagesResponse) HasNextPage() bool {
	return r.PageNextToken != ""
}

// Message is the common envelope of a device message item.
type Message struct {
	TenantID   string          `json:"tenantId,omitempty"`
	AppID      string          `json:"appId,omitempty"`
	DeviceID   string          `json:"deviceId,omitempty"`
	Topic      string          `json:"topic,omitempty"`
	ReceivedAt time.Time       `json:"receivedAt,omitzero"`
	Message    json.RawMessage `json:"message,omitempty"`
}

// Messages decodes the raw items into Message values.
func (r *ListMessagesResponse) Messages() ([]Message, error) {
	msgs := make([]Message, 0, len(r.Items))
	for i, item := range r.Items {
		var m Message
		if err := json.Unmarshal(item, &m); err != nil {
			return nil, fmt.Errorf("failed to decode item %d: %w", i, err)
		}
		msgs = append(msgs, m)
	}
	return msgs, nil
}

// ListMessages fetches a single page of device messages. Follow
// PageNextToken (or params.NextPage) for further pages.
func (c *Client) ListMessages(ctx context.Context, params *ListMessagesParams) (*ListMessagesResponse, error) {
	if params == nil {
		params = &ListMessagesParams{}
	}
	resp, err := GetJSONWithParams[ListMessagesResponse](ctx, c, messagesPath, params)
	if err != nil {
		return nil, err
	}
	return &resp, nil
}

func String(s string) *string {
	return &s
}

func Uint32(n uint32) *uint32 {
	return &n
}
