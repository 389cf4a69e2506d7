package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/olekukonko/tablewriter"

	"github.com/shohag/nrfcloud"
	"github.com/shohag/nrfcloud/internal/fanout"
)

func writePage(w io.Writer, page *nrfcloud.ListMessagesResponse, asJSON bool) error {
	if asJSON {
		return writeJSON(w, page)
	}
	if err := writeTable(w, page); err != nil {
		return err
	}
	writeNextToken(w, page)
	return nil
}

type deviceResult struct {
	DeviceID string                         `json:"deviceId"`
	Page     *nrfcloud.ListMessagesResponse `json:"page,omitempty"`
	Error    string                         `json:"error,omitempty"`
}

// writeResults prints per-device pages and returns an error when any device
// failed, after printing the rest.
func writeResults(w io.Writer, results []fanout.Result, asJSON bool) error {
	var failed int
	out := make([]deviceResult, 0, len(results))
	for _, r := range results {
		dr := deviceResult{DeviceID: r.DeviceID, Page: r.Page}
		if r.Err != nil {
			dr.Error = r.Err.Error()
			failed++
		}
		out = append(out, dr)
	}

	if asJSON {
		if err := writeJSON(w, out); err != nil {
			return err
		}
	} else {
		for _, dr := range out {
			fmt.Fprintf(w, "## %s\n\n", dr.DeviceID)
			if dr.Error != "" {
				fmt.Fprintf(w, "error: %s\n\n", dr.Error)
				continue
			}
			if err := writeTable(w, dr.Page); err != nil {
				return err
			}
			writeNextToken(w, dr.Page)
			fmt.Fprintln(w)
		}
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d devices failed", failed, len(results))
	}
	return nil
}

func writeJSON(w io.Writer, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}
	fmt.Fprintln(w, string(data))
	return nil
}

// writeTable formats messages as a markdown table. Items that do not look
// like message envelopes still get a row with their raw JSON.
func writeTable(w io.Writer, page *nrfcloud.ListMessagesResponse) error {
	table := tablewriter.NewWriter(w)
	table.SetAutoFormatHeaders(false)
	table.SetHeader([]string{"#", "Device", "Topic", "Received", "Message"})

	for i, item := range page.Items {
		var msg nrfcloud.Message
		if err := json.Unmarshal(item, &msg); err != nil || msg.Message == nil {
			table.Append([]string{fmt.Sprintf("%d", i+1), msg.DeviceID, msg.Topic, "", truncate(compact(item), 60)})
			continue
		}
		table.Append([]string{
			fmt.Sprintf("%d", i+1),
			msg.DeviceID,
			msg.Topic,
			formatTime(msg.ReceivedAt),
			truncate(compact(msg.Message), 60),
		})
	}

	table.Render()
	return nil
}

func writeNextToken(w io.Writer, page *nrfcloud.ListMessagesResponse) {
	if page.HasNextPage() {
		fmt.Fprintf(w, "next page: --page-token=%s\n", page.PageNextToken)
	}
}

func compact(raw json.RawMessage) string {
	var buf bytes.Buffer
	if err := json.Compact(&buf, raw); err != nil {
		return string(raw)
	}
	return buf.String()
}

func truncate(s string, max int) string {
	if len(s) > max {
		return s[:max] + "..."
	}
	return s
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}
