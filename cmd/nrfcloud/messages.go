package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/shohag/nrfcloud"
	"github.com/shohag/nrfcloud/internal/fanout"
)

type listFlags struct {
	appID     string
	deviceIDs []string
	topic     string
	start     string
	end       string
	pageLimit uint32
	pageToken string
	pageSort  string
	json      bool
}

func messagesCmd(configPath *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "messages",
		Short: "Device messages",
	}

	var f listFlags
	cmd.AddCommand(listCmd(configPath, &f))
	return cmd
}

// listCmd binds its flags into f.
func listCmd(configPath *string, f *listFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List one page of device messages",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, cfg, log, err := clientFromConfig(*configPath)
			if err != nil {
				return err
			}

			params := f.params(cmd)
			out := cmd.OutOrStdout()

			if len(f.deviceIDs) <= 1 {
				if len(f.deviceIDs) == 1 {
					params.DeviceID = nrfcloud.String(f.deviceIDs[0])
				}
				page, err := client.ListMessages(cmd.Context(), &params)
				if err != nil {
					return fmt.Errorf("failed to list messages: %w", err)
				}
				return writePage(out, page, f.json)
			}

			results := fanout.NewPool(client, cfg.API.Concurrency, log).
				ListByDevice(cmd.Context(), params, f.deviceIDs)
			return writeResults(out, results, f.json)
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&f.appID, "app-id", "", "filter by application id")
	flags.StringArrayVar(&f.deviceIDs, "device-id", nil, "filter by device id (repeat to query several devices)")
	flags.StringVar(&f.topic, "topic", "", "filter by MQTT topic")
	flags.StringVar(&f.start, "start", "", "earliest receive time (RFC 3339)")
	flags.StringVar(&f.end, "end", "", "latest receive time (RFC 3339)")
	flags.Uint32Var(&f.pageLimit, "page-limit", 0, "maximum items per page")
	flags.StringVar(&f.pageToken, "page-token", "", "continuation token from a previous page")
	flags.StringVar(&f.pageSort, "page-sort", "", "sort order: asc or desc")
	flags.BoolVar(&f.json, "json", false, "print JSON instead of a table")

	return cmd
}

// params maps the flags the user actually set; unset flags stay nil so they
// are left out of the query.
func (f *listFlags) params(cmd *cobra.Command) nrfcloud.ListMessagesParams {
	var p nrfcloud.ListMessagesParams
	changed := cmd.Flags().Changed

	if changed("app-id") {
		p.AppID = nrfcloud.String(f.appID)
	}
	if changed("topic") {
		p.Topic = nrfcloud.String(f.topic)
	}
	if changed("start") {
		p.Start = nrfcloud.String(f.start)
	}
	if changed("end") {
		p.End = nrfcloud.String(f.end)
	}
	if changed("page-limit") {
		p.PageLimit = nrfcloud.Uint32(f.pageLimit)
	}
	if changed("page-token") {
		p.PageNextToken = nrfcloud.String(f.pageToken)
	}
	if changed("page-sort") {
		p.PageSort = nrfcloud.String(f.pageSort)
	}
	return p
}
