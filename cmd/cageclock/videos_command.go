package main

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"cageclock/internal/feed"
	"cageclock/internal/ipc"
	"cageclock/internal/youtube"
)

// busLoader adapts the daemon bus to the feed.Loader contract.
type busLoader struct {
	client *ipc.Client
	topic  string
	limit  int
}

func (l *busLoader) First(_ context.Context, forceFresh bool) (feed.Page, error) {
	if l.topic != "" {
		resp, err := ipc.Call[ipc.VideosResponse](l.client, ipc.FetchVideosForTopic{Topic: l.topic, MaxResults: l.limit})
		return toPage(resp, err)
	}
	resp, err := l.client.FetchVideos(forceFresh)
	return toPage(resp, err)
}

func (l *busLoader) More(_ context.Context, pageToken string) (feed.Page, error) {
	if l.topic != "" {
		resp, err := ipc.Call[ipc.VideosResponse](l.client, ipc.FetchVideosForTopic{Topic: l.topic, MaxResults: l.limit, PageToken: pageToken})
		return toPage(resp, err)
	}
	resp, err := l.client.FetchMoreVideos(pageToken)
	return toPage(resp, err)
}

func toPage(resp *ipc.VideosResponse, err error) (feed.Page, error) {
	if err != nil {
		return feed.Page{}, err
	}
	return feed.Page{Topic: resp.Topic, Videos: resp.Videos, NextPageToken: resp.NextPageToken}, nil
}

func newVideosCommand(ctx *commandContext) *cobra.Command {
	var (
		pages  int
		fresh  bool
		topic  string
		limit  int
		asJSON bool
	)
	cmd := &cobra.Command{
		Use:   "videos",
		Short: "List curated videos for the focus topic",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if pages < 1 {
				return errors.New("--pages must be at least 1")
			}
			return ctx.withClient(func(client *ipc.Client) error {
				f := feed.New(&busLoader{client: client, topic: topic, limit: limit})
				f.SetTopic(topic)
				if err := f.Load(cmd.Context(), fresh); err != nil {
					return err
				}
				topicChanged := false
				for i := 1; i < pages; i++ {
					err := f.More(cmd.Context())
					if errors.Is(err, feed.ErrNoMore) {
						break
					}
					if errors.Is(err, feed.ErrStale) {
						topicChanged = true
						break
					}
					if err != nil {
						return err
					}
				}

				snap := f.Snapshot()
				if asJSON {
					return writeJSON(cmd, snap.Videos)
				}
				out := cmd.OutOrStdout()
				if topicChanged {
					fmt.Fprintf(out, "Focus topic changed while loading; showing results for %q\n", snap.Topic)
				}
				if len(snap.Videos) == 0 {
					fmt.Fprintln(out, "No videos found")
					return nil
				}
				fmt.Fprint(out, renderTable(
					[]string{"#", "Title", "Channel", "Length", "Views", "URL"},
					videoRows(snap.Videos),
					[]columnAlignment{alignRight, alignLeft, alignLeft, alignRight, alignRight, alignLeft},
				))
				if snap.HasMore {
					fmt.Fprintf(out, "More results available (use --pages %d)\n", pages+1)
				}
				return nil
			})
		},
	}
	cmd.Flags().IntVarP(&pages, "pages", "p", 1, "Number of pages to load")
	cmd.Flags().BoolVar(&fresh, "fresh", false, "Bypass the cached first page")
	cmd.Flags().StringVarP(&topic, "topic", "t", "", "Search this topic instead of the focus topic (never cached)")
	cmd.Flags().IntVar(&limit, "limit", 0, "Results per page when --topic is set")
	addJSONFlag(cmd, &asJSON)
	return cmd
}

func videoRows(videos []youtube.Video) [][]string {
	rows := make([][]string, 0, len(videos))
	for i, v := range videos {
		rows = append(rows, []string{
			strconv.Itoa(i + 1),
			truncate(v.Title, maxCellWidth),
			truncate(v.ChannelName, 24),
			youtube.FormatDuration(v.Duration),
			youtube.FormatViewCount(v.ViewCount),
			"https://www.youtube.com/watch?v=" + v.VideoID,
		})
	}
	return rows
}

func newCacheCommand(ctx *commandContext) *cobra.Command {
	cacheCmd := &cobra.Command{
		Use:   "cache",
		Short: "Manage the cached video page",
	}
	cacheCmd.AddCommand(&cobra.Command{
		Use:   "clear",
		Short: "Drop the cached first page",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				if _, err := ipc.Call[ipc.Empty](client, ipc.ClearCache{}); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "Video cache cleared")
				return nil
			})
		},
	})
	return cacheCmd
}
