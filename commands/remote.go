package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/darkace1998/crash-video-recorder/commands/formatter"
	"github.com/darkace1998/crash-video-recorder/internal/capture"
	"github.com/darkace1998/crash-video-recorder/internal/server"
	"github.com/darkace1998/crash-video-recorder/utils"
)

var httpClient = utils.NewHTTPClient()

func newStatusCmd(rt *runtime) *cobra.Command {
	var url string

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show saved videos and pending journals, or a running recorder's state",
		Long: "Without --url, list the videos and session journals in the recording directory.\n" +
			"With --url, query the /api/status endpoint of a running 'crash-video record --listen'.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			out := rt.out(cmd)
			if url != "" {
				return remoteStatus(cmd.Context(), out, url)
			}

			st, err := collectLocalStatus(rt.settings.Recording.Directory, rt.settings.Recording.MaxVideosToKeep)
			if err != nil {
				return err
			}
			if out.Format() == formatter.FormatJSON {
				return out.PrintJSON(st)
			}

			rows := make([][]string, 0, len(st.Videos)+len(st.Journals))
			for _, v := range st.Videos {
				rows = append(rows, []string{"video", v.Path, strconv.FormatInt(v.Size, 10), v.ModTime.Format(time.RFC3339)})
			}
			for _, j := range st.Journals {
				rows = append(rows, []string{"journal", j.Path, j.Status, j.StartTime.Format(time.RFC3339)})
			}
			if len(rows) == 0 && out.Format() == formatter.FormatTable {
				return out.Message(fmt.Sprintf("No videos or journals under %s", st.Directory))
			}
			return out.Print([]string{"KIND", "PATH", "SIZE/STATUS", "TIME"}, rows, st)
		},
	}

	cmd.Flags().StringVar(&url, "url", "", "Base URL of a running recorder, e.g. http://127.0.0.1:9090")
	return cmd
}

func remoteStatus(ctx context.Context, out *formatter.Output, baseURL string) error {
	resp, err := httpClient.Get(ctx, strings.TrimRight(baseURL, "/")+"/api/status")
	if err != nil {
		return fmt.Errorf("error connecting to recorder at %s: %w", baseURL, err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("error reading response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("status request failed with %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var st capture.Status
	if err := json.Unmarshal(body, &st); err != nil {
		return fmt.Errorf("error parsing response: %w", err)
	}

	pairs := []string{
		"state", st.State,
		"available", strconv.FormatBool(st.Available),
		"directory", st.Directory,
		"max_videos_to_keep", strconv.Itoa(st.MaxVideosToKeep),
	}
	if st.SessionID != "" {
		pairs = append(pairs, "session_id", st.SessionID, "video_path", st.VideoPath)
	}
	if st.StartTime != nil {
		pairs = append(pairs, "start_time", st.StartTime.Format(time.RFC3339))
	}
	if st.Config != nil {
		pairs = append(pairs,
			"buffer_seconds", strconv.FormatFloat(st.Config.BufferSeconds, 'f', -1, 64),
			"fps", strconv.Itoa(st.Config.TargetFPS),
			"resolution", fmt.Sprintf("%dx%d", st.Config.Width, st.Config.Height),
		)
	}
	return out.PrintFields(st, pairs...)
}

func newCaptureCmd(rt *runtime) *cobra.Command {
	var (
		url     string
		restart bool
		apiKey  string
	)

	cmd := &cobra.Command{
		Use:   "capture",
		Short: "Ask a running recorder to save its buffer and attach it",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if apiKey == "" {
				apiKey = rt.settings.Server.APIKey
			}
			resp, err := requestCapture(cmd.Context(), url, restart, apiKey)
			if err != nil {
				return err
			}
			out := rt.out(cmd)
			if out.Format() == formatter.FormatJSON {
				return out.PrintJSON(resp)
			}
			return out.PrintFields(resp,
				"video_path", resp.VideoPath,
				"restarted", strconv.FormatBool(resp.Restarted),
			)
		},
	}

	cmd.Flags().StringVar(&url, "url", "http://127.0.0.1:9090", "Base URL of the running recorder")
	cmd.Flags().BoolVar(&restart, "restart", true, "Start a new session after the capture")
	cmd.Flags().StringVar(&apiKey, "api-key", "", "API key (defaults to server.api_key)")
	return cmd
}

func requestCapture(ctx context.Context, baseURL string, restart bool, apiKey string) (*server.CaptureResponse, error) {
	endpoint := fmt.Sprintf("%s/api/capture?restart=%t", strings.TrimRight(baseURL, "/"), restart)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, nil)
	if err != nil {
		return nil, err
	}
	if apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+apiKey)
	}

	resp, err := httpClient.Do(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("error connecting to recorder at %s: %w", baseURL, err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("error reading response: %w", err)
	}

	var result server.CaptureResponse
	if jerr := json.Unmarshal(body, &result); jerr != nil {
		return nil, fmt.Errorf("capture failed with %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("capture failed with %d: %s", resp.StatusCode, result.Error)
	}
	return &result, nil
}
