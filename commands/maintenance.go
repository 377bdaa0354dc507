package commands

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/darkace1998/crash-video-recorder/commands/formatter"
	"github.com/darkace1998/crash-video-recorder/internal/dirlock"
	"github.com/darkace1998/crash-video-recorder/internal/journal"
	"github.com/darkace1998/crash-video-recorder/internal/recovery"
	"github.com/darkace1998/crash-video-recorder/internal/retention"
)

type recoverResult struct {
	Directory       string         `json:"directory"`
	Entries         int            `json:"entries"`
	Outcomes        map[string]int `json:"outcomes"`
	DeletedVideos   []string       `json:"deleted_videos"`
	DeletedJournals []string       `json:"deleted_journals"`
}

func newRecoverCmd(rt *runtime) *cobra.Command {
	return &cobra.Command{
		Use:   "recover",
		Short: "Clean up videos and journals left by sessions that did not stop cleanly",
		Long: "Scan the video directory for session journals. Crash-recorded and interrupted sessions " +
			"have their videos removed; corrupt journals are deleted on their own.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			dir := rt.settings.Recording.Directory
			lock, err := lockDirectory(dir)
			if err != nil {
				return err
			}
			defer func() { _ = lock.Release() }()

			report := recovery.New(dir, nil).Scan()

			res := recoverResult{
				Directory:       dir,
				Entries:         report.Entries,
				Outcomes:        report.Outcomes,
				DeletedVideos:   report.DeletedVideos,
				DeletedJournals: report.DeletedJournals,
			}

			outcomes := make([]string, 0, len(report.Outcomes))
			for outcome := range report.Outcomes {
				outcomes = append(outcomes, outcome)
			}
			sort.Strings(outcomes)

			rows := make([][]string, 0, len(outcomes))
			for _, outcome := range outcomes {
				rows = append(rows, []string{outcome, strconv.Itoa(report.Outcomes[outcome])})
			}
			out := rt.out(cmd)
			if len(rows) == 0 && out.Format() != formatter.FormatJSON {
				return out.Message(fmt.Sprintf("No session journals under %s", dir))
			}
			return out.Print([]string{"OUTCOME", "ENTRIES"}, rows, res)
		},
	}
}

type pruneResult struct {
	Directory  string   `json:"directory"`
	MaxToKeep  int      `json:"max_to_keep"`
	Scanned    int      `json:"scanned"`
	Deleted    []string `json:"deleted"`
	Failed     int      `json:"failed"`
	FreedBytes int64    `json:"freed_bytes"`
	DryRun     bool     `json:"dry_run"`
}

func newPruneCmd(rt *runtime) *cobra.Command {
	var keep int
	var dryRun bool

	cmd := &cobra.Command{
		Use:   "prune",
		Short: "Delete the oldest crash videos beyond the retention limit",
		RunE: func(cmd *cobra.Command, _ []string) error {
			dir := rt.settings.Recording.Directory
			if !cmd.Flags().Changed("keep") {
				keep = rt.settings.Recording.MaxVideosToKeep
			}
			mgr := retention.NewManager(dir, keep, nil)

			res := pruneResult{Directory: dir, MaxToKeep: mgr.MaxToKeep(), DryRun: dryRun}
			if dryRun {
				entries, err := mgr.List()
				if err != nil {
					return err
				}
				res.Scanned = len(entries)
				for _, e := range oldestBeyond(entries, mgr.MaxToKeep()) {
					res.Deleted = append(res.Deleted, e.Path)
					res.FreedBytes += e.Size
				}
			} else {
				lock, err := lockDirectory(dir)
				if err != nil {
					return err
				}
				defer func() { _ = lock.Release() }()

				r := mgr.Prune()
				res.Scanned = r.Scanned
				res.Deleted = r.Deleted
				res.Failed = r.Failed
				res.FreedBytes = r.FreedBytes
			}

			rows := make([][]string, 0, len(res.Deleted))
			for _, p := range res.Deleted {
				rows = append(rows, []string{p})
			}
			out := rt.out(cmd)
			if len(rows) == 0 && out.Format() != formatter.FormatJSON {
				return out.Message(fmt.Sprintf("%d videos under %s, nothing to delete (keeping %d)", res.Scanned, dir, res.MaxToKeep))
			}
			header := "DELETED"
			if dryRun {
				header = "WOULD DELETE"
			}
			return out.Print([]string{header}, rows, res)
		},
	}

	cmd.Flags().IntVar(&keep, "keep", 0, "Number of videos to keep (defaults to recording.max_videos_to_keep)")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "List what would be deleted without deleting")
	return cmd
}

// lockDirectory refuses to touch a directory a running recorder owns.
func lockDirectory(dir string) (*dirlock.Lock, error) {
	lock, err := dirlock.Acquire(dir)
	if errors.Is(err, dirlock.ErrLocked) {
		return nil, fmt.Errorf("%w; stop 'crash-video record' first", err)
	}
	return lock, err
}

// oldestBeyond returns the entries a prune would delete, oldest first.
func oldestBeyond(entries []retention.Entry, maxToKeep int) []retention.Entry {
	if len(entries) <= maxToKeep {
		return nil
	}
	sorted := append([]retention.Entry(nil), entries...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].ModTime.Before(sorted[j].ModTime)
	})
	return sorted[:len(sorted)-maxToKeep]
}

type localStatus struct {
	Directory       string            `json:"directory"`
	MaxVideosToKeep int               `json:"max_videos_to_keep"`
	Videos          []retention.Entry `json:"videos"`
	Journals        []journalStatus   `json:"journals"`
}

type journalStatus struct {
	Path      string    `json:"path"`
	VideoPath string    `json:"video_path"`
	Status    string    `json:"status"`
	StartTime time.Time `json:"start_time"`
}

func collectLocalStatus(dir string, maxToKeep int) (localStatus, error) {
	st := localStatus{Directory: dir, MaxVideosToKeep: maxToKeep}

	videos, err := retention.NewManager(dir, maxToKeep, nil).List()
	if err != nil {
		return st, err
	}
	sort.SliceStable(videos, func(i, j int) bool {
		return videos[i].ModTime.After(videos[j].ModTime)
	})
	st.Videos = videos

	paths, err := journal.List(dir)
	if err != nil {
		return st, err
	}
	for _, p := range paths {
		entry, err := journal.Read(p)
		if err != nil {
			st.Journals = append(st.Journals, journalStatus{Path: p, Status: "unreadable"})
			continue
		}
		st.Journals = append(st.Journals, journalStatus{
			Path:      p,
			VideoPath: entry.VideoPath,
			Status:    string(entry.Status),
			StartTime: entry.StartTime,
		})
	}
	return st, nil
}
