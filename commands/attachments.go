package commands

import (
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/darkace1998/crash-video-recorder/constants"
	"github.com/darkace1998/crash-video-recorder/internal/reporter"
	"github.com/darkace1998/crash-video-recorder/utils"
)

func newAttachmentsCmd(rt *runtime) *cobra.Command {
	var (
		pending bool
		events  bool
		verify  bool
	)

	cmd := &cobra.Command{
		Use:   "attachments",
		Short: "List videos and events held in the local spool",
		RunE: func(cmd *cobra.Command, _ []string) error {
			settings := rt.settings.Reporter
			if settings.Type != constants.ReporterSpool {
				return fmt.Errorf("reporter type is %q; attachments are only kept locally by the spool reporter", settings.Type)
			}

			spool, err := reporter.NewSpool(settings.Spool)
			if err != nil {
				return err
			}
			defer func() { _ = spool.Close() }()

			out := rt.out(cmd)

			if events {
				list, err := spool.ListEvents()
				if err != nil {
					return err
				}
				rows := make([][]string, 0, len(list))
				for _, e := range list {
					rows = append(rows, []string{e.ID, e.CreatedAt.Format(time.RFC3339), strconv.Itoa(e.Attachments), e.Message})
				}
				return out.Print([]string{"EVENT", "CREATED", "ATTACHMENTS", "MESSAGE"}, rows, list)
			}

			list, err := spool.ListAttachments(pending)
			if err != nil {
				return err
			}
			rows := make([][]string, 0, len(list))
			for _, a := range list {
				state := a.EventID
				if state == "" {
					state = "pending"
				}
				row := []string{a.Filename, strconv.FormatInt(a.Size, 10), state, a.CreatedAt.Format(time.RFC3339)}
				if verify {
					ok, verr := utils.VerifyFileSHA256(a.StoredPath, a.SHA256)
					switch {
					case verr != nil:
						row = append(row, "missing")
					case ok:
						row = append(row, "ok")
					default:
						row = append(row, "mismatch")
					}
				}
				rows = append(rows, row)
			}
			headers := []string{"FILENAME", "SIZE", "EVENT", "CREATED"}
			if verify {
				headers = append(headers, "CHECKSUM")
			}
			return out.Print(headers, rows, list)
		},
	}

	cmd.Flags().BoolVar(&pending, "pending", false, "Only attachments not yet bound to an event")
	cmd.Flags().BoolVar(&events, "events", false, "List captured events instead of attachments")
	cmd.Flags().BoolVar(&verify, "verify", false, "Verify the SHA-256 of each spooled copy")
	return cmd
}
