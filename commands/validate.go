package commands

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/darkace1998/crash-video-recorder/commands/formatter"
	"github.com/darkace1998/crash-video-recorder/internal/config"
	"github.com/darkace1998/crash-video-recorder/internal/version"
	"github.com/darkace1998/crash-video-recorder/models"
)

type validationResult struct {
	File   string   `json:"file"`
	Valid  bool     `json:"valid"`
	Errors []string `json:"errors"`
}

func newValidateCmd(rt *runtime) *cobra.Command {
	return &cobra.Command{
		Use:         "validate [config-file]",
		Short:       "Validate a configuration file",
		Args:        cobra.MaximumNArgs(1),
		Annotations: skipConfig(),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := rt.configPath
			if len(args) == 1 {
				path = args[0]
			}
			if path == "" {
				return errors.New("config file path is required")
			}

			res := validationResult{File: path, Valid: true}
			if _, err := config.Load(path); err != nil {
				res.Valid = false
				var verrs models.ValidationErrors
				if errors.As(err, &verrs) {
					for _, v := range verrs {
						res.Errors = append(res.Errors, v.Error())
					}
				} else {
					res.Errors = append(res.Errors, err.Error())
				}
			}

			out := rt.out(cmd)
			if res.Valid {
				if out.Format() == formatter.FormatJSON {
					return out.PrintJSON(res)
				}
				return out.Message(fmt.Sprintf("%s is valid", path))
			}

			rows := make([][]string, 0, len(res.Errors))
			for _, e := range res.Errors {
				rows = append(rows, []string{e})
			}
			if err := out.Print([]string{"ERROR"}, rows, res); err != nil {
				return err
			}
			return fmt.Errorf("%s has %d problem(s)", path, len(res.Errors))
		},
	}
}

func newVersionCmd(rt *runtime) *cobra.Command {
	return &cobra.Command{
		Use:         "version",
		Short:       "Print build information",
		Args:        cobra.NoArgs,
		Annotations: skipConfig(),
		RunE: func(cmd *cobra.Command, _ []string) error {
			return rt.out(cmd).PrintFields(map[string]string{
				"version": version.Version,
				"commit":  version.Commit,
				"date":    version.Date,
			},
				"version", version.Version,
				"commit", version.Commit,
				"date", version.Date,
			)
		},
	}
}

func newConfigCmd(rt *runtime) *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Print the effective configuration",
		Long:  "Print the configuration after defaults and CRASHVIDEO_* environment overrides are applied.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			data, err := rt.settings.ToYAML()
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(data)
			return err
		},
	}
}
