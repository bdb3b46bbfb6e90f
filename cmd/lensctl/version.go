package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"lensctl/internal/version"
)

type versionOptions struct {
	format string
	full   bool
	color  bool
}

type versionPayload struct {
	Tool      string `json:"tool"`
	Version   string `json:"version"`
	GitCommit string `json:"git_commit,omitempty"`
	BuildDate string `json:"build_date,omitempty"`
}

var (
	versionFormat   string
	versionShowFull bool
)

func init() {
	versionCmd.Flags().BoolVar(&versionShowFull, "full", false, "include commit hash and build date")
	versionCmd.Flags().StringVar(&versionFormat, "format", "pretty", "output format (pretty|json)")
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show lensctl build information",
	RunE: func(cmd *cobra.Command, args []string) error {
		colorFlag, err := cmd.Root().PersistentFlags().GetString("color")
		if err != nil {
			return err
		}
		useColor, err := applyColor(colorFlag)
		if err != nil {
			return err
		}
		opts := versionOptions{
			format: strings.ToLower(versionFormat),
			full:   versionShowFull,
			color:  useColor,
		}
		return renderVersion(cmd.OutOrStdout(), opts)
	},
}

func renderVersion(out io.Writer, opts versionOptions) error {
	switch opts.format {
	case "pretty":
		if opts.full {
			fmt.Fprintln(out, version.Describe(opts.color))
			return nil
		}
		v := version.Version
		if opts.color {
			v = version.Colored()
		}
		fmt.Fprintf(out, "lensctl %s\n", v)
		return nil
	case "json":
		payload := versionPayload{Tool: "lensctl", Version: version.Version}
		if opts.full {
			payload.GitCommit = valueOrUnknown(version.GitCommit)
			payload.BuildDate = valueOrUnknown(version.BuildDate)
		}
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(payload)
	default:
		return fmt.Errorf("unsupported format %q (must be pretty or json)", opts.format)
	}
}

func valueOrUnknown(s string) string {
	if strings.TrimSpace(s) == "" {
		return "unknown"
	}
	return s
}
