package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/runger/nicehist/internal/config"
	"github.com/runger/nicehist/internal/rpc"
	"github.com/runger/nicehist/internal/rpcclient"
)

var (
	searchLimit int
	searchDir   string
	searchJSON  bool
)

var searchCmd = &cobra.Command{
	Use:     "search [pattern]",
	Short:   "Search command history",
	GroupID: groupCore,
	Args:    cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var pattern string
		if len(args) > 0 {
			pattern = args[0]
		}

		paths := config.DefaultPaths()
		client := rpcclient.New(paths.SocketFile())

		var result rpc.SearchResultList
		err := client.Call("search", rpc.SearchParams{
			Pattern: pattern,
			Limit:   searchLimit,
			Dir:     searchDir,
		}, &result)
		if err != nil {
			return err
		}

		if searchJSON {
			return json.NewEncoder(os.Stdout).Encode(result)
		}
		for _, r := range result.Results {
			t := time.Unix(r.Timestamp, 0).Format("2006-01-02 15:04")
			status := ""
			if r.ExitStatus != nil && *r.ExitStatus != 0 {
				status = fmt.Sprintf(" %s[%d]%s", colorRed, *r.ExitStatus, colorReset)
			}
			fmt.Printf("%s%s%s  %s%s\n", colorDim, t, colorReset, r.Cmd, status)
		}
		return nil
	},
}

func init() {
	searchCmd.Flags().IntVarP(&searchLimit, "limit", "n", 50, "maximum number of results")
	searchCmd.Flags().StringVar(&searchDir, "dir", "", "restrict to commands run in this directory")
	searchCmd.Flags().BoolVar(&searchJSON, "json", false, "emit JSON instead of a formatted list")
}
