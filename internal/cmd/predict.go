package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/runger/nicehist/internal/config"
	"github.com/runger/nicehist/internal/rpc"
	"github.com/runger/nicehist/internal/rpcclient"
)

var (
	predictLimit int
	predictJSON  bool
)

var predictCmd = &cobra.Command{
	Use:     "predict [prefix]",
	Short:   "Predict command completions for a prefix in the current directory",
	GroupID: groupCore,
	Args:    cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var prefix string
		if len(args) > 0 {
			prefix = args[0]
		}

		cwd, err := os.Getwd()
		if err != nil {
			return fmt.Errorf("get working directory: %w", err)
		}

		paths := config.DefaultPaths()
		client := rpcclient.New(paths.SocketFile())

		var result rpc.PredictResult
		err = client.Call("predict", rpc.PredictParams{
			Prefix: prefix,
			Cwd:    cwd,
			Limit:  predictLimit,
		}, &result)
		if err != nil {
			return err
		}

		if predictJSON {
			return json.NewEncoder(os.Stdout).Encode(result)
		}
		for _, s := range result.Suggestions {
			fmt.Printf("%s%6.2f%s  %s\n", colorDim, s.Score, colorReset, s.Cmd)
		}
		return nil
	},
}

func init() {
	predictCmd.Flags().IntVarP(&predictLimit, "limit", "n", 10, "maximum number of suggestions")
	predictCmd.Flags().BoolVar(&predictJSON, "json", false, "emit JSON instead of a formatted list")
}
