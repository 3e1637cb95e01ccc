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

var frecentCmd = &cobra.Command{
	Use:     "frecent",
	Short:   "Manage frecency-ranked paths (fasd/z-style directory jumping)",
	GroupID: groupCore,
}

var (
	frecentAddType string
	frecentAddRank float64
)

var frecentAddCmd = &cobra.Command{
	Use:   "add <path>",
	Short: "Bump a path's frecency score",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		paths := config.DefaultPaths()
		client := rpcclient.New(paths.SocketFile())

		p := rpc.FrecentAddParams{Path: args[0], PathType: frecentAddType}
		if cmd.Flags().Changed("rank") {
			p.Rank = &frecentAddRank
		}
		return client.Call("frecent_add", p, nil)
	},
}

var (
	frecentQueryType  string
	frecentQueryLimit int
	frecentQueryRaw   bool
	frecentQueryJSON  bool
)

var frecentQueryCmd = &cobra.Command{
	Use:   "query [terms...]",
	Short: "Query frecency-ranked paths by fragment match",
	RunE: func(cmd *cobra.Command, args []string) error {
		paths := config.DefaultPaths()
		client := rpcclient.New(paths.SocketFile())

		var result rpc.FrecencyResultList
		err := client.Call("frecent_query", rpc.FrecentQueryParams{
			Terms:    args,
			PathType: frecentQueryType,
			Limit:    frecentQueryLimit,
			Raw:      frecentQueryRaw,
		}, &result)
		if err != nil {
			return err
		}

		if frecentQueryJSON {
			return json.NewEncoder(os.Stdout).Encode(result)
		}
		for _, r := range result.Results {
			fmt.Printf("%s%8.2f%s  %s\n", colorDim, r.Score, colorReset, r.Path)
		}
		return nil
	},
}

func init() {
	frecentAddCmd.Flags().StringVar(&frecentAddType, "type", "d", "path type: d (directory) or f (file)")
	frecentAddCmd.Flags().Float64Var(&frecentAddRank, "rank", 0, "import-mode rank; the stored rank becomes the larger of this and the current rank")

	frecentQueryCmd.Flags().StringVar(&frecentQueryType, "type", "d", "path type: d (directory) or f (file)")
	frecentQueryCmd.Flags().IntVarP(&frecentQueryLimit, "limit", "n", 20, "maximum number of results")
	frecentQueryCmd.Flags().BoolVar(&frecentQueryRaw, "raw", false, "list every row by rank, skipping fragment matching and recency weighting")
	frecentQueryCmd.Flags().BoolVar(&frecentQueryJSON, "json", false, "emit JSON instead of a formatted list")

	frecentCmd.AddCommand(frecentAddCmd)
	frecentCmd.AddCommand(frecentQueryCmd)
}
