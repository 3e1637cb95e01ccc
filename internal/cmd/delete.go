package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/runger/nicehist/internal/config"
	"github.com/runger/nicehist/internal/rpc"
	"github.com/runger/nicehist/internal/rpcclient"
)

var deleteCmd = &cobra.Command{
	Use:     "delete <cmd>",
	Short:   "Forget a command: delete it and every history entry derived from it",
	GroupID: groupCore,
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		paths := config.DefaultPaths()
		client := rpcclient.New(paths.SocketFile())

		var result rpc.DeleteResult
		if err := client.Call("delete", rpc.DeleteParams{Cmd: args[0]}, &result); err != nil {
			return err
		}

		if result.Deleted {
			fmt.Printf("%sdeleted%s\n", colorGreen, colorReset)
		} else {
			fmt.Printf("%snot found%s\n", colorDim, colorReset)
		}
		return nil
	},
}
