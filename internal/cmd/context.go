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

var contextCmd = &cobra.Command{
	Use:     "context",
	Short:   "Show detected VCS and project-type context for the current directory",
	GroupID: groupCore,
	RunE: func(cmd *cobra.Command, _ []string) error {
		cwd, err := os.Getwd()
		if err != nil {
			return fmt.Errorf("get working directory: %w", err)
		}

		paths := config.DefaultPaths()
		client := rpcclient.New(paths.SocketFile())

		var info rpc.ContextInfo
		if err := client.Call("context", rpc.ContextParams{Cwd: cwd}, &info); err != nil {
			return err
		}

		return json.NewEncoder(os.Stdout).Encode(info)
	},
}
