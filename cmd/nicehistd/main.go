// nicehistd is the nicehist background daemon: it owns the database and
// serves predict/search/frecent/context requests over a Unix socket.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/runger/nicehist/internal/config"
	"github.com/runger/nicehist/internal/daemon"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "nicehistd: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	paths := config.DefaultPaths()

	cfgObj, cfgErr := config.Load()
	if cfgErr != nil {
		cfgObj = config.DefaultConfig()
	}
	cfgObj.ApplyEnvOverrides()
	cfgObj.ValidateAndFix()

	reload := func() error {
		reloaded, err := config.Load()
		if err != nil {
			return err
		}
		reloaded.ApplyEnvOverrides()
		reloaded.ValidateAndFix()
		*cfgObj = *reloaded
		return nil
	}

	serverCfg := &daemon.ServerConfig{
		Paths:    paths,
		Config:   cfgObj,
		ReloadFn: reload,
	}

	return daemon.Run(context.Background(), serverCfg)
}
