package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/livebridge/livebridge/internal/config"
	"github.com/livebridge/livebridge/internal/installer"
)

// Overridden at build time with -ldflags "-X main.version=...".
var version = "dev"

var rootCmd = &cobra.Command{
	Use:     "livebridge",
	Short:   "Bridge between touch clients and Ableton Live",
	Long:    "livebridge mirrors an Ableton Live session over OSC and serves it to touch clients as JSON over WebSocket.",
	Version: version,
}

var installCmd = &cobra.Command{
	Use:   "install",
	Short: "Install the remote script into Ableton Live",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.Load()
		scriptsDir, err := config.RemoteScriptsDir()
		if err != nil {
			return err
		}
		src, err := installer.SourceDir(cfg.RemoteScriptName)
		if err != nil {
			return err
		}
		if err := installer.Install(src, scriptsDir, cfg.RemoteScriptName); err != nil {
			return err
		}
		fmt.Printf("%s installed to %s\n", cfg.RemoteScriptName, scriptsDir)
		fmt.Println("Restart Ableton Live and select the script under Preferences > Link/MIDI.")
		return nil
	},
}

var uninstallCmd = &cobra.Command{
	Use:   "uninstall",
	Short: "Remove the remote script from Ableton Live",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.Load()
		scriptsDir, err := config.RemoteScriptsDir()
		if err != nil {
			return err
		}
		if err := installer.Uninstall(scriptsDir, cfg.RemoteScriptName); err != nil {
			return err
		}
		fmt.Printf("%s removed\n", cfg.RemoteScriptName)
		return nil
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show remote script installation status",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.Load()
		scriptsDir, err := config.RemoteScriptsDir()
		if err != nil {
			return err
		}
		if ok, target := installer.IsInstalled(scriptsDir, cfg.RemoteScriptName); ok {
			fmt.Printf("%s installed at %s\n", cfg.RemoteScriptName, target)
		} else {
			fmt.Printf("%s not installed (run: livebridge install)\n", cfg.RemoteScriptName)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(serveCmd, installCmd, uninstallCmd, statusCmd)
}
