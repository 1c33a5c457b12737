package cmd

import (
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/edumesh/liveclass/internal/ui"
	"github.com/edumesh/liveclass/internal/version"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:     "liveclass",
	Short:   "Live classroom sessions from the terminal, over WebRTC",
	Long:    `LiveClass joins full-mesh WebRTC classroom rooms directly from the command line. It connects to the same relay the web pages use, so terminal participants share audio, video, screen and chat with browser participants.`,
	Version: version.Version,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt)
	go func() {
		<-sig
		os.Exit(0)
	}()

	rootCmd.SilenceErrors = true
	rootCmd.SilenceUsage = true

	if err := rootCmd.Execute(); err != nil {
		ui.PrintError(err.Error())
		os.Exit(1)
	}
}
