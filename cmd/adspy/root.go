package main

import (
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:          "adspy",
	Short:        "Analyze scraped ad creatives with a multimodal model",
	Long:         "adspy summarizes text, image and video ads and describes their media, writing one row per ad.",
	Version:      "1.0.0",
	SilenceUsage: true,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
