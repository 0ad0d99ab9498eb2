// Package cli implements the operator commands: setup writes the
// credentials file, check validates it against AWS and Finnhub, and
// deploy runs the provisioner end to end.
package cli

import (
	"github.com/spf13/cobra"
)

var cfgPath string

var rootCmd = &cobra.Command{
	Use:   "quotestash",
	Short: "Deploy and operate the scheduled Finnhub quote snapshotter",
	Long: `quotestash provisions an AWS Lambda function that fetches Finnhub
stock quotes on a fixed schedule and stores each quote as a JSON
object in S3.

Run "quotestash setup" once to write the credentials file, "quotestash
check" to validate it, and "quotestash deploy" to provision everything.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgPath, "config", ".env", "path to the credentials file")
}
