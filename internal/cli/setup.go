package cli

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var setupCmd = &cobra.Command{
	Use:   "setup",
	Short: "Interactively write the credentials file",
	RunE:  runSetup,
}

func init() {
	rootCmd.AddCommand(setupCmd)
}

func runSetup(cmd *cobra.Command, _ []string) error {
	in := bufio.NewReader(cmd.InOrStdin())
	out := cmd.OutOrStdout()

	fmt.Fprintln(out, dim.Render("Credentials are stored locally in "+cfgPath+"; keep it out of version control."))

	kv := map[string]string{}
	for _, q := range []struct {
		key, prompt, fallback string
	}{
		{"AWS_ACCESS_KEY_ID", "AWS access key ID", ""},
		{"AWS_SECRET_ACCESS_KEY", "AWS secret access key", ""},
		{"AWS_DEFAULT_REGION", "AWS region", "us-east-1"},
		{"FINNHUB_API_KEY", "Finnhub API key", ""},
	} {
		label := q.prompt
		if q.fallback != "" {
			label += " [" + q.fallback + "]"
		}
		fmt.Fprintf(out, "%s: ", label)
		line, err := in.ReadString('\n')
		if err != nil {
			return fmt.Errorf("setup: read input: %w", err)
		}
		val := strings.TrimSpace(line)
		if val == "" {
			val = q.fallback
		}
		if val == "" {
			return fmt.Errorf("setup: %s must not be empty", q.key)
		}
		kv[q.key] = val
	}

	if err := godotenv.Write(kv, cfgPath); err != nil {
		return fmt.Errorf("setup: write %s: %w", cfgPath, err)
	}
	if err := os.Chmod(cfgPath, 0o600); err != nil {
		return fmt.Errorf("setup: chmod %s: %w", cfgPath, err)
	}
	fmt.Fprintf(out, "%s wrote %s\n", okMark, cfgPath)
	return nil
}
