package cli

import (
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sts"
	"github.com/spf13/cobra"

	"quotestash/internal/config"
	"quotestash/internal/finnhub"
	"quotestash/internal/httpx"
	"quotestash/internal/storage"
)

// probeSymbol is only used to exercise the quote endpoint; any
// well-known ticker works.
const probeSymbol = "AAPL"

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Validate the configured credentials against AWS and Finnhub",
	RunE:  runCheck,
}

func init() {
	rootCmd.AddCommand(checkCmd)
}

func runCheck(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	out := cmd.OutOrStdout()

	creds, err := config.LoadCredentials(cfgPath)
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	fmt.Fprintf(out, "%s credentials file %s\n", okMark, cfgPath)

	awsCfg, err := awsConfig(ctx, creds)
	if err != nil {
		return fmt.Errorf("aws credentials: %w", err)
	}
	ident, err := sts.NewFromConfig(awsCfg).GetCallerIdentity(ctx, &sts.GetCallerIdentityInput{})
	if err != nil {
		return fmt.Errorf("aws credentials: %w", err)
	}
	fmt.Fprintf(out, "%s aws account %s (%s)\n", okMark, aws.ToString(ident.Account), creds.Region)

	client, err := finnhub.NewClient(creds.FinnhubAPIKey,
		finnhub.WithHTTPClient(httpx.New(10*time.Second)))
	if err != nil {
		return fmt.Errorf("finnhub api: %w", err)
	}
	if _, err := client.Quote(ctx, probeSymbol); err != nil {
		return fmt.Errorf("finnhub api: %w", err)
	}
	fmt.Fprintf(out, "%s finnhub api key accepted\n", okMark)

	exportEnv(creds)
	settings := config.LoadSettings(creds.Region)
	store, err := storage.NewClient(storage.Config{
		Region: settings.Region,
		Bucket: settings.BucketName,
		UseSSL: true,
	})
	if err != nil {
		return fmt.Errorf("storage: %w", err)
	}
	exists, err := store.BucketExists(ctx)
	switch {
	case err != nil:
		return fmt.Errorf("storage: %w", err)
	case !exists:
		// Not fatal: the operator may still have to create the bucket.
		fmt.Fprintf(out, "%s bucket %s does not exist yet\n", warnMark, settings.BucketName)
	default:
		fmt.Fprintf(out, "%s bucket %s reachable\n", okMark, settings.BucketName)
	}

	fmt.Fprintf(out, "%s all checks passed\n", okMark)
	return nil
}
