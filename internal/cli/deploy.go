package cli

import (
	"fmt"
	"os"

	"github.com/aws/aws-sdk-go-v2/service/eventbridge"
	"github.com/aws/aws-sdk-go-v2/service/iam"
	"github.com/aws/aws-sdk-go-v2/service/lambda"
	"github.com/aws/aws-sdk-go-v2/service/sts"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"quotestash/internal/config"
	"quotestash/internal/handler"
	"quotestash/internal/provision"
)

var (
	deploySchedule string
	deploySymbols  string
	deployFunction string
)

var deployCmd = &cobra.Command{
	Use:   "deploy",
	Short: "Provision the role, package, function, and schedule",
	RunE:  runDeploy,
}

func init() {
	deployCmd.Flags().StringVar(&deploySchedule, "schedule", "", "schedule expression, e.g. \"rate(1 hour)\" or \"cron(0 12 * * ? *)\"")
	deployCmd.Flags().StringVar(&deploySymbols, "symbols", "", "comma-separated symbols to snapshot")
	deployCmd.Flags().StringVar(&deployFunction, "function", "", "function name override")
	rootCmd.AddCommand(deployCmd)
}

func runDeploy(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	out := cmd.OutOrStdout()

	creds, err := config.LoadCredentials(cfgPath)
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	settings := config.LoadSettings(creds.Region)
	if deploySchedule != "" {
		settings.ScheduleExpression = deploySchedule
	}
	if deploySymbols != "" {
		settings.Symbols = config.SplitCSV(deploySymbols)
	}
	if deployFunction != "" {
		settings.FunctionName = deployFunction
	}

	awsCfg, err := awsConfig(ctx, creds)
	if err != nil {
		return fmt.Errorf("aws credentials: %w", err)
	}

	runtimeCfg, err := yaml.Marshal(handler.FileConfig{
		Symbols:   settings.Symbols,
		Bucket:    settings.BucketName,
		KeyPrefix: settings.KeyPrefix,
		Region:    settings.Region,
		Source:    "finnhub",
	})
	if err != nil {
		return fmt.Errorf("package: marshal runtime config: %w", err)
	}

	log := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()
	p := &provision.Provisioner{
		IAM:    iam.NewFromConfig(awsCfg),
		Lambda: lambda.NewFromConfig(awsCfg),
		Events: eventbridge.NewFromConfig(awsCfg),
		STS:    sts.NewFromConfig(awsCfg),
		Bundler: &provision.Bundler{
			HandlerDir:    settings.HandlerDir,
			RuntimeConfig: runtimeCfg,
		},
		Settings: settings,
		APIKey:   creds.FinnhubAPIKey,
		Log:      log,
	}

	if err := p.Run(ctx); err != nil {
		fmt.Fprintf(out, "%s deploy failed: %v\n", failMark, err)
		return err
	}

	fmt.Fprintf(out, "%s deployed %s\n", okMark, dim.Render(p.FunctionArn()))
	fmt.Fprintf(out, "%s runs %s, storing to s3://%s\n", okMark, settings.ScheduleExpression, settings.BucketName)
	return nil
}
