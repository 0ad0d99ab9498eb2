package cli

import (
	"context"
	"os"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	awscreds "github.com/aws/aws-sdk-go-v2/credentials"

	"quotestash/internal/config"
)

func awsConfig(ctx context.Context, creds config.Credentials) (aws.Config, error) {
	return awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(creds.Region),
		awsconfig.WithCredentialsProvider(
			awscreds.NewStaticCredentialsProvider(creds.AWSAccessKeyID, creds.AWSSecretAccessKey, "")),
	)
}

// exportEnv mirrors the credentials file into the process env so the
// storage client's env credential chain sees the same identity the
// SDK clients were built with.
func exportEnv(creds config.Credentials) {
	os.Setenv("AWS_ACCESS_KEY_ID", creds.AWSAccessKeyID)
	os.Setenv("AWS_SECRET_ACCESS_KEY", creds.AWSSecretAccessKey)
	os.Setenv("AWS_DEFAULT_REGION", creds.Region)
}
