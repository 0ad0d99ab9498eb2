package provision

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/lambda"
	lambdatypes "github.com/aws/aws-sdk-go-v2/service/lambda/types"
)

const (
	functionHandler = "bootstrap"
	propagationMax  = 5
	propagationCap  = 30 * time.Second
)

// publishFunction uploads the package and creates or updates the
// function. The API key is injected as an environment variable here
// and only here; the package contents never carry it. A missing key
// fails before any upload is attempted.
func (p *Provisioner) publishFunction(ctx context.Context) error {
	if p.APIKey == "" {
		return missingKey("FINNHUB_API_KEY")
	}
	zipBytes, err := os.ReadFile(p.zipPath)
	if err != nil {
		return fmt.Errorf("read package %s: %w", p.zipPath, err)
	}

	env := &lambdatypes.Environment{Variables: map[string]string{
		"FINNHUB_API_KEY": p.APIKey,
		"S3_BUCKET":       p.Settings.BucketName,
	}}

	_, err = p.Lambda.GetFunction(ctx, &lambda.GetFunctionInput{
		FunctionName: aws.String(p.Settings.FunctionName),
	})
	if err == nil {
		return p.updateFunction(ctx, zipBytes, env)
	}
	var notFound *lambdatypes.ResourceNotFoundException
	if !errors.As(err, &notFound) {
		return fmt.Errorf("get function %s: %w", p.Settings.FunctionName, err)
	}
	return p.createFunction(ctx, zipBytes, env)
}

func (p *Provisioner) updateFunction(ctx context.Context, zipBytes []byte, env *lambdatypes.Environment) error {
	p.Log.Info().Str("function", p.Settings.FunctionName).Msg("updating existing function")
	if _, err := p.Lambda.UpdateFunctionCode(ctx, &lambda.UpdateFunctionCodeInput{
		FunctionName: aws.String(p.Settings.FunctionName),
		ZipFile:      zipBytes,
	}); err != nil {
		return fmt.Errorf("update function code: %w", err)
	}
	out, err := p.Lambda.UpdateFunctionConfiguration(ctx, &lambda.UpdateFunctionConfigurationInput{
		FunctionName: aws.String(p.Settings.FunctionName),
		Runtime:      lambdatypes.RuntimeProvidedal2023,
		Handler:      aws.String(functionHandler),
		Role:         aws.String(p.roleArn),
		Timeout:      aws.Int32(p.Settings.TimeoutSeconds),
		MemorySize:   aws.Int32(p.Settings.MemoryLimitMB),
		Environment:  env,
	})
	if err != nil {
		return fmt.Errorf("update function configuration: %w", err)
	}
	p.functionArn = aws.ToString(out.FunctionArn)
	return nil
}

// createFunction creates the function, waiting out IAM eventual
// consistency: a just-created role is rejected with
// InvalidParameterValue until it propagates, so that one error retries
// with capped exponential backoff. Everything else is fatal at once.
func (p *Provisioner) createFunction(ctx context.Context, zipBytes []byte, env *lambdatypes.Environment) error {
	p.Log.Info().Str("function", p.Settings.FunctionName).Msg("creating new function")
	in := &lambda.CreateFunctionInput{
		FunctionName:  aws.String(p.Settings.FunctionName),
		Runtime:       lambdatypes.RuntimeProvidedal2023,
		Handler:       aws.String(functionHandler),
		Role:          aws.String(p.roleArn),
		Code:          &lambdatypes.FunctionCode{ZipFile: zipBytes},
		Timeout:       aws.Int32(p.Settings.TimeoutSeconds),
		MemorySize:    aws.Int32(p.Settings.MemoryLimitMB),
		Environment:   env,
		Architectures: []lambdatypes.Architecture{lambdatypes.ArchitectureArm64},
	}

	backoff := p.waitBase
	if backoff <= 0 {
		backoff = 2 * time.Second
	}
	var lastErr error
	for attempt := 0; attempt < propagationMax; attempt++ {
		if attempt > 0 {
			p.Log.Info().Dur("backoff", backoff).Int("attempt", attempt+1).Msg("waiting for role propagation")
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return ctx.Err()
			}
			if backoff *= 2; backoff > propagationCap {
				backoff = propagationCap
			}
		}
		out, err := p.Lambda.CreateFunction(ctx, in)
		if err == nil {
			p.functionArn = aws.ToString(out.FunctionArn)
			return nil
		}
		var invalid *lambdatypes.InvalidParameterValueException
		if !errors.As(err, &invalid) {
			return fmt.Errorf("create function: %w", err)
		}
		lastErr = err
	}
	return fmt.Errorf("create function: role propagation wait exhausted after %d attempts: %w", propagationMax, lastErr)
}
