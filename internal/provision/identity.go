package provision

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/iam"
	iamtypes "github.com/aws/aws-sdk-go-v2/service/iam/types"
)

const basicExecutionPolicyARN = "arn:aws:iam::aws:policy/service-role/AWSLambdaBasicExecutionRole"

// trustPolicy lets the Lambda service assume the execution role.
const trustPolicy = `{
  "Version": "2012-10-17",
  "Statement": [{
    "Effect": "Allow",
    "Principal": {"Service": "lambda.amazonaws.com"},
    "Action": "sts:AssumeRole"
  }]
}`

// bucketPolicy grants read/write/list scoped to exactly one bucket.
func bucketPolicy(bucket string) string {
	return fmt.Sprintf(`{
  "Version": "2012-10-17",
  "Statement": [{
    "Effect": "Allow",
    "Action": ["s3:PutObject", "s3:GetObject", "s3:ListBucket"],
    "Resource": ["arn:aws:s3:::%[1]s", "arn:aws:s3:::%[1]s/*"]
  }]
}`, bucket)
}

// ensureIdentity creates the execution role. An already-existing role
// is the normal re-run case and resolves to a lookup; any other
// failure is fatal. The role is never deleted by this tool.
func (p *Provisioner) ensureIdentity(ctx context.Context) error {
	out, err := p.IAM.CreateRole(ctx, &iam.CreateRoleInput{
		RoleName:                 aws.String(p.Settings.RoleName),
		AssumeRolePolicyDocument: aws.String(trustPolicy),
	})
	if err != nil {
		var exists *iamtypes.EntityAlreadyExistsException
		if !errors.As(err, &exists) {
			return fmt.Errorf("create role %s: %w", p.Settings.RoleName, err)
		}
		got, err := p.IAM.GetRole(ctx, &iam.GetRoleInput{RoleName: aws.String(p.Settings.RoleName)})
		if err != nil {
			return fmt.Errorf("get existing role %s: %w", p.Settings.RoleName, err)
		}
		p.roleArn = aws.ToString(got.Role.Arn)
		p.Log.Info().Str("role", p.Settings.RoleName).Msg("role already exists")
		return nil
	}
	p.roleArn = aws.ToString(out.Role.Arn)
	p.Log.Info().Str("role", p.Settings.RoleName).Msg("created role")
	return nil
}

// attachPolicies grants baseline execution rights plus bucket-scoped
// storage access. Both attach calls are idempotent on re-run. This
// must complete before publish: CreateFunction binds the role by ARN
// and rejects a role it cannot resolve.
func (p *Provisioner) attachPolicies(ctx context.Context) error {
	if _, err := p.IAM.AttachRolePolicy(ctx, &iam.AttachRolePolicyInput{
		RoleName:  aws.String(p.Settings.RoleName),
		PolicyArn: aws.String(basicExecutionPolicyARN),
	}); err != nil {
		return fmt.Errorf("attach managed policy: %w", err)
	}
	if _, err := p.IAM.PutRolePolicy(ctx, &iam.PutRolePolicyInput{
		RoleName:       aws.String(p.Settings.RoleName),
		PolicyName:     aws.String("S3AccessPolicy"),
		PolicyDocument: aws.String(bucketPolicy(p.Settings.BucketName)),
	}); err != nil {
		return fmt.Errorf("put inline bucket policy: %w", err)
	}
	return nil
}
