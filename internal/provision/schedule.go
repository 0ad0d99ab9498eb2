package provision

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/eventbridge"
	ebtypes "github.com/aws/aws-sdk-go-v2/service/eventbridge/types"
	"github.com/aws/aws-sdk-go-v2/service/lambda"
	lambdatypes "github.com/aws/aws-sdk-go-v2/service/lambda/types"
	"github.com/hashicorp/cronexpr"
)

const invokeStatementID = "EventBridgeInvoke"

var rateRe = regexp.MustCompile(`^rate\((\d+) (minute|minutes|hour|hours|day|days)\)$`)

// ValidateExpression checks a schedule expression before it is handed
// verbatim to the rule creation call: either rate(N unit) with the
// singular/plural agreement EventBridge enforces, or cron(...) with
// six fields.
func ValidateExpression(expr string) error {
	if m := rateRe.FindStringSubmatch(expr); m != nil {
		n, err := strconv.Atoi(m[1])
		if err != nil || n < 1 {
			return fmt.Errorf("invalid rate value in %q", expr)
		}
		plural := strings.HasSuffix(m[2], "s")
		if n == 1 && plural {
			return fmt.Errorf("rate value 1 requires a singular unit: %q", expr)
		}
		if n > 1 && !plural {
			return fmt.Errorf("rate value %d requires a plural unit: %q", n, expr)
		}
		return nil
	}
	if inner, ok := strings.CutPrefix(expr, "cron("); ok && strings.HasSuffix(inner, ")") {
		fields := strings.Fields(strings.TrimSuffix(inner, ")"))
		if len(fields) != 6 {
			return fmt.Errorf("cron expression must have 6 fields, got %d: %q", len(fields), expr)
		}
		// cronexpr has no year field and no ?, so check the first five
		// fields with ? mapped to its * equivalent.
		head := strings.ReplaceAll(strings.Join(fields[:5], " "), "?", "*")
		if _, err := cronexpr.Parse(head); err != nil {
			return fmt.Errorf("invalid cron expression %q: %w", expr, err)
		}
		return nil
	}
	return fmt.Errorf("schedule expression must be rate(...) or cron(...): %q", expr)
}

// ensureSchedule creates or updates the recurrence rule and binds it
// to the function. Order matters: rule first (the grant references its
// ARN), the invocation permission second, and the target binding last
// because binding is the activation step. A rule bound without its
// grant would silently never fire.
func (p *Provisioner) ensureSchedule(ctx context.Context) error {
	rule, err := p.Events.PutRule(ctx, &eventbridge.PutRuleInput{
		Name:               aws.String(p.Settings.RuleName),
		ScheduleExpression: aws.String(p.Settings.ScheduleExpression),
	})
	if err != nil {
		return fmt.Errorf("put rule %s: %w", p.Settings.RuleName, err)
	}

	_, err = p.Lambda.AddPermission(ctx, &lambda.AddPermissionInput{
		FunctionName: aws.String(p.Settings.FunctionName),
		StatementId:  aws.String(invokeStatementID),
		Action:       aws.String("lambda:InvokeFunction"),
		Principal:    aws.String("events.amazonaws.com"),
		SourceArn:    rule.RuleArn,
	})
	if err != nil {
		var conflict *lambdatypes.ResourceConflictException
		if !errors.As(err, &conflict) {
			return fmt.Errorf("grant invoke permission: %w", err)
		}
		p.Log.Info().Str("rule", p.Settings.RuleName).Msg("invoke permission already present")
	}

	out, err := p.Events.PutTargets(ctx, &eventbridge.PutTargetsInput{
		Rule: aws.String(p.Settings.RuleName),
		Targets: []ebtypes.Target{{
			Id:  aws.String("1"),
			Arn: aws.String(p.functionArn),
		}},
	})
	if err != nil {
		return fmt.Errorf("put targets for rule %s: %w", p.Settings.RuleName, err)
	}
	if out.FailedEntryCount > 0 {
		return fmt.Errorf("put targets for rule %s: %d entries failed", p.Settings.RuleName, out.FailedEntryCount)
	}
	p.Log.Info().Str("rule", p.Settings.RuleName).Str("schedule", p.Settings.ScheduleExpression).Msg("schedule active")
	return nil
}
