// Package provision brings the cloud side of the deployment to its
// desired state: execution role, policies, deployment package, Lambda
// function, and the schedule that triggers it. The sequence is a
// linear state machine with no branching back; any fatal step aborts
// the run and the local staging area is cleaned up on every exit path.
package provision

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sts"
	"github.com/rs/zerolog"

	"quotestash/internal/config"
)

// State names the provisioning progress. Transitions are strictly
// forward; a fatal failure moves to StateAborted and stays there.
type State string

const (
	StateUninitialized     State = "uninitialized"
	StateIdentityReady     State = "identity_ready"
	StatePolicyReady       State = "policy_ready"
	StatePackageBuilt      State = "package_built"
	StateFunctionPublished State = "function_published"
	StateScheduleActive    State = "schedule_active"
	StateCleaned           State = "cleaned"
	StateAborted           State = "aborted"
)

// StepError reports which provisioning step failed. The operator
// corrects the cause and re-runs; creates are idempotent.
type StepError struct {
	Step string
	Err  error
}

func (e *StepError) Error() string { return e.Step + ": " + e.Err.Error() }
func (e *StepError) Unwrap() error { return e.Err }

// Provisioner executes one provisioning pass. Construct with the
// concrete AWS clients (or fakes) and call Run once; it is not safe
// for concurrent use and is not meant to be reused.
type Provisioner struct {
	IAM      IAMAPI
	Lambda   LambdaAPI
	Events   EventsAPI
	STS      STSAPI
	Bundler  *Bundler
	Settings config.Settings
	APIKey   string
	Log      zerolog.Logger

	state       State
	accountID   string
	roleArn     string
	zipPath     string
	functionArn string

	// waitBase seeds the role-propagation backoff; tests shrink it.
	waitBase time.Duration
}

type step struct {
	name string
	fn   func(ctx context.Context) error
	next State
}

func (p *Provisioner) State() State {
	if p.state == "" {
		return StateUninitialized
	}
	return p.state
}

// Run executes the full pass: identity, policies, package, publish,
// schedule. Every external call is a single attempt; the only retry
// anywhere is the bounded wait for the new role to become assumable.
func (p *Provisioner) Run(ctx context.Context) (err error) {
	p.state = StateUninitialized
	defer func() {
		p.Bundler.Cleanup()
		if err == nil {
			p.state = StateCleaned
		}
	}()

	// Pre-flight: reject a bad schedule expression before touching any
	// cloud resource, and fail fast on rejected cloud credentials.
	if err := ValidateExpression(p.Settings.ScheduleExpression); err != nil {
		p.state = StateAborted
		return &StepError{Step: "preflight", Err: err}
	}
	ident, err := p.STS.GetCallerIdentity(ctx, &sts.GetCallerIdentityInput{})
	if err != nil {
		p.state = StateAborted
		return &StepError{Step: "credentials", Err: err}
	}
	p.accountID = aws.ToString(ident.Account)
	p.Log.Info().Str("account", p.accountID).Str("region", p.Settings.Region).Msg("starting provisioning")

	steps := []step{
		{name: "identity", fn: p.ensureIdentity, next: StateIdentityReady},
		{name: "policy", fn: p.attachPolicies, next: StatePolicyReady},
		{name: "package", fn: p.buildPackage, next: StatePackageBuilt},
		{name: "publish", fn: p.publishFunction, next: StateFunctionPublished},
		{name: "schedule", fn: p.ensureSchedule, next: StateScheduleActive},
	}
	for _, s := range steps {
		start := time.Now()
		if err := s.fn(ctx); err != nil {
			p.state = StateAborted
			p.Log.Error().Err(err).Str("step", s.name).Msg("provisioning aborted")
			return &StepError{Step: s.name, Err: err}
		}
		p.state = s.next
		p.Log.Info().Str("step", s.name).Dur("took", time.Since(start)).Msg("step complete")
	}

	p.Log.Info().
		Str("function", p.Settings.FunctionName).
		Str("schedule", p.Settings.ScheduleExpression).
		Msg("deployment complete")
	return nil
}

func (p *Provisioner) buildPackage(ctx context.Context) error {
	zipPath, err := p.Bundler.Build(ctx)
	if err != nil {
		return err
	}
	p.zipPath = zipPath
	return nil
}

// FunctionArn is the ARN of the published function, set once the
// publish step has completed.
func (p *Provisioner) FunctionArn() string { return p.functionArn }

func missingKey(key string) error {
	return fmt.Errorf("%w: %s", config.ErrMissingKey, key)
}
