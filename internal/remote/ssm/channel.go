// Package ssm implements remote.Channel on top of AWS Systems Manager Run Command.
package ssm

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/request"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/ssm"
	"github.com/aws/aws-sdk-go/service/ssm/ssmiface"

	"github.com/MrSnakeDoc/shipcheck/internal/domain"
	"github.com/MrSnakeDoc/shipcheck/internal/logger"
	"github.com/MrSnakeDoc/shipcheck/internal/remote"
)

const (
	// DocumentName is the managed document that runs shell commands on Linux instances.
	DocumentName = "AWS-RunShellScript"

	defaultWaitDelay    = 2 * time.Second
	defaultWaitAttempts = 30
)

// Config holds the AWS settings for the channel.
type Config struct {
	Region          string        // ex: "eu-west-3"
	AccessKeyID     string        // optional, default credential chain when empty
	SecretAccessKey string        // optional
	CommandTimeout  time.Duration // per-command execution timeout on the instance
	WaitDelay       time.Duration // delay between GetCommandInvocation polls
	WaitAttempts    int           // max polls before AwaitCompletion gives up
}

// Channel sends commands through SSM.
type Channel struct {
	svc    ssmiface.SSMAPI
	cfg    Config
	logger logger.Logger
}

var _ remote.Channel = (*Channel)(nil)

// New builds an SSM client from cfg. Static credentials are used only when
// both keys are set.
func New(cfg Config, log logger.Logger) (*Channel, error) {
	if cfg.Region == "" {
		return nil, errors.New("ssm: region is required")
	}

	awsCfg := &aws.Config{Region: aws.String(cfg.Region)}
	if cfg.AccessKeyID != "" && cfg.SecretAccessKey != "" {
		awsCfg.Credentials = credentials.NewStaticCredentials(cfg.AccessKeyID, cfg.SecretAccessKey, "")
	}

	sess, err := session.NewSession(awsCfg)
	if err != nil {
		return nil, fmt.Errorf("ssm: create session: %w", err)
	}

	return NewWithClient(ssm.New(sess), cfg, log), nil
}

// NewWithClient wraps an existing client; tests pass a mock here.
func NewWithClient(svc ssmiface.SSMAPI, cfg Config, log logger.Logger) *Channel {
	if cfg.WaitDelay <= 0 {
		cfg.WaitDelay = defaultWaitDelay
	}
	if cfg.WaitAttempts <= 0 {
		cfg.WaitAttempts = defaultWaitAttempts
	}
	return &Channel{svc: svc, cfg: cfg, logger: log}
}

func (c *Channel) Send(ctx context.Context, target domain.Target, command string) (string, error) {
	input := &ssm.SendCommandInput{
		DocumentName: aws.String(DocumentName),
		InstanceIds:  aws.StringSlice([]string{target.InstanceID}),
		Parameters: map[string][]*string{
			"commands": aws.StringSlice([]string{command}),
		},
		Comment: aws.String("shipcheck " + target.Name),
	}
	if c.cfg.CommandTimeout > 0 {
		input.Parameters["executionTimeout"] = aws.StringSlice([]string{
			fmt.Sprintf("%d", int(c.cfg.CommandTimeout.Seconds())),
		})
	}

	out, err := c.svc.SendCommandWithContext(ctx, input)
	if err != nil {
		return "", fmt.Errorf("ssm send command: %w", err)
	}
	if out.Command == nil || aws.StringValue(out.Command.CommandId) == "" {
		return "", errors.New("ssm send command: empty command id")
	}

	id := aws.StringValue(out.Command.CommandId)
	c.logger.Debug("ssm command sent",
		logger.String("target", target.Name),
		logger.String("instance_id", target.InstanceID),
		logger.String("command_id", id))
	return id, nil
}

func (c *Channel) AwaitCompletion(ctx context.Context, target domain.Target, commandID string) error {
	err := c.svc.WaitUntilCommandExecutedWithContext(ctx, c.invocationInput(target, commandID),
		request.WithWaiterDelay(request.ConstantWaiterDelay(c.cfg.WaitDelay)),
		request.WithWaiterMaxAttempts(c.cfg.WaitAttempts),
	)
	if err != nil {
		return fmt.Errorf("ssm wait command %s: %w", commandID, err)
	}
	return nil
}

func (c *Channel) FetchOutput(ctx context.Context, target domain.Target, commandID string) (string, error) {
	out, err := c.svc.GetCommandInvocationWithContext(ctx, c.invocationInput(target, commandID))
	if err != nil {
		return "", fmt.Errorf("ssm get command invocation %s: %w", commandID, err)
	}

	c.logger.Debug("ssm command output fetched",
		logger.String("command_id", commandID),
		logger.String("status", aws.StringValue(out.Status)))
	return aws.StringValue(out.StandardOutputContent), nil
}

func (c *Channel) invocationInput(target domain.Target, commandID string) *ssm.GetCommandInvocationInput {
	return &ssm.GetCommandInvocationInput{
		CommandId:  aws.String(commandID),
		InstanceId: aws.String(target.InstanceID),
	}
}
