// Package notify delivers run summaries and fatal alerts to operators.
// Email carries the per-cycle digest; SMS is reserved for fatal supervisor
// errors. Both channels are disabled by default and always best-effort: a
// notification failure is logged and never affects the run.
package notify

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	sestypes "github.com/aws/aws-sdk-go-v2/service/ses/types"
	"github.com/aws/aws-sdk-go-v2/service/sns"

	"applybot/internal/common/config"
	stderrors "applybot/internal/common/errors"
	"applybot/internal/common/logger"
)

// CycleStats is the digest of one supervisor cycle across all applicants.
type CycleStats struct {
	Applicants int
	Submitted  int
	Abandoned  int
	Errors     int
	Duration   time.Duration
}

type Notifier struct {
	cfg       config.NotificationConfig
	sesClient *ses.Client
	snsClient *sns.Client
	logger    logger.Logger
}

// New builds a Notifier. AWS clients are only constructed when at least one
// channel is enabled, so local runs need no credentials.
func New(ctx context.Context, cfg config.NotificationConfig, log logger.Logger) (*Notifier, error) {
	n := &Notifier{
		cfg:    cfg,
		logger: log.WithFields(map[string]interface{}{"component": "notify"}),
	}
	if !cfg.AWS.SES.Enabled && !cfg.AWS.SNS.Enabled {
		return n, nil
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.AWS.Region))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS configuration: %w", err)
	}
	if cfg.AWS.SES.Enabled {
		n.sesClient = ses.NewFromConfig(awsCfg)
	}
	if cfg.AWS.SNS.Enabled {
		n.snsClient = sns.NewFromConfig(awsCfg)
	}
	return n, nil
}

// CycleSummary emails the digest of a finished cycle.
func (n *Notifier) CycleSummary(ctx context.Context, stats CycleStats) {
	if n.sesClient == nil {
		return
	}

	subject := fmt.Sprintf("Application run: %d submitted, %d abandoned", stats.Submitted, stats.Abandoned)
	body := fmt.Sprintf(
		"Cycle finished in %s.\n\nApplicants processed: %d\nApplications submitted: %d\nFlows abandoned: %d\nErrors: %d\n",
		stats.Duration.Round(time.Second), stats.Applicants, stats.Submitted, stats.Abandoned, stats.Errors,
	)

	_, err := n.sesClient.SendEmail(ctx, &ses.SendEmailInput{
		Source: aws.String(n.cfg.AWS.SES.FromEmail),
		Destination: &sestypes.Destination{
			ToAddresses: []string{n.cfg.AWS.SES.ToEmail},
		},
		Message: &sestypes.Message{
			Subject: &sestypes.Content{Data: aws.String(subject)},
			Body: &sestypes.Body{
				Text: &sestypes.Content{Data: aws.String(body)},
			},
		},
	})
	if err != nil {
		n.logger.WithError(stderrors.NewNotificationSendFailedError("email", err)).
			Warn("cycle summary email failed", nil)
		return
	}
	n.logger.Info("cycle summary sent", map[string]interface{}{
		"to": n.cfg.AWS.SES.ToEmail,
	})
}

// FatalAlert sends an SMS when the supervisor hits an unexpected error.
func (n *Notifier) FatalAlert(ctx context.Context, fatal error) {
	if n.snsClient == nil {
		return
	}

	msg := fmt.Sprintf("applybot fatal error, cycle will retry after backoff: %s", fatal.Error())
	if len(msg) > 140 {
		msg = msg[:140]
	}

	_, err := n.snsClient.Publish(ctx, &sns.PublishInput{
		PhoneNumber: aws.String(n.cfg.AWS.SNS.PhoneNumber),
		Message:     aws.String(msg),
	})
	if err != nil {
		n.logger.WithError(stderrors.NewNotificationSendFailedError("sms", err)).
			Warn("fatal alert SMS failed", nil)
		return
	}
	n.logger.Info("fatal alert sent", nil)
}
