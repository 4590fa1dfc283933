// Package aws adapts the WorkSpaces, SES and CloudTrail APIs to wsreap's
// provider, sender and event-source interfaces.
package aws

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/cloudtrail"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/workspaces"
)

// Config holds AWS adapter configuration.
type Config struct {
	Region string
	// SourceEmail is the SES-verified sender address.
	SourceEmail string
}

// Clients bundles the adapters built from one AWS config.
type Clients struct {
	Provider       *Provider
	Notifier       *Notifier
	CreationEvents *CreationEvents
}

// New loads the default credential chain and builds the adapters. SDK
// retries are disabled; callers retry through the backoff executor.
func New(ctx context.Context, cfg Config) (*Clients, error) {
	awsCfg, err := config.LoadDefaultConfig(ctx,
		config.WithRegion(cfg.Region),
		config.WithRetryer(func() aws.Retryer { return aws.NopRetryer{} }),
	)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	return &Clients{
		Provider:       NewProvider(workspaces.NewFromConfig(awsCfg)),
		Notifier:       NewNotifier(ses.NewFromConfig(awsCfg), cfg.SourceEmail),
		CreationEvents: NewCreationEvents(cloudtrail.NewFromConfig(awsCfg)),
	}, nil
}
