package aws

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/service/cloudtrail"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/workspaces"
)

// WorkSpacesAPI defines the WorkSpaces operations used by the provider.
type WorkSpacesAPI interface {
	DescribeWorkspaces(ctx context.Context, params *workspaces.DescribeWorkspacesInput, optFns ...func(*workspaces.Options)) (*workspaces.DescribeWorkspacesOutput, error)
	DescribeWorkspacesConnectionStatus(ctx context.Context, params *workspaces.DescribeWorkspacesConnectionStatusInput, optFns ...func(*workspaces.Options)) (*workspaces.DescribeWorkspacesConnectionStatusOutput, error)
	DescribeTags(ctx context.Context, params *workspaces.DescribeTagsInput, optFns ...func(*workspaces.Options)) (*workspaces.DescribeTagsOutput, error)
	TerminateWorkspaces(ctx context.Context, params *workspaces.TerminateWorkspacesInput, optFns ...func(*workspaces.Options)) (*workspaces.TerminateWorkspacesOutput, error)
	CreateTags(ctx context.Context, params *workspaces.CreateTagsInput, optFns ...func(*workspaces.Options)) (*workspaces.CreateTagsOutput, error)
}

// SESAPI defines the SES operations used by the notifier.
type SESAPI interface {
	SendEmail(ctx context.Context, params *ses.SendEmailInput, optFns ...func(*ses.Options)) (*ses.SendEmailOutput, error)
}

// CloudTrailAPI defines the CloudTrail operations used for creation events.
type CloudTrailAPI interface {
	LookupEvents(ctx context.Context, params *cloudtrail.LookupEventsInput, optFns ...func(*cloudtrail.Options)) (*cloudtrail.LookupEventsOutput, error)
}
