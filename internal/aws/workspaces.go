package aws

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/workspaces"
	"github.com/aws/aws-sdk-go-v2/service/workspaces/types"

	"github.com/yairfalse/wsreap/inventory"
)

// connectionStatusBatch is the most ids DescribeWorkspacesConnectionStatus
// accepts per call.
const connectionStatusBatch = 25

// Provider implements inventory.Provider and tagger.TagStore on WorkSpaces.
type Provider struct {
	client WorkSpacesAPI
}

// NewProvider creates a provider on client.
func NewProvider(client WorkSpacesAPI) *Provider {
	return &Provider{client: client}
}

// ListPage returns one page of DescribeWorkspaces.
func (p *Provider) ListPage(ctx context.Context, token string) (inventory.Page, error) {
	input := &workspaces.DescribeWorkspacesInput{}
	if token != "" {
		input.NextToken = aws.String(token)
	}

	output, err := p.client.DescribeWorkspaces(ctx, input)
	if err != nil {
		return inventory.Page{}, fmt.Errorf("describe workspaces: %w", err)
	}

	page := inventory.Page{
		Workspaces: make([]inventory.Workspace, 0, len(output.Workspaces)),
		NextToken:  aws.ToString(output.NextToken),
	}
	for _, ws := range output.Workspaces {
		page.Workspaces = append(page.Workspaces, convertWorkspace(ws))
	}
	return page, nil
}

// ConnectionStatus queries ids in batches and follows NextToken.
func (p *Provider) ConnectionStatus(ctx context.Context, ids []string) (map[string]inventory.ConnectionStatus, error) {
	out := make(map[string]inventory.ConnectionStatus, len(ids))

	for start := 0; start < len(ids); start += connectionStatusBatch {
		end := min(start+connectionStatusBatch, len(ids))
		var nextToken *string

		for {
			output, err := p.client.DescribeWorkspacesConnectionStatus(ctx, &workspaces.DescribeWorkspacesConnectionStatusInput{
				WorkspaceIds: ids[start:end],
				NextToken:    nextToken,
			})
			if err != nil {
				return nil, fmt.Errorf("describe connection status: %w", err)
			}

			for _, st := range output.WorkspacesConnectionStatus {
				out[aws.ToString(st.WorkspaceId)] = inventory.ConnectionStatus{
					LastConnection: st.LastKnownUserConnectionTimestamp,
				}
			}

			if output.NextToken == nil {
				break
			}
			nextToken = output.NextToken
		}
	}

	return out, nil
}

// Describe returns inventory.ErrNotFound when the workspace is gone.
func (p *Provider) Describe(ctx context.Context, id string) (inventory.Workspace, error) {
	output, err := p.client.DescribeWorkspaces(ctx, &workspaces.DescribeWorkspacesInput{
		WorkspaceIds: []string{id},
	})
	if err != nil {
		return inventory.Workspace{}, fmt.Errorf("describe workspace %s: %w", id, err)
	}
	if len(output.Workspaces) == 0 {
		return inventory.Workspace{}, fmt.Errorf("describe workspace %s: %w", id, inventory.ErrNotFound)
	}
	return convertWorkspace(output.Workspaces[0]), nil
}

// Tags returns the workspace's tags as a map.
func (p *Provider) Tags(ctx context.Context, id string) (map[string]string, error) {
	output, err := p.client.DescribeTags(ctx, &workspaces.DescribeTagsInput{
		ResourceId: aws.String(id),
	})
	if err != nil {
		return nil, fmt.Errorf("describe tags %s: %w", id, notFound(err))
	}

	tags := make(map[string]string, len(output.TagList))
	for _, tag := range output.TagList {
		tags[aws.ToString(tag.Key)] = aws.ToString(tag.Value)
	}
	return tags, nil
}

// Terminate terminates one workspace. A FailedRequests entry is an error.
func (p *Provider) Terminate(ctx context.Context, id string) error {
	output, err := p.client.TerminateWorkspaces(ctx, &workspaces.TerminateWorkspacesInput{
		TerminateWorkspaceRequests: []types.TerminateRequest{
			{WorkspaceId: aws.String(id)},
		},
	})
	if err != nil {
		return fmt.Errorf("terminate workspace %s: %w", id, err)
	}

	if len(output.FailedRequests) > 0 {
		failed := output.FailedRequests[0]
		return fmt.Errorf("terminate workspace %s: %s: %s",
			id, aws.ToString(failed.ErrorCode), aws.ToString(failed.ErrorMessage))
	}
	return nil
}

// Tag sets one tag on a workspace.
func (p *Provider) Tag(ctx context.Context, id, key, value string) error {
	_, err := p.client.CreateTags(ctx, &workspaces.CreateTagsInput{
		ResourceId: aws.String(id),
		Tags: []types.Tag{
			{Key: aws.String(key), Value: aws.String(value)},
		},
	})
	if err != nil {
		return fmt.Errorf("create tags %s: %w", id, notFound(err))
	}
	return nil
}

func convertWorkspace(ws types.Workspace) inventory.Workspace {
	return inventory.Workspace{
		ID:           aws.ToString(ws.WorkspaceId),
		UserName:     aws.ToString(ws.UserName),
		ComputerName: aws.ToString(ws.ComputerName),
		DirectoryID:  aws.ToString(ws.DirectoryId),
		State:        string(ws.State),
	}
}

// notFound maps ResourceNotFoundException onto inventory.ErrNotFound while
// keeping the original error in the chain.
func notFound(err error) error {
	var rnf *types.ResourceNotFoundException
	if errors.As(err, &rnf) {
		return errors.Join(inventory.ErrNotFound, err)
	}
	return err
}
