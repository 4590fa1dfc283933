package aws

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudtrail"
	"github.com/aws/aws-sdk-go-v2/service/cloudtrail/types"

	"github.com/yairfalse/wsreap/tagger"
)

// CreateWorkspacesEvent is the CloudTrail event name of workspace creation.
const CreateWorkspacesEvent = "CreateWorkspaces"

// CreationEvents implements tagger.EventSource on CloudTrail LookupEvents.
type CreationEvents struct {
	client CloudTrailAPI
}

// NewCreationEvents creates an event source on client.
func NewCreationEvents(client CloudTrailAPI) *CreationEvents {
	return &CreationEvents{client: client}
}

// CreationEvents returns one page of CreateWorkspaces events in
// [since, until]. CloudTrail rejects a NextToken sent with a different
// window, so callers keep since and until fixed across pages.
func (c *CreationEvents) CreationEvents(ctx context.Context, since, until time.Time, token string) (tagger.EventPage, error) {
	input := &cloudtrail.LookupEventsInput{
		LookupAttributes: []types.LookupAttribute{
			{
				AttributeKey:   types.LookupAttributeKeyEventName,
				AttributeValue: aws.String(CreateWorkspacesEvent),
			},
		},
		StartTime: aws.Time(since),
		EndTime:   aws.Time(until),
	}
	if token != "" {
		input.NextToken = aws.String(token)
	}

	output, err := c.client.LookupEvents(ctx, input)
	if err != nil {
		return tagger.EventPage{}, fmt.Errorf("lookup events: %w", err)
	}

	page := tagger.EventPage{
		Events:    make([]tagger.Event, 0, len(output.Events)),
		NextToken: aws.ToString(output.NextToken),
	}
	for _, ev := range output.Events {
		page.Events = append(page.Events, tagger.Event{
			ID:     aws.ToString(ev.EventId),
			Time:   aws.ToTime(ev.EventTime),
			Detail: json.RawMessage(aws.ToString(ev.CloudTrailEvent)),
		})
	}
	return page, nil
}
