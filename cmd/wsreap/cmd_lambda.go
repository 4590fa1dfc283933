package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	awsadapter "github.com/yairfalse/wsreap/internal/aws"
	"github.com/yairfalse/wsreap/internal/daemon"
	"github.com/yairfalse/wsreap/orchestrator"
)

// EventBridge detail types routed by the Lambda handler.
const (
	scheduledEventType  = "Scheduled Event"
	cloudTrailEventType = "AWS API Call via CloudTrail"
)

var errUnsupportedEvent = errors.New("unsupported event")

var lambdaCmd = &cobra.Command{
	Use:   "lambda",
	Short: "Serve as an AWS Lambda function",
	Long: `Start the AWS Lambda runtime loop.

Scheduled EventBridge events run one lifecycle cycle. CloudTrail
CreateWorkspaces events tag the new workspaces with their creation date.
Configuration comes from the function's environment.`,
	RunE: runLambda,
}

func init() {
	rootCmd.AddCommand(lambdaCmd)
}

func runLambda(cmd *cobra.Command, _ []string) error {
	a, err := newApp(cmd.Context(), cmd)
	if err != nil {
		return err
	}

	h := &lambdaHandler{
		cycler: a.orchestrator(),
		tagger: a.tagHandler(),
		flush:  a.otel.ForceFlush,
	}
	lambda.Start(h.Handle)
	return nil
}

// createHandler tags workspaces named by a CreateWorkspaces event.
type createHandler interface {
	HandleCreateEvent(ctx context.Context, detail json.RawMessage) ([]string, error)
}

// lambdaResponse is returned to the Lambda runtime.
type lambdaResponse struct {
	Summary *orchestrator.Summary `json:"summary,omitempty"`
	Tagged  []string              `json:"tagged,omitempty"`
}

type lambdaHandler struct {
	cycler daemon.Cycler
	tagger createHandler
	flush  func(context.Context) error
}

// Handle routes one EventBridge event.
func (h *lambdaHandler) Handle(ctx context.Context, ev events.CloudWatchEvent) (*lambdaResponse, error) {
	defer func() {
		if h.flush == nil {
			return
		}
		if err := h.flush(ctx); err != nil {
			log.Warn().Ctx(ctx).Err(err).Msg("telemetry flush failed")
		}
	}()

	switch ev.DetailType {
	case scheduledEventType:
		summary, err := h.cycler.RunCycle(ctx)
		return &lambdaResponse{Summary: summary}, err

	case cloudTrailEventType:
		var detail struct {
			EventName string `json:"eventName"`
		}
		if err := json.Unmarshal(ev.Detail, &detail); err != nil {
			return nil, fmt.Errorf("decode event detail: %w", err)
		}
		if detail.EventName != awsadapter.CreateWorkspacesEvent {
			return nil, fmt.Errorf("%w: CloudTrail %q", errUnsupportedEvent, detail.EventName)
		}
		tagged, err := h.tagger.HandleCreateEvent(ctx, ev.Detail)
		return &lambdaResponse{Tagged: tagged}, err

	default:
		return nil, fmt.Errorf("%w: %q from %q", errUnsupportedEvent, ev.DetailType, ev.Source)
	}
}
