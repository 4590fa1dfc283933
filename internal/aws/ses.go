package aws

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/ses/types"
	"github.com/rs/zerolog/log"
)

// Notifier implements notify.Sender on SES.
type Notifier struct {
	client SESAPI
	source string
}

// NewNotifier creates a notifier sending from source.
func NewNotifier(client SESAPI, source string) *Notifier {
	return &Notifier{client: client, source: source}
}

// Send delivers one HTML e-mail to all recipients.
func (n *Notifier) Send(ctx context.Context, to []string, subject, html string) error {
	output, err := n.client.SendEmail(ctx, &ses.SendEmailInput{
		Source: aws.String(n.source),
		Destination: &types.Destination{
			ToAddresses: to,
		},
		Message: &types.Message{
			Subject: &types.Content{Data: aws.String(subject), Charset: aws.String("UTF-8")},
			Body: &types.Body{
				Html: &types.Content{Data: aws.String(html), Charset: aws.String("UTF-8")},
			},
		},
	})
	if err != nil {
		return fmt.Errorf("send email: %w", err)
	}

	log.Debug().Ctx(ctx).
		Strs("to", to).
		Str("message_id", aws.ToString(output.MessageId)).
		Msg("email sent")
	return nil
}
