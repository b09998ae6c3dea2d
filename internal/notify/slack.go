package notify

import (
	"context"
	"fmt"

	slacklib "github.com/slack-go/slack"
)

// SlackAPI abstracts the subset of the Slack client used by SlackNotifier.
// *slack.Client satisfies it.
type SlackAPI interface {
	PostMessageContext(ctx context.Context, channelID string, options ...slacklib.MsgOption) (string, string, error)
}

// SlackNotifier posts notifications to a single Slack channel.
type SlackNotifier struct {
	api     SlackAPI
	channel string
}

var _ Notifier = (*SlackNotifier)(nil)

func NewSlackNotifier(api SlackAPI, channel string) *SlackNotifier {
	return &SlackNotifier{api: api, channel: channel}
}

func (n *SlackNotifier) Send(ctx context.Context, msg Message) error {
	_, _, err := n.api.PostMessageContext(ctx, n.channel,
		slacklib.MsgOptionText(msg.Subject, false),
		slacklib.MsgOptionBlocks(BuildMessageBlocks(msg)...),
	)
	if err != nil {
		return fmt.Errorf("notify.SlackNotifier.Send: %w", err)
	}
	return nil
}

// BuildMessageBlocks renders a notification as Block Kit blocks.
func BuildMessageBlocks(msg Message) []slacklib.Block {
	text := fmt.Sprintf("*%s*\n%s", msg.Subject, msg.Text)
	if msg.Link != "" {
		text += fmt.Sprintf("\n<%s|Open in Agileboard>", msg.Link)
	}
	section := slacklib.NewSectionBlock(
		slacklib.NewTextBlockObject(slacklib.MarkdownType, text, false, false),
		nil,
		nil,
	)

	ctxText := fmt.Sprintf("%s · for %s", msg.Kind, msg.Recipient)
	footer := slacklib.NewContextBlock("",
		slacklib.NewTextBlockObject(slacklib.PlainTextType, ctxText, false, false),
	)

	return []slacklib.Block{section, footer}
}
