package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"aicheckr.app/mentions/common/logger"
	"aicheckr.app/mentions/internal/graph"
	"aicheckr.app/mentions/internal/model"
)

// ReplyOutcome is the terminal state of one mention's reply workflow.
type ReplyOutcome string

const (
	// OutcomeNoContext means the media could not be resolved; log-only.
	OutcomeNoContext ReplyOutcome = "no_media_context"
	// OutcomeNotOwner means the mention is on someone else's media; log-only.
	OutcomeNotOwner ReplyOutcome = "not_own_media"
	// OutcomeReplied means exactly one reply was posted under the comment.
	OutcomeReplied ReplyOutcome = "replied"
	// OutcomeReplyFailed means the reply post failed after the decision to
	// reply. Reported, never escalated: the webhook response is long gone.
	OutcomeReplyFailed ReplyOutcome = "reply_failed"
)

// ReplyService decides, from resolved context, whether to post an automated
// reply to a mention, and performs it.
type ReplyService interface {
	HandleMention(ctx context.Context, ev model.MentionEvent) ReplyOutcome
}

type replyService struct {
	graph    graph.Client
	username string // tracked account handle, lower-cased
	logger   *slog.Logger
}

func NewReplyService(client graph.Client, username string, log *slog.Logger) ReplyService {
	if log == nil {
		log = slog.Default()
	}
	return &replyService{
		graph:    client,
		username: username,
		logger:   log,
	}
}

func (s *replyService) HandleMention(ctx context.Context, ev model.MentionEvent) ReplyOutcome {
	ctx = logger.WithLogFields(ctx, logger.LogFields{
		MediaID:   logger.Ptr(ev.MediaID),
		CommentID: logger.Ptr(ev.CommentID),
		Component: "mentions.reply",
	})

	// Media and comment are resolved independently: a failed comment fetch
	// only costs us the commenter's handle, never the reply decision.
	media, err := s.graph.GetMedia(ctx, ev.MediaID)
	if err != nil {
		s.logger.WarnContext(ctx, "media context unavailable", "error", err)
		media = nil
	}

	var commenter string
	if comment, err := s.graph.GetComment(ctx, ev.CommentID); err != nil {
		s.logger.WarnContext(ctx, "comment context unavailable", "error", err)
	} else {
		commenter = comment.Username
	}

	if media == nil {
		s.logger.InfoContext(ctx, "skipping reply: no media context")
		return OutcomeNoContext
	}

	// An unset configured handle fails closed: nothing ever matches it.
	if s.username == "" || !strings.EqualFold(media.Username, s.username) {
		s.logger.InfoContext(ctx, "skipping reply: mention on someone else's media", "media_owner", media.Username)
		return OutcomeNotOwner
	}

	if ev.CommentID == "" {
		s.logger.InfoContext(ctx, "skipping reply: no parent comment to thread under")
		return OutcomeNoContext
	}

	message := replyMessage(commenter)
	if err := s.graph.ReplyToComment(ctx, ev.MediaID, ev.CommentID, message); err != nil {
		s.logger.ErrorContext(ctx, "posting reply failed", "error", err)
		return OutcomeReplyFailed
	}

	s.logger.InfoContext(ctx, "reply posted", "commenter", commenter)
	return OutcomeReplied
}

func replyMessage(handle string) string {
	if handle == "" {
		return "Thanks for the mention!"
	}
	return fmt.Sprintf("@%s Thanks for the mention!", handle)
}
