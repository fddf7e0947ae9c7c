package service_test

import (
	"context"

	"aicheckr.app/mentions/internal/graph"
	"aicheckr.app/mentions/internal/model"
)

type fakeProducer struct {
	jobs      []model.Job
	enqueueFn func(job model.Job) (int64, error)
}

func (f *fakeProducer) Enqueue(ctx context.Context, job model.Job) (int64, error) {
	if f.enqueueFn != nil {
		length, err := f.enqueueFn(job)
		if err != nil {
			return 0, err
		}
		f.jobs = append(f.jobs, job)
		return length, nil
	}
	f.jobs = append(f.jobs, job)
	return int64(len(f.jobs)), nil
}

func (f *fakeProducer) Close() error { return nil }

type fakeDeduper struct {
	seen   map[string]bool
	seenFn func(ev model.MentionEvent) (bool, error)
}

func (f *fakeDeduper) Seen(ctx context.Context, ev model.MentionEvent) (bool, error) {
	if f.seenFn != nil {
		return f.seenFn(ev)
	}
	if f.seen == nil {
		f.seen = make(map[string]bool)
	}
	if f.seen[ev.DedupeKey()] {
		return true, nil
	}
	f.seen[ev.DedupeKey()] = true
	return false, nil
}

type fakeGraph struct {
	media      *graph.Media
	mediaErr   error
	comment    *graph.Comment
	commentErr error

	replies  []replyCall
	replyErr error
}

type replyCall struct {
	mediaID   string
	commentID string
	message   string
}

func (f *fakeGraph) GetMedia(ctx context.Context, mediaID string) (*graph.Media, error) {
	if f.mediaErr != nil {
		return nil, f.mediaErr
	}
	return f.media, nil
}

func (f *fakeGraph) GetComment(ctx context.Context, commentID string) (*graph.Comment, error) {
	if f.commentErr != nil {
		return nil, f.commentErr
	}
	return f.comment, nil
}

func (f *fakeGraph) ReplyToComment(ctx context.Context, mediaID, commentID, message string) error {
	if f.replyErr != nil {
		return f.replyErr
	}
	f.replies = append(f.replies, replyCall{mediaID: mediaID, commentID: commentID, message: message})
	return nil
}
