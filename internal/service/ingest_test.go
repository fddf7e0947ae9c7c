package service_test

import (
	"context"
	"errors"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"aicheckr.app/mentions/internal/model"
	"aicheckr.app/mentions/internal/queue"
	"aicheckr.app/mentions/internal/service"
)

var _ = Describe("MentionIngestService", func() {
	var (
		producer *fakeProducer
		deduper  *fakeDeduper
		ctx      context.Context
		clock    model.Clock
	)

	BeforeEach(func() {
		producer = &fakeProducer{}
		deduper = &fakeDeduper{}
		ctx = context.Background()
		clock = func() time.Time { return time.UnixMilli(1700000000123) }
	})

	newService := func() service.MentionIngestService {
		return service.NewMentionIngestService(producer, deduper, "aicheckr", clock, nil)
	}

	It("enqueues one job per mention with the configured username", func() {
		svc := newService()

		res := svc.Ingest(ctx, []model.MentionEvent{
			{MediaID: "M1", CommentID: "C1"},
			{MediaID: "M2", CommentID: "C2"},
		})

		Expect(res.Enqueued).To(Equal(2))
		Expect(res.Failed).To(BeZero())
		Expect(producer.jobs).To(HaveLen(2))
		Expect(producer.jobs[0].ID).To(Equal("C1_1700000000123"))
		Expect(producer.jobs[0].Username).To(Equal("aicheckr"))
		Expect(producer.jobs[0].Status).To(Equal(model.StatusPending))
		Expect(producer.jobs[1].MediaID).To(Equal("M2"))
	})

	It("keeps processing siblings when one enqueue fails", func() {
		calls := 0
		producer.enqueueFn = func(job model.Job) (int64, error) {
			calls++
			if calls == 1 {
				return 0, queue.ErrTimeout
			}
			return 1, nil
		}
		svc := newService()

		res := svc.Ingest(ctx, []model.MentionEvent{
			{MediaID: "M1", CommentID: "C1"},
			{MediaID: "M2", CommentID: "C2"},
		})

		Expect(res.Failed).To(Equal(1))
		Expect(res.Enqueued).To(Equal(1))
		Expect(producer.jobs).To(HaveLen(1))
		Expect(producer.jobs[0].CommentID).To(Equal("C2"))
	})

	It("drops duplicate deliveries of the same mention", func() {
		svc := newService()
		ev := model.MentionEvent{MediaID: "M1", CommentID: "C1"}

		first := svc.Ingest(ctx, []model.MentionEvent{ev})
		second := svc.Ingest(ctx, []model.MentionEvent{ev})

		Expect(first.Enqueued).To(Equal(1))
		Expect(second.Enqueued).To(BeZero())
		Expect(second.Duplicates).To(Equal(1))
		Expect(producer.jobs).To(HaveLen(1))
	})

	It("enqueues anyway when the dedupe check errors", func() {
		deduper.seenFn = func(ev model.MentionEvent) (bool, error) {
			return false, errors.New("redis down")
		}
		svc := newService()

		res := svc.Ingest(ctx, []model.MentionEvent{{MediaID: "M1", CommentID: "C1"}})

		Expect(res.Enqueued).To(Equal(1))
		Expect(producer.jobs).To(HaveLen(1))
	})

	It("works without a deduper", func() {
		svc := service.NewMentionIngestService(producer, nil, "aicheckr", clock, nil)

		res := svc.Ingest(ctx, []model.MentionEvent{{MediaID: "M1", CommentID: "C1"}})

		Expect(res.Enqueued).To(Equal(1))
	})
})
