package webhook_test

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"time"

	"github.com/gin-gonic/gin"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"aicheckr.app/mentions/common/id"
	"aicheckr.app/mentions/internal/http/handler/webhook"
	"aicheckr.app/mentions/internal/http/middleware"
	"aicheckr.app/mentions/internal/http/router"
	"aicheckr.app/mentions/internal/model"
	"aicheckr.app/mentions/internal/service"
)

// syncDispatcher runs the detached task inline so specs can assert on its
// effects deterministically.
type syncDispatcher struct{}

func (syncDispatcher) Dispatch(ctx context.Context, name string, task func(ctx context.Context)) {
	task(ctx)
}

type capturingProducer struct {
	jobs []model.Job
	err  error
}

func (p *capturingProducer) Enqueue(ctx context.Context, job model.Job) (int64, error) {
	if p.err != nil {
		return 0, p.err
	}
	p.jobs = append(p.jobs, job)
	return int64(len(p.jobs)), nil
}

func (p *capturingProducer) Close() error { return nil }

type capturingReply struct {
	events []model.MentionEvent
}

func (r *capturingReply) HandleMention(ctx context.Context, ev model.MentionEvent) service.ReplyOutcome {
	r.events = append(r.events, ev)
	return service.OutcomeReplied
}

var _ = Describe("MetaWebhookHandler", func() {
	const verifyToken = "topsecret"

	var (
		engine   *gin.Engine
		producer *capturingProducer
		reply    *capturingReply
		buf      *bytes.Buffer
	)

	BeforeEach(func() {
		gin.SetMode(gin.TestMode)
		engine = gin.New()
		engine.Use(middleware.Logger())
		buf = &bytes.Buffer{}
		slog.SetDefault(slog.New(slog.NewJSONHandler(buf, nil)))

		Expect(id.Init(1)).To(Succeed())

		producer = &capturingProducer{}
		reply = &capturingReply{}

		clock := func() time.Time { return time.UnixMilli(1700000000123) }
		ingest := service.NewMentionIngestService(producer, nil, "aicheckr", clock, nil)

		h := webhook.NewMetaWebhookHandler(verifyToken, ingest, reply, syncDispatcher{})
		router.SetupRoutes(engine, h)
	})

	Describe("verification handshake", func() {
		It("echoes the challenge for an exact subscribe match", func() {
			req := httptest.NewRequest(http.MethodGet, "/webhooks/instagram?hub.mode=subscribe&hub.verify_token=topsecret&hub.challenge=XYZ123", nil)
			w := httptest.NewRecorder()

			engine.ServeHTTP(w, req)

			Expect(w.Code).To(Equal(http.StatusOK))
			Expect(w.Body.String()).To(Equal("XYZ123"))
		})

		It("never writes the configured token to the logs", func() {
			req := httptest.NewRequest(http.MethodGet, "/webhooks/instagram?hub.mode=subscribe&hub.verify_token=topsecret&hub.challenge=XYZ123", nil)
			engine.ServeHTTP(httptest.NewRecorder(), req)

			req = httptest.NewRequest(http.MethodGet, "/webhooks/instagram?hub.mode=subscribe&hub.verify_token=wrong&hub.challenge=XYZ123", nil)
			engine.ServeHTTP(httptest.NewRecorder(), req)

			Expect(buf.String()).NotTo(ContainSubstring(verifyToken))
		})

		It("rejects a wrong token without echoing the challenge", func() {
			req := httptest.NewRequest(http.MethodGet, "/webhooks/instagram?hub.mode=subscribe&hub.verify_token=wrong&hub.challenge=XYZ123", nil)
			w := httptest.NewRecorder()

			engine.ServeHTTP(w, req)

			Expect(w.Code).To(Equal(http.StatusForbidden))
			Expect(w.Body.String()).NotTo(ContainSubstring("XYZ123"))
			Expect(w.Body.String()).NotTo(ContainSubstring(verifyToken))
		})

		It("rejects a non-subscribe mode even with the right token", func() {
			req := httptest.NewRequest(http.MethodGet, "/webhooks/instagram?hub.mode=unsubscribe&hub.verify_token=topsecret&hub.challenge=XYZ123", nil)
			w := httptest.NewRecorder()

			engine.ServeHTTP(w, req)

			Expect(w.Code).To(Equal(http.StatusForbidden))
		})

		It("rejects a missing challenge", func() {
			req := httptest.NewRequest(http.MethodGet, "/webhooks/instagram?hub.mode=subscribe&hub.verify_token=topsecret", nil)
			w := httptest.NewRecorder()

			engine.ServeHTTP(w, req)

			Expect(w.Code).To(Equal(http.StatusForbidden))
		})

		It("is case-sensitive on the mode literal", func() {
			req := httptest.NewRequest(http.MethodGet, "/webhooks/instagram?hub.mode=Subscribe&hub.verify_token=topsecret&hub.challenge=XYZ123", nil)
			w := httptest.NewRecorder()

			engine.ServeHTTP(w, req)

			Expect(w.Code).To(Equal(http.StatusForbidden))
		})
	})

	Describe("event deliveries", func() {
		post := func(body string) *httptest.ResponseRecorder {
			req := httptest.NewRequest(http.MethodPost, "/webhooks/instagram", bytes.NewBufferString(body))
			req.Header.Set("Content-Type", "application/json")
			w := httptest.NewRecorder()
			engine.ServeHTTP(w, req)
			return w
		}

		It("acks and enqueues exactly one job for one mention change", func() {
			w := post(`{"entry":[{"changes":[{"field":"mentions","value":{"media_id":"M1","comment_id":"C1"}}]}]}`)

			Expect(w.Code).To(Equal(http.StatusOK))

			var ack map[string]string
			Expect(json.Unmarshal(w.Body.Bytes(), &ack)).To(Succeed())
			Expect(ack).To(HaveKeyWithValue("status", "ok"))

			Expect(producer.jobs).To(HaveLen(1))
			Expect(producer.jobs[0].MediaID).To(Equal("M1"))
			Expect(producer.jobs[0].CommentID).To(Equal("C1"))
			Expect(producer.jobs[0].Username).To(Equal("aicheckr"))
			Expect(producer.jobs[0].Status).To(Equal(model.StatusPending))
			Expect(producer.jobs[0].ID).To(Equal("C1_1700000000123"))
		})

		It("ignores non-mention changes in the same delivery", func() {
			w := post(`{"entry":[{"changes":[
				{"field":"mentions","value":{"media_id":"M1","comment_id":"C1"}},
				{"field":"comments","value":{"media_id":"M9","comment_id":"C9"}}
			]}]}`)

			Expect(w.Code).To(Equal(http.StatusOK))
			Expect(producer.jobs).To(HaveLen(1))
			Expect(producer.jobs[0].MediaID).To(Equal("M1"))
		})

		It("runs the reply workflow for each mention", func() {
			post(`{"entry":[{"changes":[
				{"field":"mentions","value":{"media_id":"M1","comment_id":"C1"}},
				{"field":"mentions","value":{"media_id":"M2","comment_id":"C2"}}
			]}]}`)

			Expect(reply.events).To(HaveLen(2))
			Expect(reply.events[0].CommentID).To(Equal("C1"))
			Expect(reply.events[1].CommentID).To(Equal("C2"))
		})

		It("acks an empty or malformed body without processing", func() {
			w := post(`this is not json`)

			Expect(w.Code).To(Equal(http.StatusOK))
			Expect(producer.jobs).To(BeEmpty())
			Expect(reply.events).To(BeEmpty())
		})

		It("acks ok even when every enqueue fails", func() {
			producer.err = context.DeadlineExceeded

			w := post(`{"entry":[{"changes":[{"field":"mentions","value":{"media_id":"M1","comment_id":"C1"}}]}]}`)

			Expect(w.Code).To(Equal(http.StatusOK))
			Expect(w.Body.String()).To(ContainSubstring(`"status":"ok"`))
			Expect(buf.String()).To(ContainSubstring("enqueue failed"))
		})
	})

	Describe("other methods", func() {
		It("answers preflight with permissive headers and no processing", func() {
			req := httptest.NewRequest(http.MethodOptions, "/webhooks/instagram", nil)
			w := httptest.NewRecorder()

			engine.ServeHTTP(w, req)

			Expect(w.Code).To(Equal(http.StatusOK))
			Expect(w.Header().Get("Access-Control-Allow-Origin")).To(Equal("*"))
			Expect(w.Header().Get("Access-Control-Allow-Methods")).To(ContainSubstring("POST"))
			Expect(producer.jobs).To(BeEmpty())
		})

		It("rejects unrouted methods with 405", func() {
			req := httptest.NewRequest(http.MethodPut, "/webhooks/instagram", nil)
			w := httptest.NewRecorder()

			engine.ServeHTTP(w, req)

			Expect(w.Code).To(Equal(http.StatusMethodNotAllowed))
		})
	})
})
