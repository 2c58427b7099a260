package web

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/intervox-ai/intervox/pkg/hub"
	"github.com/intervox-ai/intervox/pkg/interview"
	"github.com/intervox-ai/intervox/pkg/pipeline"
)

// handlePipeline is the single action-dispatched endpoint. Stage failures
// are served as 200 with success=false; only protocol-level problems map
// to 4xx/5xx.
func (s *Server) handlePipeline(c *fiber.Ctx) (err error) {
	start := time.Now()

	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("pipeline handler panic", "panic", r)
			err = c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"success":   false,
				"error":     "internal server error",
				"elapsedMs": time.Since(start).Milliseconds(),
			})
		}
	}()

	var req pipeline.Request
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"error":   "invalid request body: " + err.Error(),
		})
	}

	if !req.Action.Valid() {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"error":   "invalid action: " + string(req.Action),
		})
	}

	ctx := c.UserContext()

	switch req.Action {
	case pipeline.ActionStatus:
		return c.JSON(s.orch.Status(ctx))

	case pipeline.ActionPipeline:
		resp := s.orch.Pipeline(ctx, &req)
		s.afterPipeline(&req, resp)
		return s.respond(c, resp)

	case pipeline.ActionSTT:
		return s.respond(c, s.orch.TranscribeOnly(ctx, &req))

	case pipeline.ActionLLM:
		return s.respond(c, s.orch.ChatOnly(ctx, &req))

	case pipeline.ActionTTS:
		return s.respond(c, s.orch.SynthesizeOnly(ctx, &req))
	}

	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
		"success": false,
		"error":   "invalid action",
	})
}

// respond maps a pipeline response to an HTTP status. Rate limiting is
// the one stage failure that surfaces as its own status code so generic
// HTTP clients can back off.
func (s *Server) respond(c *fiber.Ctx, resp *pipeline.Response) error {
	if !resp.Success && resp.Code == pipeline.CodeRateLimited {
		return c.Status(fiber.StatusTooManyRequests).JSON(resp)
	}
	return c.JSON(resp)
}

// afterPipeline records the turn and feeds the event stream.
func (s *Server) afterPipeline(req *pipeline.Request, resp *pipeline.Response) {
	if resp.Success && s.transcript != nil {
		s.transcript.Append(
			interview.Turn{Content: resp.Transcript},
			interview.Turn{Content: resp.Response},
		)
	}

	if s.events == nil {
		return
	}
	if resp.Success {
		s.events.Publish(hub.NewEvent(hub.EventTranscript, map[string]interface{}{
			"text": resp.Transcript,
		}))
		s.events.Publish(hub.NewEvent(hub.EventReply, map[string]interface{}{
			"text":         resp.Response,
			"nextQuestion": resp.NextQuestion,
			"isComplete":   resp.IsComplete,
		}))
		s.events.Publish(hub.NewEvent(hub.EventStage, resp.Metadata))
	} else {
		s.events.Publish(hub.NewEvent(hub.EventError, map[string]interface{}{
			"step":  resp.Step,
			"code":  resp.Code,
			"error": resp.Error,
		}))
	}
}

// handleHealth reports provider availability and limiter headroom.
// No provider calls, no secrets.
func (s *Server) handleHealth(c *fiber.Ctx) error {
	status := s.orch.Status(c.UserContext())
	return c.JSON(fiber.Map{
		"success":       true,
		"status":        status,
		"uptimeSeconds": int(time.Since(s.started).Seconds()),
		"transcript":    s.transcriptLen(),
	})
}

func (s *Server) transcriptLen() int {
	if s.transcript == nil {
		return 0
	}
	return s.transcript.Len()
}
