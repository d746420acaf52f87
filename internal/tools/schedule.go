package tools

import (
	"context"
	"log/slog"
	"strings"

	"github.com/clarahexa/clarabot/internal/gemini"
)

const scheduleInstruction = `You are a friendly WhatsApp assistant. The user asked about their calendar or schedule, but the calendar feature is still under development and not available yet.

Write a short, warm reply that:
1. Apologizes that the schedule/calendar feature is not ready yet.
2. Mentions it is being worked on.
3. Suggests the user try the Google Forms features instead (creating forms, checking responses).

Reply in the SAME language as the user's message. Do NOT use asterisks or markdown formatting.`

// ScheduleChecker answers calendar questions. The calendar integration is
// not built yet, so it explains that and points at the forms features.
type ScheduleChecker struct {
	ai  gemini.Client
	log *slog.Logger
}

// NewScheduleChecker creates the check-schedule tool.
func NewScheduleChecker(ai gemini.Client, log *slog.Logger) *ScheduleChecker {
	return &ScheduleChecker{
		ai:  ai,
		log: log.With("component", "schedule_checker"),
	}
}

func (t *ScheduleChecker) Name() string { return "schedule_checker" }

func (t *ScheduleChecker) Execute(ctx context.Context, query string, _ Context) Response {
	reply, err := t.ai.GenerateText(ctx, scheduleInstruction, query)
	if err != nil || strings.TrimSpace(reply) == "" {
		t.log.WarnContext(ctx, "Schedule reply generation failed, using fixed reply", "error", err)
		reply = "Maaf, fitur cek jadwal/kalender masih dalam pengembangan dan belum bisa dipakai. 🙏 Sementara itu, saya bisa bantu membuat Google Form atau mengecek respon form yang sudah ada. Mau coba?"
	}
	return Response{Success: true, Reply: stripBold(strings.TrimSpace(reply))}
}
