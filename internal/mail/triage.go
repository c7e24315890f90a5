package mail

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/jpkmiller/coach/internal/assistant"
	"github.com/jpkmiller/coach/internal/models"
	"go.uber.org/zap"
)

const summarizeSystemPrompt = `You are an email summarization assistant. Your task is to create concise, informative summaries.

Instructions:
- Extract the main purpose/request of the email
- Identify key action items or decisions needed
- Preserve critical details (dates, names, numbers)
- Use the same language as the email
- Maximum length: 15-20 words
- Format: Single sentence without punctuation at the end
- Style: Professional and clear`

const replySystemPrompt = `Generate a direct email reply. No AI assistant preambles or explanations.

Rules:
- Write ONLY the email content itself
- Never use phrases like "Certainly", "I'd be happy to", "Here's a draft"
- Match the sender's tone and formality
- End with appropriate sign-off
- If critical info is missing, state it directly in the email body

Output exactly what should be sent, nothing more.

Senders personality that MUST be matched: %s.`

const triageSystemPrompt = `You are an executive email assistant.
Respond ONLY via function calls defined in tools.
Rules:
1. Always call "label".
2. Call "markAsRead" when no user action is needed.
3. Only call "reply" when a response from the user is required.
Style guide for replies:
- German greeting if sender wrote German, otherwise mirror language.
- Concise and actionable, proper closing.`

// triageTools declares the three functions the model may call during triage.
func triageTools() []assistant.ToolDefinition {
	return []assistant.ToolDefinition{
		{
			Name:        "label",
			Description: "Assign importance and urgency labels",
			Parameters: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"mailId": map[string]any{"type": "string"},
					"labels": map[string]any{
						"type":  "array",
						"items": map[string]any{"enum": models.TriageLabels},
					},
				},
				"required": []string{"mailId", "labels"},
			},
		},
		{
			Name:        "markAsRead",
			Description: "Mark a mail as read",
			Parameters: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"mailId": map[string]any{"type": "string"},
				},
				"required": []string{"mailId"},
			},
		},
		{
			Name:        "reply",
			Description: "Compose an email reply",
			Parameters: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"mailId":  map[string]any{"type": "string"},
					"content": map[string]any{"type": "string"},
				},
				"required": []string{"mailId", "content"},
			},
		},
	}
}

// triageArgs is the argument shape shared by all three triage tools.
type triageArgs struct {
	MailID  string   `json:"mailId"`
	Labels  []string `json:"labels"`
	Content string   `json:"content"`
}

// Summarize asks the assistant for a one-sentence summary of the mail and
// stores it. Failures are logged and leave the mail unchanged.
func (s *Store) Summarize(ctx context.Context, id string) bool {
	m, ok := s.Get(id)
	if !ok {
		s.logger.Warn("mail_not_found", zap.String("mail_id", id))
		return false
	}

	summary, err := s.runner.Run(ctx, assistant.RunOptions{
		SystemPrompt: summarizeSystemPrompt,
		UserPrompt: fmt.Sprintf("Original email from %s to summarize:\nSUBJECT: %s\nBODY: %s",
			m.From, m.Subject, m.Body),
	})
	if err != nil {
		s.logger.Error("failed_to_generate_summary", zap.String("mail_id", id), zap.Error(err))
		return false
	}

	s.mu.Lock()
	if stored, ok := s.mails[id]; ok {
		stored.Summary = summary
	}
	s.mu.Unlock()

	s.persist(ctx)
	return true
}

// GenerateReply asks the assistant for a ready-to-send reply matching the
// user's mail personality and stores it as the draft.
func (s *Store) GenerateReply(ctx context.Context, id string) bool {
	m, ok := s.Get(id)
	if !ok {
		s.logger.Warn("mail_not_found", zap.String("mail_id", id))
		return false
	}

	reply, err := s.runner.Run(ctx, assistant.RunOptions{
		SystemPrompt: fmt.Sprintf(replySystemPrompt, s.profile.MailPersonality()),
		UserPrompt: fmt.Sprintf("Original email from %s to respond to:\nSUBJECT: %s\nBODY: %s",
			m.From, m.Subject, m.Body),
	})
	if err != nil {
		s.logger.Error("failed_to_generate_reply", zap.String("mail_id", id), zap.Error(err))
		return false
	}

	s.mu.Lock()
	if stored, ok := s.mails[id]; ok {
		stored.Reply = reply
	}
	s.mu.Unlock()

	s.persist(ctx)
	return true
}

// Triage sends the mail through the tool-calling flow and applies the calls
// the model issued: label overwrites the label set, markAsRead flips the
// read flag, reply stores the drafted content. Calls naming an unknown mail
// id are skipped with a log instead of failing the batch.
func (s *Store) Triage(ctx context.Context, id string) bool {
	m, ok := s.Get(id)
	if !ok {
		s.logger.Warn("mail_not_found", zap.String("mail_id", id))
		return false
	}

	calls, err := s.runner.RunWithTools(ctx, assistant.ToolRunOptions{
		SystemPrompt: triageSystemPrompt,
		UserPrompt: fmt.Sprintf("MAIL_ID: %s\nFROM:    %s\nSUBJECT: %s\nBODY:\n%s",
			m.ID, m.From, m.Subject, m.Body),
		Tools: triageTools(),
	})
	if err != nil {
		s.logger.Error("triage_failed", zap.String("mail_id", id), zap.Error(err))
		return false
	}

	applied := false
	for _, call := range calls {
		var args triageArgs
		if err := json.Unmarshal([]byte(call.Arguments), &args); err != nil {
			s.logger.Warn("malformed_tool_arguments",
				zap.String("tool", call.Name), zap.String("mail_id", id), zap.Error(err))
			continue
		}

		s.mu.Lock()
		target, ok := s.mails[args.MailID]
		if !ok {
			s.mu.Unlock()
			s.logger.Warn("tool_call_for_unknown_mail",
				zap.String("tool", call.Name), zap.String("mail_id", args.MailID))
			continue
		}

		switch call.Name {
		case "label":
			target.Labels = args.Labels
			applied = true
		case "markAsRead":
			target.Read = true
			applied = true
		case "reply":
			target.Reply = args.Content
			applied = true
		default:
			s.logger.Warn("unknown_tool_call", zap.String("tool", call.Name))
		}
		s.mu.Unlock()
	}

	if applied {
		s.persist(ctx)
	}
	return applied
}

// runForSelected runs op once per selected mail concurrently, waits for all
// of them to finish independently, and clears the selection. One mail's
// failure never aborts the others.
func (s *Store) runForSelected(ctx context.Context, operation string, op func(ctx context.Context, id string) bool) {
	ids := s.selectedIDs()
	if len(ids) == 0 {
		s.logger.Warn("no_mails_selected", zap.String("operation", operation))
		return
	}

	var wg sync.WaitGroup
	for _, id := range ids {
		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			if !op(ctx, id) {
				s.logger.Warn("bulk_operation_failed_for_mail",
					zap.String("operation", operation), zap.String("mail_id", id))
			}
		}(id)
	}
	wg.Wait()

	s.DeselectAll()
}

// SummarizeAll summarizes every selected mail.
func (s *Store) SummarizeAll(ctx context.Context) {
	s.runForSelected(ctx, "summarize", s.Summarize)
}

// GenerateReplies drafts a reply for every selected mail.
func (s *Store) GenerateReplies(ctx context.Context) {
	s.runForSelected(ctx, "reply", s.GenerateReply)
}

// TriageAll triages every selected mail.
func (s *Store) TriageAll(ctx context.Context) {
	s.runForSelected(ctx, "triage", s.Triage)
}
