package task

import (
	"context"
	"fmt"
	"strings"

	"github.com/jpkmiller/coach/internal/assistant"
	"github.com/jpkmiller/coach/internal/models"
	"go.uber.org/zap"
)

const subtaskSystemPrompt = `You are a task decomposition assistant. Your job is to break down a main task into actionable subtasks.

STRICT REQUIREMENTS:
- Output EXACTLY a JSON array of strings
- Create 3-5 specific, actionable subtasks
- Each subtask must be concrete and measurable
- Maintain the same language as the input
- Return ONLY the JSON array - no explanations, no markdown, no additional text

RESPONSE FORMAT: ["subtask 1", "subtask 2", "subtask 3"]

EXAMPLES:
Input: "Prepare presentation for Monday"
Output: ["Research topic and gather data", "Create slide outline", "Design slides with visuals", "Practice presentation", "Prepare Q&A responses"]

Input: "Organizar fiesta de cumpleaños"
Output: ["Hacer lista de invitados", "Comprar decoraciones", "Ordenar pastel", "Preparar comida y bebidas", "Enviar invitaciones"]`

// suggestionRequirements is appended to every domain instruction handed to
// GenerateSuggestionsFromInput.
const suggestionRequirements = `

STRICT REQUIREMENTS:
- Output EXACTLY a JSON array of strings
- Generate 2-5 short, actionable task titles
- Maintain the same language as the input
- Return ONLY the JSON array - no explanations, no markdown, no additional text

RESPONSE FORMAT: ["task 1", "task 2", "task 3"]`

const calendarDomainPrompt = `You are a calendar-based task generator. Analyze calendar events and create preparatory tasks.

TASK GENERATION RULES:
- For meetings: preparation materials, agenda items, travel time
- For deadlines: completion steps, review time, submission prep
- For appointments: documents needed, travel arrangements, confirmations
- For events: outfit/attire, gifts, RSVPs

EXAMPLES:
Input: "Team meeting tomorrow at 2 PM"
Output: ["Review meeting agenda and previous notes", "Prepare status update on current projects", "Test video conference setup 15 minutes early"]

Input: "Dentist appointment Friday 10 AM"
Output: ["Confirm appointment 24 hours before", "Prepare insurance card and ID", "Leave 30 minutes early for traffic"]`

const mailDomainPrompt = `You are an email-to-task converter. Analyze emails and extract actionable tasks.

EMAIL ANALYSIS RULES:
- Look for action verbs (send, review, complete, prepare, schedule)
- Identify deadlines and time constraints
- Extract specific requests or questions needing responses
- Note follow-up items or commitments made
- Consider attachments that need review
- Prioritize urgent or time-sensitive items

EXAMPLES:
Input: "Please review the attached proposal and send feedback by Friday"
Output: ["Review proposal document", "Write feedback on proposal", "Send proposal feedback by Friday"]

Input: "Can we schedule a call next week to discuss the project timeline?"
Output: ["Check calendar availability for next week", "Schedule project timeline discussion call", "Prepare project timeline overview for call"]`

// BreakIntoSubtasks asks the assistant for 3-5 subtask titles and inserts
// each as a child of the task with the given id, inheriting its due date at
// medium priority. Failures are logged and leave the task untouched.
func (s *Store) BreakIntoSubtasks(ctx context.Context, taskID string) bool {
	target := s.Get(taskID)
	if target == nil {
		s.logger.Warn("task_not_found", zap.String("task_id", taskID))
		return false
	}

	var titles []string
	err := s.runner.RunJSON(ctx, assistant.RunOptions{
		SystemPrompt: subtaskSystemPrompt,
		UserPrompt:   fmt.Sprintf("Break down this task into subtasks: %q", target.Title),
		Schema:       assistant.StringArraySchema(),
		SchemaName:   "subtasks",
	}, &titles)
	if err != nil {
		s.logger.Error("subtask_generation_failed", zap.String("task_id", taskID), zap.Error(err))
		return false
	}

	s.logger.Debug("generated_subtasks", zap.String("task_id", taskID), zap.Int("count", len(titles)))

	for _, title := range titles {
		s.Add(ctx, AddRequest{
			Title:    title,
			Priority: models.PriorityMedium,
			DueDate:  target.DueDate,
		}, target.ID)
	}
	return true
}

// GenerateSuggestionsFromInput combines a domain instruction with the fixed
// output requirements, runs the assistant over the input text, and appends
// every returned title to the suggestion list. Suggestions never enter the
// committed forest without explicit promotion.
func (s *Store) GenerateSuggestionsFromInput(ctx context.Context, input, domainPrompt string) bool {
	if strings.TrimSpace(input) == "" {
		return false
	}

	var titles []string
	err := s.runner.RunJSON(ctx, assistant.RunOptions{
		SystemPrompt: domainPrompt + suggestionRequirements,
		UserPrompt:   input,
		Schema:       assistant.StringArraySchema(),
		SchemaName:   "suggestions",
	}, &titles)
	if err != nil {
		s.logger.Error("suggestion_generation_failed", zap.Error(err))
		return false
	}

	s.mu.Lock()
	s.suggestions = append(s.suggestions, titles...)
	s.mu.Unlock()

	s.logger.Debug("generated_suggestions", zap.Int("count", len(titles)))
	return true
}

// GenerateFromCalendar proposes preparation tasks for the upcoming calendar
// events.
func (s *Store) GenerateFromCalendar(ctx context.Context) bool {
	if s.calendar == nil {
		s.logger.Error("no_calendar_source_configured")
		return false
	}
	input := fmt.Sprintf("Generate preparation tasks for these calendar events:\n%s", s.calendar.String())
	return s.GenerateSuggestionsFromInput(ctx, input, calendarDomainPrompt)
}

// GenerateFromMail proposes tasks extracted from the currently selected
// mails. A no-op (logged) when nothing is selected.
func (s *Store) GenerateFromMail(ctx context.Context) bool {
	if s.mails == nil {
		s.logger.Error("no_mail_source_configured")
		return false
	}
	selected := s.mails.SelectedMails()
	if len(selected) == 0 {
		s.logger.Error("no_mails_selected_for_task_generation")
		return false
	}

	var sb strings.Builder
	sb.WriteString("Extract actionable tasks from these emails:\n")
	for _, mail := range selected {
		fmt.Fprintf(&sb, "\nEMAIL_ID: %s\nFROM: %s\nSUBJECT: %s\nCONTENT: %s\n---", mail.ID, mail.From, mail.Subject, mail.Body)
	}
	return s.GenerateSuggestionsFromInput(ctx, sb.String(), mailDomainPrompt)
}
