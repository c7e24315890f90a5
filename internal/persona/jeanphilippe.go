package persona

import (
	"context"
	"fmt"
	"time"

	"github.com/jpkmiller/coach/internal/assistant"
	"github.com/jpkmiller/coach/internal/models"
	"go.uber.org/zap"
)

const (
	summaryCacheKey = "jeanPhilippeSummary"
	summaryMaxAge   = 2 * time.Hour

	// failureSummary is shown instead of an error when generation fails.
	failureSummary = "Failed to generate summary. Please try again."

	suggestionDomainPrompt = `This is a summary generated by an LLM. Extract potential tasks that will be shown to me as suggestion. The tasks should have really short titles.`
)

// TimeOfDay buckets the day into the five prompt variants.
type TimeOfDay string

const (
	Morning   TimeOfDay = "morning"
	Lunch     TimeOfDay = "lunch"
	Afternoon TimeOfDay = "afternoon"
	Evening   TimeOfDay = "evening"
	Night     TimeOfDay = "night"
)

// BucketForHour maps an hour of day to its prompt bucket.
func BucketForHour(hour int) TimeOfDay {
	switch {
	case hour >= 5 && hour < 11:
		return Morning
	case hour >= 11 && hour < 13:
		return Lunch
	case hour >= 13 && hour < 18:
		return Afternoon
	case hour >= 18 && hour < 23:
		return Evening
	default:
		return Night
	}
}

// Runner is the slice of the assistant gateway the composer uses.
type Runner interface {
	Run(ctx context.Context, opts assistant.RunOptions) (string, error)
}

// Cache is the generated-text cache of the assistant settings store.
type Cache interface {
	AddText(ctx context.Context, key, text string)
	GetText(key string, maxAge time.Duration) string
}

// TaskContext is the slice of the task store the composer reads from and
// feeds suggestions back into.
type TaskContext interface {
	FlatTasks() []*models.Task
	String() string
	GenerateSuggestionsFromInput(ctx context.Context, input, domainPrompt string) bool
}

// WeatherContext supplies the current weather snapshot.
type WeatherContext interface {
	Weather() models.Weather
}

// JeanPhilippe composes time-of-day-aware briefings from date, weather and
// task context, caches the result, and feeds it back into the task store as
// suggestions.
type JeanPhilippe struct {
	runner  Runner
	cache   Cache
	tasks   TaskContext
	weather WeatherContext
	logger  *zap.Logger
	now     func() time.Time
}

// New creates the composer.
func New(runner Runner, cache Cache, tasks TaskContext, weather WeatherContext, logger *zap.Logger) *JeanPhilippe {
	return &JeanPhilippe{
		runner:  runner,
		cache:   cache,
		tasks:   tasks,
		weather: weather,
		logger:  logger,
		now:     time.Now,
	}
}

// The briefing is formatted for direct display, so the system prompt forbids
// markdown on top of the persona text.
const briefingSystemPrompt = `FORMATIERUNG:
- Du antwortest in einfachem Text, kein Markdown erlaubt, keine Sternchen, keine Überschriften
- Du verwendest gelegentlich Emojis, aber sparsam und geschmackvoll
- Du sprichst mich immer direkt an, als ob wir ein Gespräch führen
- Du antwortest IMMER auf Deutsch und mischst gelegentlich ein oder zwei französische Phrasen ein
- Du unterschreibst mit "- Jean-Philippe" und gelegentlich einer kurzen französischen Phrase
- Du hast die Gabe, genau zu wissen, wann du genug gesagt hast und hältst dich stets angenehm kurz
`

// userPrompt builds the bucket-specific prompt with current date/time, an
// optional weather line and the rendered task list.
func (jp *JeanPhilippe) userPrompt() string {
	now := jp.now()
	currentDate := now.Format("Monday, 2. January 2006")
	currentTime := now.Format("15:04")

	baseContext := fmt.Sprintf("Es ist %s um %s. ", currentDate, currentTime)
	if w := jp.weather.Weather(); w.Location != "" {
		baseContext += fmt.Sprintf("Es sind %.0f°C in %s. ", w.Temperature, w.Location)
	}

	tasksContext := "Ich habe momentan keine Aufgaben geplant."
	if len(jp.tasks.FlatTasks()) > 0 {
		tasksContext = fmt.Sprintf("Meine aktuellen Aufgaben sind: %s", jp.tasks.String())
	}

	switch BucketForHour(now.Hour()) {
	case Morning:
		return fmt.Sprintf(`Bonjour! %s

Als mein vertrauter persönlicher Assistent seit 3 Jahren, bitte überprüfe meinen bevorstehenden Tag mit deiner charakteristischen französischen Effizienz. Ich brauche:
1. Eine kurze, personalisierte Morgengrußformel, die Bezug auf das Wetter oder meinen Zeitplan nimmt
2. Deine Top-3-Prioritätsempfehlungen (sei sehr spezifisch darüber, was zuerst Aufmerksamkeit benötigt)
3. Weise auf Terminüberschneidungen oder Zeitmanagementprobleme hin, die dir auffallen
4. Einen praktischen Vorschlag zur Verbesserung meiner Produktivität heute

%s`, baseContext, tasksContext)

	case Lunch:
		return fmt.Sprintf(`Bon midi! %s

Es ist Mittagszeit, und ich könnte deine kulinarische Expertise gebrauchen. Bitte:
1. Schlage ein anspruchsvolles, aber praktisches Mittagsrezept vor, das dich beeindrucken würde
2. Füge deinen kulturellen Kommentar hinzu, warum dieses Gericht für heute angemessen ist
3. Ergänze eine kurze Notiz zu meinem Nachmittagsplan

%s`, baseContext, tasksContext)

	case Afternoon:
		return fmt.Sprintf(`Bon après-midi! %s

Es ist Nachmittag – Zeit für eine kleine Stärkung oder eine kreative Pause. Bitte:
1. Empfiehl mir einen raffinierten, aber unkomplizierten Snack oder ein Getränk, das am Nachmittag typisch ist und deinem französischen Geschmack entspricht
2. Teile einen charmanten kulturellen Einblick oder eine französische Tradition, warum dieser Snack oder dieses Getränk am Nachmittag besonders geschätzt wird
3. Gib mir eine inspirierende, aber diskrete Notiz, die meinen Nachmittag mit Esprit und Effizienz begleitet
4. Zeige mir bitte zwei bis drei praxiserprobte Tipps aus deiner Erfahrung, wie ich meine heutigen ToDos nach Priorität ordnen und souverän erledigen kann

%s`, baseContext, tasksContext)

	case Evening:
		return fmt.Sprintf(`Bonsoir! %s

Der Arbeitstag neigt sich dem Ende zu. Bitte teile mit:
1. Entweder einen einfachen Rezeptvorschlag für das morgige Mittagessen oder eine Filmempfehlung, die meinem Geschmack entspricht
2. Eine kurze Reflexion über die heutigen Erfolge
3. Eine Sache, auf die ich mich für morgen vorbereiten sollte

%s`, baseContext, tasksContext)

	default:
		return fmt.Sprintf(`Bonne nuit! %s

Bevor ich mich für den Abend zurückziehe, bitte stelle bereit:
1. Einen kurzen Überblick über den morgigen Zeitplan
2. Eine Sache, die ich heute Abend nicht vergessen sollte vorzubereiten
3. Eine geistreiche französische Beobachtung über Erholung oder Produktivität

%s`, baseContext, tasksContext)
	}
}

// GenerateSummary returns the briefing for the current time of day. The
// result is cached for two hours; force bypasses the cache. A fresh summary
// also feeds the task suggestion generator. On failure a fixed fallback
// string is returned instead of an error.
func (jp *JeanPhilippe) GenerateSummary(ctx context.Context, force bool) string {
	if !force {
		if cached := jp.cache.GetText(summaryCacheKey, summaryMaxAge); cached != "" {
			return cached
		}
	}

	summary, err := jp.runner.Run(ctx, assistant.RunOptions{
		SystemPrompt:    briefingSystemPrompt,
		UserPrompt:      jp.userPrompt(),
		WithPersonality: true,
	})
	if err != nil {
		jp.logger.Error("failed_to_generate_briefing", zap.Error(err))
		return failureSummary
	}

	jp.cache.AddText(ctx, summaryCacheKey, summary)

	if !jp.tasks.GenerateSuggestionsFromInput(ctx, summary, suggestionDomainPrompt) {
		jp.logger.Warn("failed_to_generate_suggestions_from_briefing")
	}
	return summary
}
