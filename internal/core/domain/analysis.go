package domain

import "time"

type AnalysisKind string

const (
	KindMood  AnalysisKind = "mood"
	KindSleep AnalysisKind = "sleep"
)

func (k AnalysisKind) Valid() bool {
	return k == KindMood || k == KindSleep
}

type MoodCategory string

const (
	CategoryPositive MoodCategory = "positive"
	CategoryNegative MoodCategory = "negative"
	CategoryNeutral  MoodCategory = "neutral"
)

type Level string

const (
	LevelLow    Level = "low"
	LevelMedium Level = "medium"
	LevelHigh   Level = "high"
)

type Urgency string

const (
	UrgencyNone      Urgency = "none"
	UrgencyMonitor   Urgency = "monitor"
	UrgencyImmediate Urgency = "immediate"
)

type Complexity string

const (
	ComplexitySimple   Complexity = "simple"
	ComplexityModerate Complexity = "moderate"
	ComplexityComplex  Complexity = "complex"
)

type TimeOfDay string

const (
	TimeMorning   TimeOfDay = "morning"
	TimeAfternoon TimeOfDay = "afternoon"
	TimeEvening   TimeOfDay = "evening"
	TimeNight     TimeOfDay = "night"
	TimeUnknown   TimeOfDay = "unknown"
)

// Owner is the authenticated identity an analysis belongs to.
type Owner struct {
	ID string
}

// AnalysisResult is the normalized output of one analyzer run.
type AnalysisResult struct {
	ID       string       `json:"id,omitempty"`
	OwnerID  string       `json:"ownerId,omitempty"`
	Kind     AnalysisKind `json:"kind"`
	RawInput string       `json:"rawInput"`

	Assessment      Assessment      `json:"primaryAssessment"`
	Insights        Insights        `json:"narrativeInsights"`
	Recommendations Recommendations `json:"recommendationRequest"`
	FollowUp        FollowUp        `json:"followUp"`
	Risk            RiskAssessment  `json:"riskAssessment"`
	Metadata        Metadata        `json:"metadata"`
	Sleep           *SleepCare      `json:"sleep,omitempty"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

type Assessment struct {
	Label      string         `json:"label"`
	Category   MoodCategory   `json:"category"`
	Confidence float64        `json:"confidence"`
	Intensity  int            `json:"intensity"`
	Emotions   []EmotionScore `json:"emotions"`
	Sentiment  Sentiment      `json:"sentiment"`
}

type EmotionScore struct {
	Emotion string  `json:"emotion"`
	Score   float64 `json:"score"`
}

type Sentiment struct {
	Polarity     float64 `json:"polarity"`
	Subjectivity float64 `json:"subjectivity"`
}

type Insights struct {
	Summary   string   `json:"summary"`
	KeyThemes []string `json:"keyThemes"`
	Triggers  []string `json:"triggers"`
	Strengths []string `json:"strengths"`
	Concerns  []string `json:"concerns"`
}

type FollowUp struct {
	CheckIn      string   `json:"checkIn"`
	Questions    []string `json:"questions"`
	Goals        []string `json:"goals"`
	TrackMetrics []string `json:"trackMetrics"`
}

type RiskAssessment struct {
	Level           Level    `json:"level"`
	Indicators      []string `json:"indicators"`
	Recommendations []string `json:"recommendations"`
	Urgency         Urgency  `json:"urgency"`
}

// Elevated reports whether the notification subsystem should hear about this result.
func (r RiskAssessment) Elevated() bool {
	return r.Level == LevelMedium || r.Level == LevelHigh
}

type Metadata struct {
	WordCount   int        `json:"wordCount"`
	Complexity  Complexity `json:"complexity"`
	TimeOfDay   TimeOfDay  `json:"timeOfDay"`
	ContextTags []string   `json:"contextTags"`
}

// SleepCare carries the sleep-coach sections that have no mood counterpart.
type SleepCare struct {
	Severity        Level     `json:"severity"`
	UserMood        string    `json:"userMood"`
	DurationTrend   string    `json:"durationTrend"`
	HistoryDetected bool      `json:"historyDetected"`
	Routine         Routine   `json:"routine"`
	Tips            SleepTips `json:"tips"`
	ComplianceRisk  Level     `json:"complianceRisk"`
}

type Routine struct {
	WindDown         []string `json:"windDown"`
	AvoidBeforeBed   []string `json:"avoidBeforeBed"`
	OptimalSleepTime string   `json:"optimalSleepTime"`
	OptimalWakeTime  string   `json:"optimalWakeTime"`
	Reminders        []string `json:"reminders"`
}

type SleepTips struct {
	ImmediateActions       []string `json:"immediateActions"`
	LifestyleChanges       []string `json:"lifestyleChanges"`
	EnvironmentSuggestions []string `json:"environmentSuggestions"`
}

// AnalysisSummary is the compact list view of an analysis.
type AnalysisSummary struct {
	ID              string       `json:"id"`
	OwnerID         string       `json:"ownerId"`
	Kind            AnalysisKind `json:"kind"`
	Label           string       `json:"label"`
	Category        MoodCategory `json:"category"`
	Severity        Level        `json:"severity"`
	Summary         string       `json:"summary"`
	Recommendations []string     `json:"recommendations"`
	CreatedAt       time.Time    `json:"createdAt"`
}

func (a *AnalysisResult) Summary() AnalysisSummary {
	severity := a.Risk.Level
	if a.Sleep != nil {
		severity = a.Sleep.Severity
	}
	top := a.Recommendations.Immediate
	if len(top) > 3 {
		top = top[:3]
	}
	return AnalysisSummary{
		ID:              a.ID,
		OwnerID:         a.OwnerID,
		Kind:            a.Kind,
		Label:           a.Assessment.Label,
		Category:        a.Assessment.Category,
		Severity:        severity,
		Summary:         a.Insights.Summary,
		Recommendations: append([]string{}, top...),
		CreatedAt:       a.CreatedAt,
	}
}

// AnalysisFilter narrows owner-scoped reads. OwnerID is mandatory.
type AnalysisFilter struct {
	OwnerID    string
	Kind       AnalysisKind
	Label      string
	From       time.Time
	To         time.Time
	RiskLevels []Level
	TimeOfDay  TimeOfDay
	ContextTag string
	Limit      int
}

type TrendPoint struct {
	Label         string  `json:"label"`
	Count         int     `json:"count"`
	AvgConfidence float64 `json:"avgConfidence"`
	AvgIntensity  float64 `json:"avgIntensity"`
}

// PersistenceInfo is the non-fatal side channel of a save attempt.
type PersistenceInfo struct {
	Saved bool   `json:"saved"`
	ID    string `json:"id,omitempty"`
	Error string `json:"error,omitempty"`
}

type AnalysisOutcome struct {
	Analysis    *AnalysisResult `json:"analysis"`
	Persistence PersistenceInfo `json:"persistence"`
}

type AnalysisInput struct {
	Agent   string            `json:"agent"`
	Text    string            `json:"input"`
	Context map[string]string `json:"context,omitempty"`
}

// RiskEvent is handed to the notification subsystem; dispatch happens elsewhere.
// AnalysisID is empty when the analysis could not be saved.
type RiskEvent struct {
	AnalysisID string       `json:"analysisId,omitempty"`
	Persisted  bool         `json:"persisted"`
	OwnerID    string       `json:"ownerId"`
	Kind       AnalysisKind `json:"kind"`
	Level      Level        `json:"level"`
	Urgency    Urgency      `json:"urgency"`
	Indicators []string     `json:"indicators"`
	CreatedAt  time.Time    `json:"createdAt"`
}
