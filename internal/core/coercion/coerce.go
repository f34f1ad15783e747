// Package coercion maps loosely typed model payloads onto strict domain
// models. Every leaf has a default; only a non-mapping root is an error.
package coercion

import (
	"math"
	"strings"

	"github.com/kirillkom/wellness-agents/internal/core/domain"
)

// Coerce builds a fully populated AnalysisResult of the given kind from an
// extracted payload. ID, owner and timestamps stay unset until persistence.
func Coerce(obj any, kind domain.AnalysisKind, rawInput string) (*domain.AnalysisResult, error) {
	root, ok := asRecord(obj)
	if !ok {
		return nil, &domain.CoercionError{Field: "root", Got: describeType(obj)}
	}

	switch kind {
	case domain.KindSleep:
		if err := requireMapping(root, "sleepAssessment"); err != nil {
			return nil, err
		}
		return coerceSleep(root, rawInput), nil
	default:
		if err := requireMapping(root, "analysis"); err != nil {
			return nil, err
		}
		return coerceMood(root, rawInput), nil
	}
}

// requireMapping rejects a structurally required section that is present but not an object.
func requireMapping(root record, key string) error {
	v, ok := root[key]
	if !ok || v == nil {
		return nil
	}
	if _, isMap := asRecord(v); !isMap {
		return &domain.CoercionError{Field: key, Got: describeType(v)}
	}
	return nil
}

func coerceMood(root record, rawInput string) *domain.AnalysisResult {
	a := root.sub("analysis")
	s := a.sub("sentiment")
	risk := coerceRisk(root.sub("riskAssessment"), "level", "indicators")
	meta := root.sub("metadata")

	return &domain.AnalysisResult{
		Kind:     domain.KindMood,
		RawInput: rawInput,
		Assessment: domain.Assessment{
			Label:      a.str("primaryMood", defaultMoodLabel),
			Category:   domain.MoodCategory(a.enum("moodCategory", categoryEnum)),
			Confidence: a.num("confidence", confidencePct),
			Intensity:  a.integer("intensity", intensityScale),
			Emotions:   coerceEmotions(a.records("emotions")),
			Sentiment: domain.Sentiment{
				Polarity:     s.num("polarity", polarityRange),
				Subjectivity: s.num("subjectivity", subjectivity),
			},
		},
		Insights:        coerceInsights(root.sub("insights")),
		Recommendations: coerceRecommendations(root.sub("recommendations")),
		FollowUp: domain.FollowUp{
			CheckIn:      root.sub("followUp").str("checkIn", defaultMoodCheckIn),
			Questions:    root.sub("followUp").strs("questions"),
			Goals:        root.sub("followUp").strs("goals"),
			TrackMetrics: root.sub("followUp").strs("trackMetrics"),
		},
		Risk: risk,
		Metadata: domain.Metadata{
			WordCount:   wordCountOf(meta, rawInput),
			Complexity:  domain.Complexity(meta.enum("complexity", complexityEnum)),
			TimeOfDay:   domain.TimeOfDay(meta.enum("timeOfDay", timeOfDayEnum)),
			ContextTags: firstList(meta, "context", "contextTags"),
		},
	}
}

func coerceSleep(root record, rawInput string) *domain.AnalysisResult {
	s := root.sub("sleepAssessment")
	severity := domain.Level(s.enum("severity", levelEnum))
	category := domain.CategoryNegative
	if severity == domain.LevelLow {
		category = domain.CategoryNeutral
	}

	routine := root.sub("routineRecommendation")
	tips := root.sub("tips")
	disorder := root.sub("disorderCheck")
	follow := root.sub("followUp")
	meta := root.sub("metadata")

	timeKey := "timeOfDayMentioned"
	if _, ok := meta[timeKey]; !ok {
		timeKey = "timeOfDay"
	}

	return &domain.AnalysisResult{
		Kind:     domain.KindSleep,
		RawInput: rawInput,
		Assessment: domain.Assessment{
			Label:      s.str("issue", defaultSleepIssue),
			Category:   category,
			Confidence: sleepConfidence(s["confidence"]),
			Intensity:  severityIntensity[severity],
			Emotions:   []domain.EmotionScore{},
			Sentiment:  domain.Sentiment{Polarity: polarityRange.def, Subjectivity: subjectivity.def},
		},
		Insights: domain.Insights{
			Summary:   s.str("summary", ""),
			KeyThemes: []string{},
			Triggers:  []string{},
			Strengths: []string{},
			Concerns:  disorder.strs("symptoms"),
		},
		Recommendations: coerceRecommendations(root.sub("recommendations")),
		FollowUp: domain.FollowUp{
			CheckIn:      follow.enum("checkInPeriod", checkInPeriodEnum),
			Questions:    follow.strs("questions"),
			Goals:        follow.strs("goals"),
			TrackMetrics: follow.strs("trackMetrics"),
		},
		Risk: coerceRisk(disorder, "riskLevel", "symptoms"),
		Metadata: domain.Metadata{
			WordCount:   wordCountOf(meta, rawInput),
			Complexity:  domain.Complexity(meta.enum("complexity", complexityEnum)),
			TimeOfDay:   domain.TimeOfDay(meta.enum(timeKey, timeOfDayEnum)),
			ContextTags: firstList(meta, "contextTags", "context"),
		},
		Sleep: &domain.SleepCare{
			Severity:        severity,
			UserMood:        s.enum("userMood", sleepMoodEnum),
			DurationTrend:   s.enum("sleepDurationTrend", sleepTrendEnum),
			HistoryDetected: s.boolean("sleepHistoryDetected", false),
			Routine: domain.Routine{
				WindDown:         routine.strs("windDown"),
				AvoidBeforeBed:   routine.strs("avoidBeforeBed"),
				OptimalSleepTime: routine.str("optimalSleepTime", ""),
				OptimalWakeTime:  routine.str("optimalWakeTime", ""),
				Reminders:        routine.strs("reminders"),
			},
			Tips: domain.SleepTips{
				ImmediateActions:       tips.strs("immediateActions"),
				LifestyleChanges:       tips.strs("lifestyleChanges"),
				EnvironmentSuggestions: tips.strs("environmentSuggestions"),
			},
			ComplianceRisk: domain.Level(disorder.enum("complianceRisk", complianceEnum)),
		},
	}
}

func coerceEmotions(items []record) []domain.EmotionScore {
	out := make([]domain.EmotionScore, 0, len(items))
	for _, item := range items {
		name := item.str("emotion", item.str("name", ""))
		if name == "" {
			continue
		}
		out = append(out, domain.EmotionScore{Emotion: name, Score: item.num("score", emotionScore)})
	}
	return out
}

func coerceInsights(r record) domain.Insights {
	return domain.Insights{
		Summary:   r.str("summary", ""),
		KeyThemes: r.strs("keyThemes"),
		Triggers:  r.strs("triggers"),
		Strengths: r.strs("strengths"),
		Concerns:  r.strs("concerns"),
	}
}

func coerceRisk(r record, levelKey, indicatorsKey string) domain.RiskAssessment {
	level := domain.Level(r.enum(levelKey, levelEnum))
	urgency := urgencyForLevel[level]
	if _, ok := r["urgency"]; ok {
		urgency = domain.Urgency(r.enum("urgency", urgencyEnum))
	}
	return domain.RiskAssessment{
		Level:           level,
		Indicators:      r.strs(indicatorsKey),
		Recommendations: r.strs("recommendations"),
		Urgency:         urgency,
	}
}

// coerceRecommendations keeps a channel sub-record only when the model sent
// one; absence stays distinguishable from an empty search.
func coerceRecommendations(r record) domain.Recommendations {
	content := r.sub("content")
	out := domain.Recommendations{Immediate: r.strs("immediate")}

	if content.present("youtube", "video") {
		v := content.sub("youtube", "video")
		out.Content.Video = &domain.VideoRequest{
			Types:    v.strs("types"),
			Keywords: v.strs("keywords"),
			Duration: v.enum("duration", videoDurationEnum),
			Mood:     v.str("mood", defaultVideoMood),
		}
	}
	if content.present("spotify", "playlist", "music") {
		p := content.sub("spotify", "playlist", "music")
		out.Content.Playlist = &domain.PlaylistRequest{
			Keywords: p.strs("keywords"),
			Genres:   p.strs("genres"),
			Energy:   p.num("energy", unitSlider),
			Valence:  p.num("valence", unitSlider),
			Mood:     p.str("mood", defaultMusicMood),
		}
	}
	if content.present("articles") {
		a := content.sub("articles")
		out.Content.Articles = &domain.ArticlesRequest{
			Topics:     a.strs("topics"),
			Difficulty: a.enum("difficulty", difficultyEnum),
			Focus:      a.str("focus", ""),
		}
	}
	if content.present("meditation") {
		m := content.sub("meditation")
		out.Content.Meditation = &domain.MeditationRequest{
			Types:           m.strs("types"),
			DurationMinutes: m.integer("duration", meditationMins),
			Difficulty:      m.enum("difficulty", difficultyEnum),
		}
	}
	return out
}

// sleepConfidence accepts the 0-1 scale the sleep prompt asks for and
// percentages from models that ignore it.
func sleepConfidence(v any) float64 {
	f, ok := toFloat(v)
	if !ok || math.IsNaN(f) {
		return confidencePct.def
	}
	if f >= 0 && f <= 1 {
		f *= 100
	}
	return confidencePct.clamp(f)
}

func wordCountOf(meta record, rawInput string) int {
	if n := meta.integer("wordCount", wordCount); n > 0 {
		return n
	}
	return len(strings.Fields(rawInput))
}

func firstList(r record, keys ...string) []string {
	for _, key := range keys {
		if list := r.strs(key); len(list) > 0 {
			return list
		}
	}
	return []string{}
}
