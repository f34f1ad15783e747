package coercion

import "github.com/kirillkom/wellness-agents/internal/core/domain"

// Default table shared by the mood and sleep schemas.
var (
	confidencePct  = bounds{def: 50, min: 0, max: 100}
	intensityScale = bounds{def: 5, min: 1, max: 10}
	emotionScore   = bounds{def: 0, min: 0, max: 100}
	polarityRange  = bounds{def: 0, min: -1, max: 1}
	subjectivity   = bounds{def: 0.5, min: 0, max: 1}
	unitSlider     = bounds{def: 0.5, min: 0, max: 1}
	meditationMins = bounds{def: 10, min: 1, max: 120}
	wordCount      = bounds{def: 0, min: 0, max: 1_000_000}
	durationSecs   = bounds{def: 0, min: 0, max: 24 * 60 * 60}
	trackCount     = bounds{def: 0, min: 0, max: 1_000_000}

	categoryEnum = enumSpec{
		def:     string(domain.CategoryNeutral),
		members: []string{"positive", "negative", "neutral"},
		aliases: map[string]string{"mixed": "neutral"},
	}
	levelEnum = enumSpec{
		def:     string(domain.LevelLow),
		members: []string{"low", "medium", "high"},
		aliases: map[string]string{"moderate": "medium", "severe": "high", "critical": "high", "none": "low", "minimal": "low"},
	}
	complianceEnum = enumSpec{
		def:     string(domain.LevelMedium),
		members: levelEnum.members,
		aliases: levelEnum.aliases,
	}
	urgencyEnum = enumSpec{
		def:     string(domain.UrgencyNone),
		members: []string{"none", "monitor", "immediate"},
		aliases: map[string]string{"low": "none", "medium": "monitor", "high": "immediate", "urgent": "immediate"},
	}
	complexityEnum = enumSpec{
		def:     string(domain.ComplexitySimple),
		members: []string{"simple", "moderate", "complex"},
	}
	timeOfDayEnum = enumSpec{
		def:     string(domain.TimeUnknown),
		members: []string{"morning", "afternoon", "evening", "night", "unknown"},
		aliases: map[string]string{"late night": "night", "midnight": "night", "noon": "afternoon"},
	}
	videoDurationEnum = enumSpec{
		def:     "medium",
		members: []string{"short", "medium", "long"},
	}
	difficultyEnum = enumSpec{
		def:     "beginner",
		members: []string{"beginner", "intermediate", "advanced"},
	}
	sleepMoodEnum = enumSpec{
		def:     "unknown",
		members: []string{"tired", "refreshed", "anxious", "groggy", "unknown"},
	}
	sleepTrendEnum = enumSpec{
		def:     "unknown",
		members: []string{"increasing", "decreasing", "stable", "unknown"},
	}
	checkInPeriodEnum = enumSpec{
		def:     "weekly",
		members: []string{"daily", "weekly", "custom"},
	}
)

const (
	defaultMoodLabel   = "Neutral"
	defaultSleepIssue  = "unknown"
	defaultMoodCheckIn = "in 24 hours"
	defaultVideoMood   = "calm"
	defaultMusicMood   = "relaxing"
)

// severityIntensity places sleep severity on the shared 1-10 intensity scale.
var severityIntensity = map[domain.Level]int{
	domain.LevelLow:    3,
	domain.LevelMedium: 6,
	domain.LevelHigh:   9,
}

var urgencyForLevel = map[domain.Level]domain.Urgency{
	domain.LevelLow:    domain.UrgencyNone,
	domain.LevelMedium: domain.UrgencyMonitor,
	domain.LevelHigh:   domain.UrgencyImmediate,
}
