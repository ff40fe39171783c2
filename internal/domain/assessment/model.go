package assessment

import (
	"time"

	"github.com/google/uuid"

	"github.com/yanqian/health-advisor/pkg/metrics"
)

// Genders accepted by the form. Any value other than male uses the female BMR constant.
const (
	GenderMale   = "male"
	GenderFemale = "female"
)

// Activity levels keyed into the calorie multiplier table.
const (
	ActivitySedentary  = "sedentary"
	ActivityLightly    = "lightly"
	ActivityModerately = "moderately"
	ActivityVery       = "very"
)

// BMI interpretations.
const (
	BMIUnderweight = "Underweight"
	BMINormal      = "Normal weight"
	BMIOverweight  = "Overweight"
	BMIObese       = "Obese"
)

// Profile captures the biometric inputs submitted by the assessment form.
type Profile struct {
	Name             string  `json:"name" binding:"required"`
	Age              int     `json:"age" binding:"required,min=1,max=120"`
	Gender           string  `json:"gender" binding:"required,oneof=male female"`
	Height           float64 `json:"height" binding:"required,min=50,max=300"`
	Weight           float64 `json:"weight" binding:"required,min=10,max=500"`
	ActivityLevel    string  `json:"activityLevel" binding:"required,oneof=sedentary lightly moderately very"`
	HealthConditions string  `json:"healthConditions,omitempty"`
}

// DietPreferences are the optional inputs collected before generating a diet plan.
type DietPreferences struct {
	DietType                string `json:"dietType" binding:"required"`
	MicronutrientDeficiency string `json:"micronutrientDeficiency,omitempty"`
	Allergies               string `json:"allergies,omitempty"`
	MedicalConditions       string `json:"medicalConditions,omitempty"`
}

// DietRequest is the payload accepted by the diet plan endpoints.
type DietRequest struct {
	Profile
	DietPreferences
}

// BMI holds the raw body mass index and its category.
type BMI struct {
	Value          float64 `json:"value"`
	Interpretation string  `json:"interpretation"`
}

// Metrics are derived deterministically from a Profile.
type Metrics struct {
	BMI          BMI     `json:"bmi"`
	BMR          float64 `json:"bmr"`
	CalorieNeeds float64 `json:"calorieNeeds"`
}

// Assessment echoes the profile summary alongside computed metrics.
type Assessment struct {
	Name   string  `json:"name"`
	Gender string  `json:"gender"`
	Height float64 `json:"height"`
	Weight float64 `json:"weight"`
	Metrics
}

// RecommendationResponse is returned by the calculate endpoint.
type RecommendationResponse struct {
	Assessment
	Recommendations []string            `json:"recommendations"`
	DurationMs      int64               `json:"durationMs,omitempty"`
	TokenUsage      *metrics.TokenUsage `json:"tokenUsage,omitempty"`
}

// DietPlanResponse is returned by the diet endpoint.
type DietPlanResponse struct {
	Assessment
	DietPlan   string              `json:"dietPlan"`
	DurationMs int64               `json:"durationMs,omitempty"`
	TokenUsage *metrics.TokenUsage `json:"tokenUsage,omitempty"`
}

// DietPlanChunk is a streaming update of a diet plan.
type DietPlanChunk struct {
	Delta      string      `json:"delta,omitempty"`
	Completed  bool        `json:"completed"`
	Assessment *Assessment `json:"assessment,omitempty"`
	Error      string      `json:"error,omitempty"`
}

// PromptKind distinguishes the two prompt templates.
type PromptKind string

const (
	KindRecommendations PromptKind = "recommendations"
	KindDietPlan        PromptKind = "diet_plan"
)

// Sampling holds generation parameters sent upstream.
type Sampling struct {
	Temperature float32
	TopK        int
	TopP        float32
}

// CallRecord is an operational log line for one upstream generation call.
// It never carries profile data.
type CallRecord struct {
	ID               uuid.UUID  `json:"id"`
	Kind             PromptKind `json:"kind"`
	Provider         string     `json:"provider"`
	Model            string     `json:"model"`
	Outcome          string     `json:"outcome"`
	LatencyMs        int64      `json:"latencyMs"`
	PromptTokens     int        `json:"promptTokens"`
	CompletionTokens int        `json:"completionTokens"`
	CreatedAt        time.Time  `json:"createdAt"`
}

// Call outcomes.
const (
	OutcomeOK                  = "ok"
	OutcomeMissingCredential   = "missing_credential"
	OutcomeInvalidResponse     = "invalid_response"
	OutcomeUpstreamUnavailable = "upstream_unavailable"
	OutcomeCancelled           = "cancelled"
)

// Config wires runtime knobs for the assessment domain.
type Config struct {
	RecommendationSampling Sampling
	DietSampling           Sampling
	MissingKeyFallback     string
	EmptyResponseFallback  string
	CacheTTL               time.Duration
}

// Default fallback texts returned instead of generated content.
const (
	DefaultMissingKeyFallback    = "• Gemini API key is missing."
	DefaultEmptyResponseFallback = "• Unable to generate recommendations."
)
