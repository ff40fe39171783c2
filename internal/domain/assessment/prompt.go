package assessment

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Payload is everything a prompt template can interpolate.
type Payload struct {
	Profile
	DietPreferences
	Metrics
}

// BuildRecommendationPrompt asks for short fitness and diet bullet points.
func BuildRecommendationPrompt(p Payload) string {
	var b strings.Builder
	b.WriteString("You are a health expert. Based on the following information, generate personalized health recommendations in bullet points.\n")
	b.WriteString("Include 3 points on fitness.\n")
	b.WriteString("Include 3 points on diet.\n")
	if conditions := strings.TrimSpace(p.HealthConditions); conditions != "" {
		fmt.Fprintf(&b, "Include a few extra points on how to manage or improve these health conditions: %s.\n", conditions)
	}
	b.WriteString("Be concise and do not add extra information, only the recommendations.\n\n")
	writeBodyStats(&b, p)
	if conditions := strings.TrimSpace(p.HealthConditions); conditions != "" {
		fmt.Fprintf(&b, "Health Conditions: %s\n", conditions)
	}
	b.WriteString("\nReturn only the bullet points, no explanation.")
	return b.String()
}

// BuildDietPlanPrompt asks for a structured, multi-meal diet plan.
func BuildDietPlanPrompt(p Payload) string {
	var b strings.Builder
	b.WriteString("You are a certified nutritionist AI. Based on the following physical and lifestyle information, ")
	b.WriteString("generate a personalized, structured, and goal-oriented diet plan. ")
	b.WriteString("The diet should be realistic, sustainable, and aimed at optimizing their health.\n\n")

	b.WriteString("User Details:\n")
	writeBodyStats(&b, p)
	optionalLine(&b, "Diet Type", p.DietType)
	optionalLine(&b, "Health Conditions", p.HealthConditions)
	optionalLine(&b, "Medical Conditions", p.MedicalConditions)
	optionalLine(&b, "Allergies", p.Allergies)
	optionalLine(&b, "Micronutrient Deficiency", p.MicronutrientDeficiency)

	b.WriteString("\nInstructions:\n")
	b.WriteString("1. Briefly explain what the BMI and BMR indicate about the person's body condition.\n")
	b.WriteString("2. Clearly state the recommended daily caloric intake based on their BMR and activity level.\n")
	b.WriteString("3. Provide a structured meal plan with these meals: Breakfast, Mid-morning snack, Lunch, Evening snack, Dinner.\n")
	b.WriteString("   Each meal must include food items with portion sizes, approximate calories, and the macro distribution (carbs, protein, fats).\n")
	if dietType := strings.TrimSpace(p.DietType); dietType != "" {
		fmt.Fprintf(&b, "   Every meal must fit a %s diet.\n", dietType)
	}
	if allergies := strings.TrimSpace(p.Allergies); allergies != "" {
		fmt.Fprintf(&b, "   Never include foods containing: %s.\n", allergies)
	}
	b.WriteString("4. Add a list of foods to avoid and foods to prioritize.\n")
	if medical := strings.TrimSpace(p.MedicalConditions); medical != "" {
		fmt.Fprintf(&b, "   Take these medical conditions into account: %s.\n", medical)
	}
	b.WriteString("5. Include a micronutrient table listing each key vitamin and mineral with the percentage of the daily requirement the plan covers.\n")
	if deficiency := strings.TrimSpace(p.MicronutrientDeficiency); deficiency != "" {
		fmt.Fprintf(&b, "   Prioritize foods that correct this deficiency: %s.\n", deficiency)
	}
	b.WriteString("6. Recommend how often the user should review or adjust their diet.\n\n")
	b.WriteString("Provide the plan in a clean and easy-to-read format, suitable for users with no nutrition background.")
	return b.String()
}

func writeBodyStats(b *strings.Builder, p Payload) {
	fmt.Fprintf(b, "Age: %d\n", p.Age)
	fmt.Fprintf(b, "Gender: %s\n", p.Gender)
	fmt.Fprintf(b, "Height: %s cm\n", formatNumber(p.Height))
	fmt.Fprintf(b, "Weight: %s kg\n", formatNumber(p.Weight))
	fmt.Fprintf(b, "BMI: %s (%s)\n", formatFixed(p.BMI.Value, 1), p.BMI.Interpretation)
	fmt.Fprintf(b, "BMR: %s kcal/day\n", formatFixed(p.BMR, 0))
	fmt.Fprintf(b, "Calorie Needs: %s kcal/day\n", formatFixed(p.CalorieNeeds, 0))
	fmt.Fprintf(b, "Activity Level: %s\n", p.ActivityLevel)
}

func optionalLine(b *strings.Builder, label, value string) {
	if value = strings.TrimSpace(value); value != "" {
		fmt.Fprintf(b, "%s: %s\n", label, value)
	}
}

// formatFixed rounds half away from zero, so 3070.5 renders as 3071.
func formatFixed(v float64, decimals int) string {
	scale := math.Pow10(decimals)
	return strconv.FormatFloat(math.Round(v*scale)/scale, 'f', decimals, 64)
}

func formatNumber(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
