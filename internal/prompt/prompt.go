package prompt

import (
	"fmt"
	"strings"

	"fitplan/internal/profile"
)

/* =================================================================================
						PROMPT ENGINEERING
=================================================================================*/

// SystemPrompt is the trainer persona for the first plan.
const SystemPrompt = `You are a fitness trainer who figures out workout, yoga and diet plans for users.`

// FollowUpSystemPrompt is the persona for the next-12-weeks plan.
const FollowUpSystemPrompt = `You are a fitness trainer continuing a 12-week program with a client who completed every week of their previous plan.`

/*
PlanPromptTemplate is the formatted string used to build the plan request.
Placeholders are filled in PlanPrompt, in field order.
*/
const PlanPromptTemplate = `
Generate a personalized fitness and diet plan based on the following parameters:
1. **Name** : %s
2. **Weight**: %s kg
3. **Gender**: %s
4. **Age**: %d years
5. **Height**: %d cm
6. **Fitness Level**: %s (Beginner, Intermediate, Advanced)
7. **Medical Conditions/Injuries**: %s (if any)
8. **Dietary Preferences/Restrictions**: %s (if any)
9. **Sleep Patterns**: %s (average hours per night)
10. **Fitness Experience**: %s (e.g., years of training)
11. **Stress Level**: %s (Low, Medium, High)
12. **Goals**: %s (e.g., muscle gain, weight loss)

**Instructions:**

1. **Workout Plan**:
- Provide a detailed weekly workout routine that includes exercises for strength training, cardio, and flexibility.
- Include recommendations for yoga practices if applicable.
- Tailor the intensity and volume according to the fitness level and goals.

2. **Diet Plan**:
- Create a balanced diet plan that aligns with the dietary preferences and restrictions.
- Include meal suggestions and portion sizes to meet the nutritional needs and support fitness goals.

3. **Additional Recommendations**:
- Suggest strategies for improving sleep quality and managing stress to enhance overall fitness and well-being.

The plan should be practical and achievable, considering the user's medical conditions, fitness level, and experience. Ensure that the suggestions are safe and effective for the user's specific situation.
`

// FollowUpPromptTemplate takes the previous plan and the user's adjustments.
const FollowUpPromptTemplate = "Generate a personalized fitness and diet plan for the next 12 weeks incorporating the following progress:\n%s\n\nAdjustments/Goals:\n%s"

// PlanPrompt fills PlanPromptTemplate with the profile. Free-text fields are passed
// through as typed, trimmed of surrounding whitespace.
func PlanPrompt(p profile.Profile) string {
	return fmt.Sprintf(PlanPromptTemplate,
		p.Name,
		p.WeightString(),
		p.Gender,
		p.Age,
		p.Height,
		p.FitnessLevel,
		p.MedicalConditions,
		p.DietaryPreferences,
		p.SleepPatterns,
		p.Experience,
		p.StressLevel,
		p.Goals,
	)
}

// FollowUpPrompt builds the next-12-weeks request from the stored plan.
func FollowUpPrompt(previousPlan, adjustments string) string {
	return fmt.Sprintf(FollowUpPromptTemplate, previousPlan, strings.TrimSpace(adjustments))
}
