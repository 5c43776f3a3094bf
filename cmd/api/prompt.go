package main

import (
	"fmt"

	"fitplan/internal/profile"
	"fitplan/internal/prompt"
	"github.com/spf13/cobra"
)

var promptProfile = profile.Default()

// promptCmd prints the plan prompt without calling any model.
var promptCmd = &cobra.Command{
	Use:   "prompt",
	Short: "Print the plan prompt for a profile",
	Long: `Print the exact prompt the Generate tab sends to the model, built from the
profile given by flags. No model is called.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		if err := promptProfile.Validate(); err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		if withSystem, _ := cmd.Flags().GetBool("system"); withSystem {
			fmt.Fprintln(out, prompt.SystemPrompt)
			fmt.Fprintln(out)
		}
		fmt.Fprintln(out, prompt.PlanPrompt(promptProfile))
		return nil
	},
}

func init() {
	f := promptCmd.Flags()
	f.StringVar(&promptProfile.Name, "name", "", "name")
	f.Float64Var(&promptProfile.Weight, "weight", 0, "weight in kg")
	f.StringVar(&promptProfile.Gender, "gender", promptProfile.Gender, "Male, Female or Other")
	f.IntVar(&promptProfile.Age, "age", 0, "age in years")
	f.IntVar(&promptProfile.Height, "height", 0, "height in cm")
	f.StringVar(&promptProfile.FitnessLevel, "fitness-level", promptProfile.FitnessLevel, "Beginner, Intermediate or Advanced")
	f.StringVar(&promptProfile.MedicalConditions, "medical-conditions", "", "medical conditions or injuries")
	f.StringVar(&promptProfile.DietaryPreferences, "dietary-preferences", "", "dietary preferences or restrictions")
	f.StringVar(&promptProfile.SleepPatterns, "sleep-patterns", "", "average hours of sleep per night")
	f.StringVar(&promptProfile.Experience, "experience", "", "fitness experience")
	f.StringVar(&promptProfile.StressLevel, "stress-level", promptProfile.StressLevel, "Low, Medium or High")
	f.StringVar(&promptProfile.Goals, "goals", "", "fitness goals")
	f.Bool("system", false, "also print the system prompt")
}
