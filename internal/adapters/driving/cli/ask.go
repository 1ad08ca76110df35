package cli

import (
	"strings"

	"github.com/spf13/cobra"
)

var askCmd = &cobra.Command{
	Use:   "ask [question]",
	Short: "Ask a single question and print the answer",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runAsk,
}

func init() {
	rootCmd.AddCommand(askCmd)
}

func runAsk(cmd *cobra.Command, args []string) error {
	if err := initServices(); err != nil {
		return err
	}
	question := strings.Join(args, " ")

	answer, err := tutor.Ask(cmd.Context(), question)
	if err != nil {
		return err
	}

	cmd.Println(answer.Text)
	if answer.UsedContext && len(answer.Sources) > 0 {
		cmd.Println()
		cmd.Printf("Sources: %s\n", strings.Join(answer.Sources, ", "))
	}
	return nil
}
