package cli

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/brightpath-ai/mathtutor/internal/adapters/driving/tui"
)

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Start an interactive chat session in the terminal",
	Long: `Opens a terminal chat with the tutor. Type a question and press
Enter; Ctrl+C quits.`,
	RunE: runChat,
}

func init() {
	rootCmd.AddCommand(chatCmd)
}

func runChat(_ *cobra.Command, _ []string) error {
	if err := initServices(); err != nil {
		return err
	}

	p := tea.NewProgram(tui.New(tutor), tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("chat session: %w", err)
	}
	return nil
}
