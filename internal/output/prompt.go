package output

import (
	"errors"
	"os"

	"github.com/manifoldco/promptui"
	"golang.org/x/term"
)

// ErrNotInteractive is returned when a prompt needs a terminal but stdin is not one.
var ErrNotInteractive = errors.New("stdin is not a terminal")

// Prompter abstracts interactive prompts so commands can be tested.
type Prompter interface {
	// Confirm asks a yes/no question. Cancelling returns false and no error.
	Confirm(label string) (bool, error)

	// SelectFromList displays a list and returns the chosen index.
	SelectFromList(label string, items []string) (int, error)
}

// IsInteractive returns true if stdin is a terminal.
func IsInteractive() bool {
	return term.IsTerminal(int(os.Stdin.Fd()))
}

// PromptuiPrompter implements Prompter with promptui.
type PromptuiPrompter struct{}

// NewPrompter returns the promptui-backed prompter.
func NewPrompter() *PromptuiPrompter {
	return &PromptuiPrompter{}
}

// Confirm implements Prompter.
func (p *PromptuiPrompter) Confirm(label string) (bool, error) {
	if !IsInteractive() {
		return false, ErrNotInteractive
	}
	prompt := promptui.Prompt{
		Label:     label,
		IsConfirm: true,
	}
	if _, err := prompt.Run(); err != nil {
		if errors.Is(err, promptui.ErrAbort) || errors.Is(err, promptui.ErrInterrupt) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// SelectFromList implements Prompter.
func (p *PromptuiPrompter) SelectFromList(label string, items []string) (int, error) {
	if !IsInteractive() {
		return -1, ErrNotInteractive
	}
	prompt := promptui.Select{
		Label: label,
		Items: items,
		Size:  10,
		Templates: &promptui.SelectTemplates{
			Active:   "▸ {{ . | cyan }}",
			Inactive: "  {{ . }}",
			Selected: "✓ {{ . | green }}",
		},
	}
	idx, _, err := prompt.Run()
	if err != nil {
		return -1, err
	}
	return idx, nil
}

var _ Prompter = (*PromptuiPrompter)(nil)
