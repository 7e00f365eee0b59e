package cmd

import (
	"errors"
	"fmt"
	"strings"

	"github.com/manifoldco/promptui"
)

// ErrNoSelection means the operator backed out of a picker.  Workflows treat
// it as a hard precondition failure and unwind to the menu; they never
// proceed with an empty selection.
var ErrNoSelection = errors.New("no selection made")

func selectOne(label string, items []string) (int, string, error) {
	if len(items) == 0 {
		return 0, "", fmt.Errorf("%s: nothing to select from", label)
	}

	prompt := promptui.Select{
		Label: label,
		Items: items,
		Size:  15,
		Searcher: func(input string, index int) bool {
			return strings.Contains(strings.ToLower(items[index]), strings.ToLower(input))
		},
	}

	i, v, err := prompt.Run()
	if err != nil {
		// interrupt and abort both mean "no choice was made"
		return 0, "", ErrNoSelection
	}
	return i, v, nil
}

func promptString(label, defaultValue string) (string, error) {
	prompt := promptui.Prompt{Label: label, Default: defaultValue}
	v, err := prompt.Run()
	if err != nil {
		return "", ErrNoSelection
	}
	v = strings.TrimSpace(v)
	if v == "" {
		return "", ErrNoSelection
	}
	return v, nil
}
