package cmd

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
	"syscall"

	"golang.org/x/term"

	"github.com/jotvault/jotvault/internal/crypto"
)

var stdin = bufio.NewReader(os.Stdin)

// readPassword prompts without echo
func readPassword(prompt string) ([]byte, error) {
	fmt.Print(prompt)
	password, err := term.ReadPassword(int(syscall.Stdin))
	fmt.Println()
	if err != nil {
		return nil, fmt.Errorf("failed to read password: %w", err)
	}
	return password, nil
}

// readNewPassword prompts twice for what and requires both entries to match
func readNewPassword(what string) ([]byte, error) {
	password1, err := readPassword(fmt.Sprintf("Enter %s: ", what))
	if err != nil {
		return nil, err
	}
	password2, err := readPassword(fmt.Sprintf("Confirm %s: ", what))
	if err != nil {
		crypto.Zeroize(password1)
		return nil, err
	}
	defer crypto.Zeroize(password2)

	if !crypto.ConstantTimeCompare(password1, password2) {
		crypto.Zeroize(password1)
		return nil, fmt.Errorf("passwords do not match")
	}
	if len(password1) == 0 {
		return nil, fmt.Errorf("password must not be empty")
	}
	return password1, nil
}

// readLine prompts for one line, returning def when the answer is empty
func readLine(prompt, def string) (string, error) {
	if def != "" {
		fmt.Printf("%s [%s]: ", prompt, def)
	} else {
		fmt.Printf("%s: ", prompt)
	}
	line, err := stdin.ReadString('\n')
	if err != nil && (err != io.EOF || line == "") {
		return "", fmt.Errorf("failed to read input: %w", err)
	}
	line = strings.TrimSpace(line)
	if line == "" {
		return def, nil
	}
	return line, nil
}

// confirm asks a yes/no question
func confirm(prompt string) bool {
	answer, err := readLine(prompt+" (y/n)", "")
	if err != nil {
		return false
	}
	answer = strings.ToLower(answer)
	return answer == "y" || answer == "yes"
}

// readBody returns text piped on stdin, or nothing when stdin is a terminal
func readBody() (string, error) {
	if term.IsTerminal(int(syscall.Stdin)) {
		return "", nil
	}
	data, err := io.ReadAll(stdin)
	if err != nil {
		return "", fmt.Errorf("failed to read stdin: %w", err)
	}
	return strings.TrimRight(string(data), "\n"), nil
}

// splitTags parses a comma or semicolon separated tag list
func splitTags(s string) []string {
	fields := strings.FieldsFunc(s, func(r rune) bool {
		return r == ',' || r == ';'
	})
	var tags []string
	for _, f := range fields {
		if f = strings.TrimSpace(f); f != "" {
			tags = append(tags, f)
		}
	}
	return tags
}
