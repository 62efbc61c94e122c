// Package runtimeio wraps the handful of terminal operations
// console.input/console.getPass need (spec.md SUPPLEMENTED FEATURES #3):
// line input and echo-free password input, both of which must fail
// cleanly rather than block when stdin isn't a real terminal (a test
// runner, a CI log). Grounded on the teacher's own runtimeio.go, kept
// as-is since the underlying golang.org/x/term calls don't change shape
// moving from a general host CLI to an embedded console builtin.
package runtimeio

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"
)

var (
	ErrInputUnavailable   = errors.New("input is not available in non-interactive mode")
	ErrGetpassUnavailable = errors.New("getpass is not available in non-interactive mode")
)

func IsInteractive() bool {
	return term.IsTerminal(int(os.Stdin.Fd()))
}

func Input(prompt string) (string, error) {
	if !IsInteractive() {
		return "", ErrInputUnavailable
	}
	if prompt != "" {
		_, _ = fmt.Fprint(os.Stdout, prompt)
	}
	line, err := readLine()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return "", ErrInputUnavailable
		}
		return "", err
	}
	return line, nil
}

func GetPass(prompt string) (string, error) {
	if !IsInteractive() {
		return "", ErrGetpassUnavailable
	}
	if prompt != "" {
		_, _ = fmt.Fprint(os.Stdout, prompt)
	}
	fd := int(os.Stdin.Fd())
	if term.IsTerminal(fd) {
		if b, err := term.ReadPassword(fd); err == nil {
			return string(b), nil
		}
	}
	line, err := readLine()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return "", ErrGetpassUnavailable
		}
		return "", err
	}
	return line, nil
}

func readLine() (string, error) {
	reader := bufio.NewReader(os.Stdin)
	line, err := reader.ReadString('\n')
	if err != nil {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}
