package config

import (
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"
)

// Prompter asks the user for a secret. It returns an empty string when
// nobody can be asked.
type Prompter func(label string) (string, error)

// TerminalPrompter reads a hidden value from stdin when it is a terminal
func TerminalPrompter(out io.Writer) Prompter {
	return func(label string) (string, error) {
		fd := int(os.Stdin.Fd())
		if !term.IsTerminal(fd) {
			return "", nil
		}
		fmt.Fprintf(out, "%s: ", label)
		secret, err := term.ReadPassword(fd)
		fmt.Fprintln(out)
		if err != nil {
			return "", fmt.Errorf("failed to read API key: %w", err)
		}
		return string(secret), nil
	}
}

// ResolveCredential makes sure a credential is available before any model
// call can happen, asking once through prompt when the environment had none.
func (c *Config) ResolveCredential(prompt Prompter) error {
	if !c.NeedsCredential() || c.APIKey != "" {
		return nil
	}

	if prompt != nil {
		key, err := prompt(credentialLabel(c.Provider))
		if err != nil {
			return err
		}
		c.APIKey = strings.TrimSpace(key)
	}

	if c.APIKey == "" {
		return fmt.Errorf("%w: set %s in the environment or .env file", ErrMissingCredential, credentialEnvName(c.Provider))
	}
	return nil
}

func credentialLabel(provider string) string {
	if provider == ProviderOpenAI {
		return "Enter your OpenAI API Key"
	}
	return "Enter your Google API Key"
}

func credentialEnvName(provider string) string {
	if provider == ProviderOpenAI {
		return "OPENAI_API_KEY"
	}
	return "GOOGLE_API_KEY"
}
