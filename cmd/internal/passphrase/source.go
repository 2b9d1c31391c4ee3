package passphrase

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"golang.org/x/term"
)

var (
	ErrEmpty      = errors.New("passphrase: empty passphrase")
	ErrNoTerminal = errors.New("passphrase: no terminal to prompt on")
	ErrMismatch   = errors.New("passphrase: confirmation does not match")
)

// Source resolves a keystore passphrase once, from an environment variable
// when it is set, else from a terminal prompt.
type Source struct {
	envVar  string
	confirm bool

	lookupEnv func(string) (string, bool)
	prompt    func(label string) (string, error)

	once  sync.Once
	value string
	err   error
}

// Option customises a Source.
type Option func(*Source)

// WithConfirmation asks twice at the prompt. Used when a keystore is created.
func WithConfirmation() Option {
	return func(s *Source) { s.confirm = true }
}

// NewSource returns a Source reading envVar before prompting on stdin.
func NewSource(envVar string, opts ...Option) *Source {
	s := &Source{
		envVar:    strings.TrimSpace(envVar),
		lookupEnv: os.LookupEnv,
		prompt:    terminalPrompt(os.Stdin, os.Stderr),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Get returns the passphrase, resolving it on first use. Later calls return
// the cached result, error included.
func (s *Source) Get() (string, error) {
	s.once.Do(func() {
		s.value, s.err = s.resolve()
	})
	return s.value, s.err
}

func (s *Source) resolve() (string, error) {
	if s.envVar != "" {
		if value, ok := s.lookupEnv(s.envVar); ok {
			if strings.TrimSpace(value) == "" {
				return "", fmt.Errorf("%w: %s is set but blank", ErrEmpty, s.envVar)
			}
			return value, nil
		}
	}
	value, err := s.prompt("Keystore passphrase: ")
	if errors.Is(err, ErrNoTerminal) && s.envVar != "" {
		return "", fmt.Errorf("%w; set %s", err, s.envVar)
	}
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(value) == "" {
		return "", ErrEmpty
	}
	if !s.confirm {
		return value, nil
	}
	again, err := s.prompt("Repeat passphrase: ")
	if err != nil {
		return "", err
	}
	if again != value {
		return "", ErrMismatch
	}
	return value, nil
}

func terminalPrompt(in *os.File, out io.Writer) func(string) (string, error) {
	return func(label string) (string, error) {
		fd := int(in.Fd())
		if !term.IsTerminal(fd) {
			return "", ErrNoTerminal
		}
		fmt.Fprint(out, label)
		raw, err := term.ReadPassword(fd)
		fmt.Fprintln(out)
		if err != nil {
			return "", fmt.Errorf("passphrase: read: %w", err)
		}
		return string(raw), nil
	}
}
