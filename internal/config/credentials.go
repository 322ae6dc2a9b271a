package config

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/sirupsen/logrus"
	"golang.org/x/term"
	"gopkg.in/yaml.v3"

	"github.com/rohankatakam/neointerface/internal/errors"
)

// CredentialManager resolves the Neo4j password.
// Priority: Environment Variable → Keychain → Credentials File → Interactive Prompt
type CredentialManager struct {
	keyring   *KeyringManager
	credsPath string
	in        io.Reader
	out       io.Writer
}

// Credentials is the on-disk fallback used when no keychain exists.
// Keys are user@host.
type Credentials struct {
	Passwords map[string]string `yaml:"passwords"`
}

// NewCredentialManager creates a new credential manager
func NewCredentialManager(logger logrus.FieldLogger) *CredentialManager {
	return &CredentialManager{
		keyring:   NewKeyringManager(logger),
		credsPath: filepath.Join(Dir(), "credentials.yaml"),
		in:        os.Stdin,
		out:       os.Stdout,
	}
}

// ResolvePassword fills cfg.Neo4j.Password when it is empty and auth is on.
func (cm *CredentialManager) ResolvePassword(cfg *Config) error {
	if cfg.Neo4j.NoAuth || cfg.Neo4j.Password != "" {
		return nil
	}
	password, err := cm.GetPassword(cfg.Neo4j.User, cfg.Neo4j.Host)
	if err != nil {
		return err
	}
	cfg.Neo4j.Password = password
	return nil
}

// GetPassword retrieves the password for user@host using the priority chain
func (cm *CredentialManager) GetPassword(user, host string) (string, error) {
	if password := os.Getenv("NEO4J_PASSWORD"); password != "" {
		return password, nil
	}

	if cm.keyring.IsAvailable() {
		if password, err := cm.keyring.GetPassword(user, host); err == nil && password != "" {
			return password, nil
		}
	}

	if creds, err := cm.loadCredentialsFile(); err == nil {
		if password := creds.Passwords[PasswordItem(user, host)]; password != "" {
			return password, nil
		}
	}

	if isInteractive() && os.Getenv("CI") == "" {
		fmt.Fprintf(cm.out, "Password for %s: ", PasswordItem(user, host))
		password, err := cm.readSecurely()
		if err != nil {
			return "", err
		}
		if password == "" {
			return "", errors.ConfigError("neo4j password is required")
		}
		return password, nil
	}

	return "", errors.ConfigErrorf(
		"neo4j password for %s not found. Set it via:\n"+
			"  1. Environment variable: export NEO4J_PASSWORD=...\n"+
			"  2. Run: neoi login (stores it in the keychain)\n"+
			"  3. Credentials file: %s", PasswordItem(user, host), cm.credsPath)
}

// SavePassword saves to the keychain when available, otherwise to the
// credentials file. It reports which one was used.
func (cm *CredentialManager) SavePassword(user, host, password string) (string, error) {
	if cm.keyring.IsAvailable() {
		if err := cm.keyring.SavePassword(user, host, password); err != nil {
			return "", errors.Wrap(err, errors.ErrorTypeConfig, errors.SeverityHigh,
				"failed to save neo4j password to keychain")
		}
		return "keychain", nil
	}

	creds, err := cm.loadCredentialsFile()
	if err != nil {
		creds = &Credentials{}
	}
	if creds.Passwords == nil {
		creds.Passwords = map[string]string{}
	}
	creds.Passwords[PasswordItem(user, host)] = password
	if err := cm.saveCredentialsFile(creds); err != nil {
		return "", errors.FileSystemError(err, "failed to write credentials file")
	}
	return cm.credsPath, nil
}

// DeletePassword removes the password from both stores.
func (cm *CredentialManager) DeletePassword(user, host string) error {
	if cm.keyring.IsAvailable() {
		if err := cm.keyring.DeletePassword(user, host); err != nil {
			return err
		}
	}
	creds, err := cm.loadCredentialsFile()
	if err != nil {
		return nil
	}
	if _, ok := creds.Passwords[PasswordItem(user, host)]; !ok {
		return nil
	}
	delete(creds.Passwords, PasswordItem(user, host))
	return cm.saveCredentialsFile(creds)
}

// PromptPassword asks for a password on the terminal without echo.
func (cm *CredentialManager) PromptPassword(prompt string) (string, error) {
	fmt.Fprint(cm.out, prompt)
	return cm.readSecurely()
}

func (cm *CredentialManager) loadCredentialsFile() (*Credentials, error) {
	data, err := os.ReadFile(cm.credsPath)
	if err != nil {
		return nil, err
	}

	var creds Credentials
	if err := yaml.Unmarshal(data, &creds); err != nil {
		return nil, err
	}
	return &creds, nil
}

func (cm *CredentialManager) saveCredentialsFile(creds *Credentials) error {
	if err := os.MkdirAll(filepath.Dir(cm.credsPath), 0700); err != nil {
		return err
	}

	data, err := yaml.Marshal(creds)
	if err != nil {
		return err
	}

	// user-only read/write
	return os.WriteFile(cm.credsPath, data, 0600)
}

// readSecurely reads a password from stdin without echoing
func (cm *CredentialManager) readSecurely() (string, error) {
	if f, ok := cm.in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		bytes, err := term.ReadPassword(int(f.Fd()))
		fmt.Fprintln(cm.out)
		if err != nil {
			return "", err
		}
		return strings.TrimSpace(string(bytes)), nil
	}

	// piped input
	reader := bufio.NewReader(cm.in)
	line, err := reader.ReadString('\n')
	if err != nil && err != io.EOF {
		return "", err
	}
	return strings.TrimSpace(line), nil
}

// CredentialsPath returns the path of the fallback credentials file
func (cm *CredentialManager) CredentialsPath() string {
	return cm.credsPath
}

func isInteractive() bool {
	return term.IsTerminal(int(syscall.Stdin))
}
