package portal

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/viper"
)

const (
	sessionDir  = ".odctl"
	sessionFile = "session.json"

	keyStudentEmail    = "student_email"
	keyFacultyLoggedIn = "faculty_logged_in"
	keyFacultyUsername = "faculty_username"
	keyAccessToken     = "access_token"
)

// Session is the client state kept between runs so the login screen can be skipped.
type Session struct {
	StudentEmail    string
	FacultyLoggedIn bool
	FacultyUsername string
	AccessToken     string

	path string
}

// DefaultSessionPath is ~/.odctl/session.json.
func DefaultSessionPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home directory: %w", err)
	}
	return filepath.Join(home, sessionDir, sessionFile), nil
}

// LoadSession reads the session at path. A missing file yields an empty session.
func LoadSession(path string) (*Session, error) {
	s := &Session{path: path}

	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return s, nil
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("json")
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read session: %w", err)
	}

	s.StudentEmail = v.GetString(keyStudentEmail)
	s.FacultyLoggedIn = v.GetBool(keyFacultyLoggedIn)
	s.FacultyUsername = v.GetString(keyFacultyUsername)
	s.AccessToken = v.GetString(keyAccessToken)
	return s, nil
}

// Path is where the session is stored.
func (s *Session) Path() string {
	return s.path
}

// Save writes the session, readable by the owner only.
func (s *Session) Save() error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return fmt.Errorf("create session directory: %w", err)
	}

	v := viper.New()
	v.SetConfigType("json")
	v.Set(keyStudentEmail, s.StudentEmail)
	v.Set(keyFacultyLoggedIn, s.FacultyLoggedIn)
	v.Set(keyFacultyUsername, s.FacultyUsername)
	v.Set(keyAccessToken, s.AccessToken)
	if err := v.WriteConfigAs(s.path); err != nil {
		return fmt.Errorf("write session: %w", err)
	}
	return os.Chmod(s.path, 0o600)
}

// Clear forgets everything and removes the file.
func (s *Session) Clear() error {
	s.StudentEmail = ""
	s.FacultyLoggedIn = false
	s.FacultyUsername = ""
	s.AccessToken = ""
	if err := os.Remove(s.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove session: %w", err)
	}
	return nil
}
