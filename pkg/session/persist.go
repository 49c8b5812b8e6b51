package session

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// snapshot is the on-disk JSON shape of a session.
type snapshot struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Model     string    `json:"model"`
	System    string    `json:"system,omitempty"`
	Turns     []Turn    `json:"turns"`
	NextSeq   int       `json:"next_seq"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Save writes the session as JSON, creating parent directories as needed.
func (s *Session) Save(path string) error {
	s.mu.Lock()
	snap := snapshot{
		ID:        s.id,
		Title:     s.title,
		Model:     s.model,
		System:    s.system,
		Turns:     append([]Turn(nil), s.turns...),
		NextSeq:   s.nextSeq,
		CreatedAt: s.created,
		UpdatedAt: s.updated,
	}
	s.mu.Unlock()

	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create session dir: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write session: %w", err)
	}
	return nil
}

// Load restores a saved session and binds it to the given generator.
// The restored session is Active; sequence numbering continues where the
// saved session left off.
func Load(gen Generator, path string, opts ...Option) (*Session, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read session: %w", err)
	}
	var snap snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("decode session: %w", err)
	}

	s := New(gen, snap.Model, opts...)
	s.id = snap.ID
	s.title = snap.Title
	s.system = snap.System
	s.turns = snap.Turns
	s.nextSeq = snap.NextSeq
	s.created = snap.CreatedAt
	s.updated = snap.UpdatedAt
	if len(s.turns) > 0 {
		s.state = Active
	}
	return s, nil
}

// ExportMarkdown writes a human-readable transcript.
func (s *Session) ExportMarkdown(path string) error {
	s.mu.Lock()
	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n", s.title)
	fmt.Fprintf(&b, "**Model:** %s\n", s.model)
	fmt.Fprintf(&b, "**Created:** %s\n", s.created.Format("2006-01-02 15:04:05"))
	fmt.Fprintf(&b, "**Turns:** %d\n\n---\n\n", len(s.turns))

	if s.system != "" {
		fmt.Fprintf(&b, "## System\n\n%s\n\n---\n\n", s.system)
	}
	for _, t := range s.turns {
		fmt.Fprintf(&b, "## %s\n\n%s\n\n*%s*\n\n---\n\n",
			roleLabel(t.Role), t.Content, t.Timestamp.Format("15:04:05"))
	}
	s.mu.Unlock()

	return writeExport(path, b.String())
}

// ExportText writes the plain "Role: content" transcript.
func (s *Session) ExportText(path string) error {
	s.mu.Lock()
	var parts []string
	if s.system != "" {
		parts = append(parts, "System: "+s.system)
	}
	for _, t := range s.turns {
		parts = append(parts, roleLabel(t.Role)+": "+t.Content)
	}
	s.mu.Unlock()

	return writeExport(path, strings.Join(parts, "\n\n")+"\n")
}

func writeExport(path, content string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create export dir: %w", err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return fmt.Errorf("write export: %w", err)
	}
	return nil
}
