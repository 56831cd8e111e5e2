package config

import (
	"fmt"
	"net"
	"path/filepath"
	"strings"
	"time"
)

// Duration wraps time.Duration for YAML unmarshalling.
type Duration struct {
	time.Duration
	explicit bool
}

// UnmarshalText parses a textual duration, accepting empty strings.
func (d *Duration) UnmarshalText(text []byte) error {
	d.explicit = true
	if len(text) == 0 {
		d.Duration = 0
		return nil
	}
	dur, err := time.ParseDuration(string(text))
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", string(text), err)
	}
	d.Duration = dur
	return nil
}

// MarshalText renders the duration using time.Duration formatting.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// IsSet reports whether the duration was explicitly provided or non-zero.
func (d Duration) IsSet() bool {
	return d.explicit || d.Duration != 0
}

// File mirrors the job.yaml document structure.
type File struct {
	Version string       `yaml:"version"`
	Job     *JobSpec     `yaml:"job"`
	Metrics *MetricsSpec `yaml:"metrics"`
}

// JobSpec describes the command to run under supervision.
type JobSpec struct {
	Name        string            `yaml:"name"`
	Command     []string          `yaml:"command"`
	Workdir     string            `yaml:"workdir"`
	Env         map[string]string `yaml:"env"`
	EnvFromFile string            `yaml:"envFromFile"`
	Path        []string          `yaml:"path"`
	Term        string            `yaml:"term"`
	Timeout     Duration          `yaml:"timeout"`
	Grace       Duration          `yaml:"grace"`
	TTY         *TTYSpec          `yaml:"tty"`

	// ResolvedWorkdir is the workdir made absolute relative to the job
	// file during loading.
	ResolvedWorkdir string `yaml:"-"`
}

// TTYSpec sets the initial terminal dimensions for the session.
type TTYSpec struct {
	Rows uint16 `yaml:"rows"`
	Cols uint16 `yaml:"cols"`
}

// MetricsSpec configures the optional metrics endpoint.
type MetricsSpec struct {
	Listen string `yaml:"listen"`
}

// DisplayName returns the configured job name, falling back to the command
// basename.
func (j *JobSpec) DisplayName() string {
	if j == nil {
		return ""
	}
	if strings.TrimSpace(j.Name) != "" {
		return j.Name
	}
	if len(j.Command) > 0 {
		return filepath.Base(j.Command[0])
	}
	return ""
}

// Validate checks the document for structural problems.
func (f *File) Validate() error {
	if f.Version != "" && f.Version != "1" {
		return fmt.Errorf("version: unsupported value %q", f.Version)
	}
	if f.Job == nil {
		return fmt.Errorf("job: section is required")
	}
	if len(f.Job.Command) == 0 {
		return fmt.Errorf("%s: at least one argument is required", jobField("command"))
	}
	for i, arg := range f.Job.Command {
		if strings.TrimSpace(arg) == "" && i == 0 {
			return fmt.Errorf("%s: first argument must not be blank", jobField("command"))
		}
	}
	if f.Job.Timeout.Duration < 0 {
		return fmt.Errorf("%s: must not be negative", jobField("timeout"))
	}
	if f.Job.Grace.Duration < 0 {
		return fmt.Errorf("%s: must not be negative", jobField("grace"))
	}
	if f.Metrics != nil && strings.TrimSpace(f.Metrics.Listen) != "" {
		if _, _, err := net.SplitHostPort(f.Metrics.Listen); err != nil {
			return fmt.Errorf("metrics.listen: invalid address %q: %w", f.Metrics.Listen, err)
		}
	}
	return nil
}

func jobField(parts ...string) string {
	return strings.Join(append([]string{"job"}, parts...), ".")
}
